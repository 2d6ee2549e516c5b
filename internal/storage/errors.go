package storage

import (
	"errors"
	"fmt"
)

var (
	ErrObjectNotFound  = errors.New("object not found")
	ErrSessionNotFound = errors.New("upload session not found")
	ErrInvalidParts    = errors.New("invalid part list")
	ErrNotConfigured   = errors.New("object store not configured")
)

// Error records the store operation and key that failed.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage.%s %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage.%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Key: key, Err: err}
}
