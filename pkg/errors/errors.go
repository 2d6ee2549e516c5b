package apperrors

import (
	"errors"
	"time"
)

// Upload lifecycle errors
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidState   = errors.New("invalid state for operation")
	ErrUpstream       = errors.New("object store request failed")
	ErrRegistryWrite  = errors.New("registry write failed")
	ErrPartialFailure = errors.New("partial failure")
)

// Common errors
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidInput      = errors.New("invalid input")
	ErrAlreadyExists     = errors.New("already exists")
	ErrRateLimited       = errors.New("rate limited")
)

// IsClientError reports whether err was caused by the caller and must not be retried as-is.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvalidInput)
}

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now().UTC()
	return &now
}
