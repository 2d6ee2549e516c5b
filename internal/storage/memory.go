package storage

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"oneclick-video/internal/domain/asset"

	"github.com/google/uuid"
)

// Op names a MemoryStore operation for fault injection and call counting.
type Op string

const (
	OpCreateSession Op = "create_session"
	OpPartURL       Op = "part_url"
	OpComplete      Op = "complete"
	OpAbort         Op = "abort"
	OpStat          Op = "stat"
	OpReadURL       Op = "read_url"
	OpDelete        Op = "delete"
)

type memPart struct {
	etag string
	size int64
}

type memSession struct {
	key         string
	contentType string
	parts       map[int32]memPart
}

type memObject struct {
	size        int64
	contentType string
	etag        string
	modified    time.Time
}

// MemoryStore is an in-process ObjectStore that enforces the same wire
// contract as S3 multipart uploads. Used by tests and STORE_DRIVER=memory.
type MemoryStore struct {
	bucket      string
	minPartSize int64

	mu       sync.Mutex
	sessions map[string]*memSession
	objects  map[string]memObject
	failures map[Op]error
	delays   map[Op]time.Duration
	calls    map[Op]int
}

var _ ObjectStore = (*MemoryStore)(nil)

func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:   bucket,
		sessions: make(map[string]*memSession),
		objects:  make(map[string]memObject),
		failures: make(map[Op]error),
		delays:   make(map[Op]time.Duration),
		calls:    make(map[Op]int),
	}
}

// SetMinPartSize makes Complete reject non-final parts smaller than n bytes.
func (m *MemoryStore) SetMinPartSize(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minPartSize = n
}

// FailOn makes every subsequent call of op return err. A nil err clears it.
func (m *MemoryStore) FailOn(op Op, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

// DelayOn makes op block for d or until its context is done.
func (m *MemoryStore) DelayOn(op Op, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays[op] = d
}

func (m *MemoryStore) Calls(op Op) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// OpenSessions returns the number of sessions neither completed nor aborted.
func (m *MemoryStore) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) HasObject(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// UploadPart stands in for the client PUT against a part URL and returns the part's etag.
func (m *MemoryStore) UploadPart(sessionID string, partNumber int32, data []byte) (string, error) {
	if err := ValidatePartNumber(partNumber); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return "", ErrSessionNotFound
	}
	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	s.parts[partNumber] = memPart{etag: etag, size: int64(len(data))}
	return etag, nil
}

func (m *MemoryStore) enter(ctx context.Context, op Op) error {
	m.mu.Lock()
	m.calls[op]++
	delay := m.delays[op]
	failure := m.failures[op]
	m.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

func (m *MemoryStore) CreateSession(ctx context.Context, key, contentType string) (string, error) {
	if err := m.enter(ctx, OpCreateSession); err != nil {
		return "", newError(string(OpCreateSession), key, err)
	}
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &memSession{key: key, contentType: contentType, parts: make(map[int32]memPart)}
	return id, nil
}

func (m *MemoryStore) PartURL(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	if err := m.enter(ctx, OpPartURL); err != nil {
		return "", newError(string(OpPartURL), key, err)
	}
	if err := ValidatePartNumber(partNumber); err != nil {
		return "", newError(string(OpPartURL), key, err)
	}
	q := url.Values{}
	q.Set("uploadId", sessionID)
	q.Set("partNumber", strconv.Itoa(int(partNumber)))
	q.Set("expires", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
	return fmt.Sprintf("memory://%s/%s?%s", m.bucket, key, q.Encode()), nil
}

func (m *MemoryStore) Complete(ctx context.Context, key, sessionID string, sortedParts []asset.Part) (string, error) {
	if err := m.enter(ctx, OpComplete); err != nil {
		return "", newError(string(OpComplete), key, err)
	}
	if err := ValidateSortedParts(sortedParts); err != nil {
		return "", newError(string(OpComplete), key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.key != key {
		return "", newError(string(OpComplete), key, ErrSessionNotFound)
	}
	var total int64
	for i, p := range sortedParts {
		stored, ok := s.parts[p.PartNumber]
		if !ok || stored.etag != p.ETag {
			return "", newError(string(OpComplete), key, fmt.Errorf("%w: part %d etag mismatch", ErrInvalidParts, p.PartNumber))
		}
		if i < len(sortedParts)-1 && stored.size < m.minPartSize {
			return "", newError(string(OpComplete), key, fmt.Errorf("%w: part %d below minimum size", ErrInvalidParts, p.PartNumber))
		}
		total += stored.size
	}
	delete(m.sessions, sessionID)
	m.objects[key] = memObject{
		size:        total,
		contentType: s.contentType,
		etag:        fmt.Sprintf(`"%s-%d"`, sessionID, len(sortedParts)),
		modified:    time.Now().UTC(),
	}
	return "memory://" + m.bucket + "/" + key, nil
}

func (m *MemoryStore) Abort(ctx context.Context, key, sessionID string) error {
	if err := m.enter(ctx, OpAbort); err != nil {
		return newError(string(OpAbort), key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if err := m.enter(ctx, OpStat); err != nil {
		return ObjectInfo{}, newError(string(OpStat), key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return ObjectInfo{}, newError(string(OpStat), key, ErrObjectNotFound)
	}
	return ObjectInfo{
		SizeBytes:    obj.size,
		ContentType:  obj.contentType,
		ETag:         obj.etag,
		LastModified: obj.modified,
	}, nil
}

func (m *MemoryStore) ReadURL(ctx context.Context, key string, ttl time.Duration, filenameHint string) (string, error) {
	if err := m.enter(ctx, OpReadURL); err != nil {
		return "", newError(string(OpReadURL), key, err)
	}
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
	if disposition := contentDisposition(filenameHint); disposition != "" {
		q.Set("response-content-disposition", disposition)
	}
	return fmt.Sprintf("memory://%s/%s?%s", m.bucket, key, q.Encode()), nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := m.enter(ctx, OpDelete); err != nil {
		return newError(string(OpDelete), key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}
