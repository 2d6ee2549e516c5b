package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"oneclick-video/internal/domain/asset"
)

// ObjectStore is the capability surface the upload coordinator needs from a
// chunked-upload blob store. Every method except CreateSession is idempotent
// under repeated identical calls; CreateSession always opens a new session.
type ObjectStore interface {
	CreateSession(ctx context.Context, key, contentType string) (string, error)
	PartURL(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error)
	Complete(ctx context.Context, key, sessionID string, sortedParts []asset.Part) (string, error)
	Abort(ctx context.Context, key, sessionID string) error
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	ReadURL(ctx context.Context, key string, ttl time.Duration, filenameHint string) (string, error)
	Delete(ctx context.Context, key string) error
}

type ObjectInfo struct {
	SizeBytes    int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// ValidatePartNumber checks the store wire contract for a single part number.
func ValidatePartNumber(partNumber int32) error {
	if partNumber < asset.MinPartNumber || partNumber > asset.MaxPartNumber {
		return fmt.Errorf("%w: part number %d outside %d..%d", ErrInvalidParts, partNumber, asset.MinPartNumber, asset.MaxPartNumber)
	}
	return nil
}

// ValidateSortedParts checks that parts are non-empty, in range and strictly ascending.
func ValidateSortedParts(parts []asset.Part) error {
	if len(parts) == 0 {
		return fmt.Errorf("%w: no parts", ErrInvalidParts)
	}
	prev := int32(0)
	for _, p := range parts {
		if err := ValidatePartNumber(p.PartNumber); err != nil {
			return err
		}
		if p.PartNumber <= prev {
			return fmt.Errorf("%w: parts must be strictly ascending (%d after %d)", ErrInvalidParts, p.PartNumber, prev)
		}
		if p.ETag == "" {
			return fmt.Errorf("%w: part %d has empty etag", ErrInvalidParts, p.PartNumber)
		}
		prev = p.PartNumber
	}
	return nil
}

// contentDisposition builds an RFC 6266 attachment header. Names that are not
// plain printable ASCII get an ASCII fallback plus a UTF-8 filename* parameter.
func contentDisposition(filenameHint string) string {
	if filenameHint == "" {
		return ""
	}
	fallback := asciiFilename(filenameHint)
	v := fmt.Sprintf(`attachment; filename="%s"`, fallback)
	if fallback != filenameHint {
		v += "; filename*=UTF-8''" + encodeExtValue(filenameHint)
	}
	return v
}

func asciiFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// encodeExtValue percent-encodes every byte outside the RFC 5987 attr-char set.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isAttrChar(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isAttrChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$&+-.^_`|~", c) >= 0
}
