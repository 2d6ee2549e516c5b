package asset

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an uploaded asset.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUploading, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further status change is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether from -> to is an edge of the lifecycle state machine.
func CanTransition(from, to Status) bool {
	return from == StatusUploading && to.IsTerminal()
}

const (
	MinPartNumber = 1
	MaxPartNumber = 10000

	MaxFilenameLength   = 255
	MaxStorageKeyLength = 500
)

// Asset represents assets
type Asset struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID          *int64     `gorm:"index" json:"owner_id,omitempty"`
	OriginalFilename string     `gorm:"size:255;not null" json:"original_filename"`
	StorageKey       string     `gorm:"size:500;not null;uniqueIndex" json:"storage_key"`
	UploadID         string     `gorm:"size:1024" json:"-"`
	ContentType      string     `gorm:"size:255" json:"content_type,omitempty"`
	Status           Status     `gorm:"size:20;not null;default:'uploading'" json:"status"`
	SizeBytes        *int64     `json:"size_bytes,omitempty"`
	DurationSec      *float64   `json:"duration_sec,omitempty"`
	ThumbnailURL     *string    `gorm:"size:500" json:"thumbnail_url,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

func (Asset) TableName() string {
	return "assets"
}

// UploadSession is the ephemeral pairing of an asset with its object store session.
type UploadSession struct {
	AssetID    uuid.UUID
	UploadID   string
	StorageKey string
}

// Part is one uploaded chunk as reported by the client.
type Part struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// BuildStorageKey derives the immutable object key for an asset.
func BuildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("uploads/%s/%s", id.String(), SanitizeFilename(filename))
}

// SanitizeFilename strips directory components so a filename cannot escape its asset prefix.
func SanitizeFilename(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
