package httpdto

import (
	"encoding/json"
	"fmt"
	"time"

	"oneclick-video/internal/domain/asset"
)

// InitiateUploadRequest is used for POST /uploads/initiate
type InitiateUploadRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type"`
	OwnerID     *int64 `json:"owner_id"`
}

type InitiateUploadResponse struct {
	UploadID string `json:"upload_id"`
	AssetID  string `json:"asset_id"`
	Key      string `json:"key"`
}

// PartURLRequest is used for POST /uploads/presigned-url
type PartURLRequest struct {
	AssetID    string `json:"asset_id" binding:"required"`
	UploadID   string `json:"upload_id" binding:"required"`
	PartNumber int32  `json:"part_number" binding:"required"`
}

type URLResponse struct {
	URL string `json:"url"`
}

// PartDTO accepts both the S3 style keys (PartNumber, ETag) that browsers
// echo back from the upload responses and snake_case keys.
type PartDTO struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

func (p *PartDTO) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	number, ok := firstOf(raw, "PartNumber", "part_number")
	if !ok {
		return fmt.Errorf("part is missing PartNumber")
	}
	if err := json.Unmarshal(number, &p.PartNumber); err != nil {
		return fmt.Errorf("invalid PartNumber: %w", err)
	}
	etag, ok := firstOf(raw, "ETag", "etag")
	if !ok {
		return fmt.Errorf("part %d is missing ETag", p.PartNumber)
	}
	if err := json.Unmarshal(etag, &p.ETag); err != nil {
		return fmt.Errorf("invalid ETag: %w", err)
	}
	return nil
}

func firstOf(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// CompleteUploadRequest is used for POST /uploads/complete
type CompleteUploadRequest struct {
	AssetID  string    `json:"asset_id" binding:"required"`
	UploadID string    `json:"upload_id" binding:"required"`
	Parts    []PartDTO `json:"parts" binding:"required"`
}

func (r CompleteUploadRequest) DomainParts() []asset.Part {
	parts := make([]asset.Part, 0, len(r.Parts))
	for _, p := range r.Parts {
		parts = append(parts, asset.Part{PartNumber: p.PartNumber, ETag: p.ETag})
	}
	return parts
}

type CompleteUploadResponse struct {
	AssetID   string   `json:"asset_id"`
	Key       string   `json:"key"`
	SizeBytes *int64   `json:"size_bytes,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// AbortUploadRequest is used for POST /uploads/abort
type AbortUploadRequest struct {
	AssetID  string `json:"asset_id" binding:"required"`
	UploadID string `json:"upload_id" binding:"required"`
}

type AbortUploadResponse struct {
	AssetID string `json:"asset_id"`
}

type DeleteAssetResponse struct {
	OK       bool     `json:"ok"`
	Warnings []string `json:"warnings,omitempty"`
}

// AssetDTO represents an asset in API responses
type AssetDTO struct {
	ID               string   `json:"id"`
	OwnerID          *int64   `json:"owner_id,omitempty"`
	OriginalFilename string   `json:"original_filename"`
	Key              string   `json:"key"`
	ContentType      string   `json:"content_type,omitempty"`
	Status           string   `json:"status"`
	SizeBytes        *int64   `json:"size_bytes,omitempty"`
	DurationSec      *float64 `json:"duration_sec,omitempty"`
	ThumbnailURL     *string  `json:"thumbnail_url,omitempty"`
	CreatedAt        string   `json:"created_at"`
	CompletedAt      string   `json:"completed_at,omitempty"`
}

func ToAssetDTO(a asset.Asset) AssetDTO {
	dto := AssetDTO{
		ID:               a.ID.String(),
		OwnerID:          a.OwnerID,
		OriginalFilename: a.OriginalFilename,
		Key:              a.StorageKey,
		ContentType:      a.ContentType,
		Status:           string(a.Status),
		SizeBytes:        a.SizeBytes,
		DurationSec:      a.DurationSec,
		ThumbnailURL:     a.ThumbnailURL,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CompletedAt != nil {
		dto.CompletedAt = a.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func ToAssetDTOs(assets []asset.Asset) []AssetDTO {
	out := make([]AssetDTO, 0, len(assets))
	for _, a := range assets {
		out = append(out, ToAssetDTO(a))
	}
	return out
}

func WarningStrings(warnings []error) []string {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.Error())
	}
	return out
}
