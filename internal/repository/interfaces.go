package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"oneclick-video/internal/domain/asset"
)

// StatusChange carries the columns written together with a status transition.
type StatusChange struct {
	SizeBytes   *int64
	CompletedAt *time.Time
}

// AssetRepository is the asset registry. UpdateStatus is a compare-and-update:
// it applies only when the stored status equals expected, and is the single
// concurrency-control primitive for asset lifecycle changes.
type AssetRepository interface {
	Create(ctx context.Context, a *asset.Asset) error
	GetByID(ctx context.Context, id uuid.UUID) (asset.Asset, error)
	ListByOwner(ctx context.Context, ownerID *int64) ([]asset.Asset, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next asset.Status, change StatusChange) error
	Delete(ctx context.Context, id uuid.UUID) error
}
