package repository

import (
	"context"
	"sort"
	"sync"

	"oneclick-video/internal/domain/asset"
	apperrors "oneclick-video/pkg/errors"

	"github.com/google/uuid"
)

// MemoryAssetRepository keeps assets in process memory. It backs tests and
// local runs without postgres; UpdateStatus is atomic under the mutex.
type MemoryAssetRepository struct {
	mu     sync.RWMutex
	assets map[uuid.UUID]asset.Asset
	keys   map[string]uuid.UUID

	failWrites error
}

func NewMemoryAssetRepository() *MemoryAssetRepository {
	return &MemoryAssetRepository{
		assets: make(map[uuid.UUID]asset.Asset),
		keys:   make(map[string]uuid.UUID),
	}
}

func (r *MemoryAssetRepository) Create(_ context.Context, a *asset.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	if _, ok := r.assets[a.ID]; ok {
		return apperrors.ErrAlreadyExists
	}
	if _, ok := r.keys[a.StorageKey]; ok {
		return apperrors.ErrAlreadyExists
	}
	r.assets[a.ID] = cloneAsset(*a)
	r.keys[a.StorageKey] = a.ID
	return nil
}

func (r *MemoryAssetRepository) GetByID(_ context.Context, id uuid.UUID) (asset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return asset.Asset{}, apperrors.ErrNotFound
	}
	return cloneAsset(a), nil
}

func (r *MemoryAssetRepository) ListByOwner(_ context.Context, ownerID *int64) ([]asset.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []asset.Asset
	for _, a := range r.assets {
		if !sameOwner(a.OwnerID, ownerID) {
			continue
		}
		out = append(out, cloneAsset(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *MemoryAssetRepository) UpdateStatus(_ context.Context, id uuid.UUID, expected, next asset.Status, change StatusChange) error {
	if !asset.CanTransition(expected, next) {
		return apperrors.ErrInvalidTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	a, ok := r.assets[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if a.Status != expected {
		return apperrors.ErrInvalidTransition
	}
	a.Status = next
	if change.SizeBytes != nil {
		size := *change.SizeBytes
		a.SizeBytes = &size
	}
	if change.CompletedAt != nil {
		at := *change.CompletedAt
		a.CompletedAt = &at
	}
	r.assets[id] = a
	return nil
}

func (r *MemoryAssetRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites != nil {
		return r.failWrites
	}
	a, ok := r.assets[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	delete(r.assets, id)
	delete(r.keys, a.StorageKey)
	return nil
}

// FailWrites makes every subsequent mutating call return err. A nil err clears it.
func (r *MemoryAssetRepository) FailWrites(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWrites = err
}

// Len returns the number of stored assets.
func (r *MemoryAssetRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.assets)
}

func sameOwner(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneAsset(a asset.Asset) asset.Asset {
	if a.OwnerID != nil {
		v := *a.OwnerID
		a.OwnerID = &v
	}
	if a.SizeBytes != nil {
		v := *a.SizeBytes
		a.SizeBytes = &v
	}
	if a.DurationSec != nil {
		v := *a.DurationSec
		a.DurationSec = &v
	}
	if a.ThumbnailURL != nil {
		v := *a.ThumbnailURL
		a.ThumbnailURL = &v
	}
	if a.CompletedAt != nil {
		v := *a.CompletedAt
		a.CompletedAt = &v
	}
	return a
}
