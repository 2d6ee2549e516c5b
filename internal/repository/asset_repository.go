package repository

import (
	"context"
	"errors"

	"oneclick-video/internal/domain/asset"
	apperrors "oneclick-video/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresAssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository(db *gorm.DB) AssetRepository {
	return &PostgresAssetRepository{db: db}
}

func (r *PostgresAssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	res := r.db.WithContext(ctx).Create(a)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return apperrors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresAssetRepository) GetByID(ctx context.Context, id uuid.UUID) (asset.Asset, error) {
	var a asset.Asset
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return asset.Asset{}, apperrors.ErrNotFound
		}
		return asset.Asset{}, err
	}
	return a, nil
}

func (r *PostgresAssetRepository) ListByOwner(ctx context.Context, ownerID *int64) ([]asset.Asset, error) {
	var assets []asset.Asset
	q := r.db.WithContext(ctx)
	if ownerID == nil {
		q = q.Where("owner_id IS NULL")
	} else {
		q = q.Where("owner_id = ?", *ownerID)
	}
	if err := q.Order("created_at DESC, id ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *PostgresAssetRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next asset.Status, change StatusChange) error {
	if !asset.CanTransition(expected, next) {
		return apperrors.ErrInvalidTransition
	}
	res := r.db.WithContext(ctx).
		Model(&asset.Asset{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(statusUpdates(string(next), change))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Guard missed: tell a vanished row apart from a status that moved on.
	var count int64
	if err := r.db.WithContext(ctx).Model(&asset.Asset{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperrors.ErrNotFound
	}
	return apperrors.ErrInvalidTransition
}

func (r *PostgresAssetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&asset.Asset{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
