package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"oneclick-video/internal/domain/asset"
	apperrors "oneclick-video/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newAsset(owner *int64, createdAt time.Time) *asset.Asset {
	id := uuid.New()
	return &asset.Asset{
		ID:               id,
		OwnerID:          owner,
		OriginalFilename: "clip.mp4",
		StorageKey:       asset.BuildStorageKey(id, "clip.mp4"),
		UploadID:         "upload-" + id.String(),
		ContentType:      "video/mp4",
		Status:           asset.StatusUploading,
		CreatedAt:        createdAt,
	}
}

// exerciseRepository runs the registry contract against any implementation.
// isolate wraps the statement expected to fail so a database transaction survives it.
func exerciseRepository(t *testing.T, repo AssetRepository, isolate func(func())) {
	ctx := context.Background()
	owner := int64(5)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	first := newAsset(&owner, base)
	second := newAsset(&owner, base.Add(time.Minute))
	unowned := newAsset(nil, base)
	for _, a := range []*asset.Asset{first, second, unowned} {
		require.NoError(t, repo.Create(ctx, a))
	}

	dup := *first
	isolate(func() {
		assert.ErrorIs(t, repo.Create(ctx, &dup), apperrors.ErrAlreadyExists)
	})

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.StorageKey, got.StorageKey)
	assert.Equal(t, first.UploadID, got.UploadID)
	assert.Equal(t, asset.StatusUploading, got.Status)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := repo.ListByOwner(ctx, &owner)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	list, err = repo.ListByOwner(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, unowned.ID, list[0].ID)

	size := int64(2048)
	done := base.Add(time.Hour)
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, asset.StatusUploading, asset.StatusCompleted, StatusChange{SizeBytes: &size, CompletedAt: &done}))
	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.StatusCompleted, got.Status)
	require.NotNil(t, got.SizeBytes)
	assert.Equal(t, size, *got.SizeBytes)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.Equal(*got.CompletedAt))

	err = repo.UpdateStatus(ctx, first.ID, asset.StatusUploading, asset.StatusFailed, StatusChange{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "guard must miss once the status moved on")
	err = repo.UpdateStatus(ctx, first.ID, asset.StatusCompleted, asset.StatusFailed, StatusChange{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "terminal states never change")
	err = repo.UpdateStatus(ctx, uuid.New(), asset.StatusUploading, asset.StatusFailed, StatusChange{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), apperrors.ErrNotFound)
	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMemoryAssetRepository_Contract(t *testing.T) {
	exerciseRepository(t, NewMemoryAssetRepository(), func(f func()) { f() })
}

func TestMemoryAssetRepository_GuardedUpdateRace(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAssetRepository()
	a := newAsset(nil, time.Now())
	require.NoError(t, repo.Create(ctx, a))

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		next := asset.StatusCompleted
		if i%2 == 0 {
			next = asset.StatusFailed
		}
		wg.Add(1)
		go func(next asset.Status) {
			defer wg.Done()
			results <- repo.UpdateStatus(ctx, a.ID, asset.StatusUploading, next, StatusChange{})
		}(next)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	}
	assert.Equal(t, 1, wins)
}

func TestMemoryAssetRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAssetRepository()
	owner := int64(1)
	a := newAsset(&owner, time.Now())
	require.NoError(t, repo.Create(ctx, a))

	*a.OwnerID = 99
	got, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *got.OwnerID)
}

func TestMemoryAssetRepository_ListTiesOrderedByID(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAssetRepository()
	owner := int64(3)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 8; i++ {
		a := newAsset(&owner, at)
		require.NoError(t, repo.Create(ctx, a))
		ids = append(ids, a.ID.String())
	}
	sort.Strings(ids)

	for i := 0; i < 10; i++ {
		list, err := repo.ListByOwner(ctx, &owner)
		require.NoError(t, err)
		got := make([]string, 0, len(list))
		for _, a := range list {
			got = append(got, a.ID.String())
		}
		assert.Equal(t, ids, got)
	}
}

func TestMemoryAssetRepository_FailWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAssetRepository()
	boom := errors.New("connection refused")

	repo.FailWrites(boom)
	assert.ErrorIs(t, repo.Create(ctx, newAsset(nil, time.Now())), boom)
	assert.Equal(t, 0, repo.Len())

	repo.FailWrites(nil)
	a := newAsset(nil, time.Now())
	require.NoError(t, repo.Create(ctx, a))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			repo.FailWrites(boom)
			repo.FailWrites(nil)
		}()
		go func() {
			defer wg.Done()
			_ = repo.UpdateStatus(ctx, a.ID, asset.StatusUploading, asset.StatusFailed, StatusChange{})
		}()
	}
	wg.Wait()
}

// TestPostgresAssetRepository_Contract runs against a real database when
// TEST_DATABASE_DSN is set.
func TestPostgresAssetRepository_Contract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_create_assets.sql"))
	require.NoError(t, err)
	require.NoError(t, db.Exec(string(schema)).Error)

	tx := db.Begin()
	t.Cleanup(func() {
		tx.Rollback()
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	exerciseRepository(t, NewAssetRepository(tx), func(f func()) {
		require.NoError(t, tx.SavePoint("dup").Error)
		f()
		require.NoError(t, tx.RollbackTo("dup").Error)
	})
}
