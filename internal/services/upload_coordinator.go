package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"oneclick-video/internal/domain/asset"
	"oneclick-video/internal/events"
	"oneclick-video/internal/repository"
	"oneclick-video/internal/storage"
	apperrors "oneclick-video/pkg/errors"
	"oneclick-video/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CoordinatorConfig struct {
	PartURLTTL         time.Duration
	ReadURLTTL         time.Duration
	StoreTimeout       time.Duration
	DefaultContentType string
	// PublishTimeout bounds event delivery once a transition has committed.
	PublishTimeout time.Duration
}

// UploadCoordinator drives an asset through its upload lifecycle, keeping the
// registry record consistent with the object store session behind it.
type UploadCoordinator struct {
	store     storage.ObjectStore
	repo      repository.AssetRepository
	publisher events.Publisher
	cfg       CoordinatorConfig
	logger    *logger.Logger
	now       func() time.Time
}

type InitiateInput struct {
	Filename    string
	ContentType string
	OwnerID     *int64
}

type InitiateResult struct {
	UploadID   string
	AssetID    uuid.UUID
	StorageKey string
}

type CompleteResult struct {
	AssetID    uuid.UUID
	StorageKey string
	SizeBytes  *int64
	Warnings   []error
}

type DeleteResult struct {
	Warnings []error
}

type DownloadOptions struct {
	// Attachment asks the store to serve the object with the original filename
	// as a download instead of inline.
	Attachment bool
}

func NewUploadCoordinator(store storage.ObjectStore, repo repository.AssetRepository, publisher events.Publisher, cfg CoordinatorConfig, l *logger.Logger) *UploadCoordinator {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if l == nil {
		l = logger.Nop()
	}
	if cfg.DefaultContentType == "" {
		cfg.DefaultContentType = "video/mp4"
	}
	if cfg.PartURLTTL <= 0 {
		cfg.PartURLTTL = time.Hour
	}
	if cfg.ReadURLTTL <= 0 {
		cfg.ReadURLTTL = time.Hour
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &UploadCoordinator{
		store:     store,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    l,
		now:       time.Now,
	}
}

func (c *UploadCoordinator) InitiateUpload(ctx context.Context, input InitiateInput) (InitiateResult, error) {
	filename := strings.TrimSpace(input.Filename)
	if filename == "" || asset.SanitizeFilename(filename) == "" {
		return InitiateResult{}, fmt.Errorf("%w: filename is required", apperrors.ErrInvalidInput)
	}
	if utf8.RuneCountInString(filename) > asset.MaxFilenameLength {
		return InitiateResult{}, fmt.Errorf("%w: filename longer than %d characters", apperrors.ErrInvalidInput, asset.MaxFilenameLength)
	}
	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = c.cfg.DefaultContentType
	}

	id := uuid.New()
	key := asset.BuildStorageKey(id, filename)
	if utf8.RuneCountInString(key) > asset.MaxStorageKeyLength {
		return InitiateResult{}, fmt.Errorf("%w: storage key longer than %d characters", apperrors.ErrInvalidInput, asset.MaxStorageKeyLength)
	}

	// CreateSession is not idempotent, so it is called exactly once.
	sctx, cancel := c.storeContext(ctx)
	uploadID, err := c.store.CreateSession(sctx, key, contentType)
	cancel()
	if err != nil {
		return InitiateResult{}, upstreamError("create upload session", err)
	}

	record := asset.Asset{
		ID:               id,
		OwnerID:          input.OwnerID,
		OriginalFilename: filename,
		StorageKey:       key,
		UploadID:         uploadID,
		ContentType:      contentType,
		Status:           asset.StatusUploading,
		CreatedAt:        c.now().UTC(),
	}
	if err := c.repo.Create(ctx, &record); err != nil {
		c.releaseSession(ctx, record)
		return InitiateResult{}, fmt.Errorf("persist asset %s: %w", id, errors.Join(apperrors.ErrRegistryWrite, err))
	}

	c.logger.WithContext(ctx).Info("upload initiated",
		zap.String("asset_id", id.String()),
		zap.String("upload_id", uploadID),
		zap.String("storage_key", key),
	)

	return InitiateResult{UploadID: uploadID, AssetID: id, StorageKey: key}, nil
}

func (c *UploadCoordinator) RequestPartURL(ctx context.Context, assetID uuid.UUID, uploadID string, partNumber int32) (string, error) {
	if partNumber < asset.MinPartNumber || partNumber > asset.MaxPartNumber {
		return "", fmt.Errorf("%w: part number must be between %d and %d", apperrors.ErrInvalidInput, asset.MinPartNumber, asset.MaxPartNumber)
	}
	record, err := c.activeUpload(ctx, assetID, uploadID)
	if err != nil {
		return "", err
	}

	sctx, cancel := c.storeContext(ctx)
	defer cancel()
	u, err := c.store.PartURL(sctx, record.StorageKey, record.UploadID, partNumber, c.cfg.PartURLTTL)
	if err != nil {
		return "", upstreamError("issue part url", err)
	}
	return u, nil
}

func (c *UploadCoordinator) CompleteUpload(ctx context.Context, assetID uuid.UUID, uploadID string, parts []asset.Part) (CompleteResult, error) {
	sorted, err := sortParts(parts)
	if err != nil {
		return CompleteResult{}, err
	}
	record, err := c.activeUpload(ctx, assetID, uploadID)
	if err != nil {
		return CompleteResult{}, err
	}
	log := c.logger.WithContext(ctx).With(
		zap.String("asset_id", record.ID.String()),
		zap.String("upload_id", record.UploadID),
		zap.String("storage_key", record.StorageKey),
	)

	// A rejection leaves the record uploading so the caller can resubmit.
	sctx, cancel := c.storeContext(ctx)
	_, err = c.store.Complete(sctx, record.StorageKey, record.UploadID, sorted)
	cancel()
	if err != nil {
		// An abort that committed meanwhile has already released the session.
		if current, getErr := c.repo.GetByID(ctx, record.ID); getErr == nil && current.Status != asset.StatusUploading {
			return CompleteResult{}, fmt.Errorf("%w: asset %s is %s", apperrors.ErrInvalidState, record.ID, current.Status)
		}
		return CompleteResult{}, upstreamError("complete upload", err)
	}

	var warnings []error
	var size *int64
	sctx, cancel = c.storeContext(ctx)
	info, err := c.store.Stat(sctx, record.StorageKey)
	cancel()
	if err != nil {
		log.Warn("object size unavailable after completion", zap.Error(err))
		warnings = append(warnings, fmt.Errorf("stat %s: %w", record.StorageKey, errors.Join(apperrors.ErrPartialFailure, err)))
	} else {
		size = &info.SizeBytes
	}

	completedAt := c.now().UTC()
	err = c.repo.UpdateStatus(ctx, record.ID, asset.StatusUploading, asset.StatusCompleted, repository.StatusChange{
		SizeBytes:   size,
		CompletedAt: &completedAt,
	})
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrNotFound):
		// Lost the race to a concurrent abort; the object is assembled but unreferenced.
		log.Error("object assembled for an asset that is no longer uploading", zap.Error(err))
		return CompleteResult{}, fmt.Errorf("%w: asset %s is no longer uploading", apperrors.ErrInvalidState, record.ID)
	default:
		log.Error("registry diverged from store: object completed but asset not marked completed", zap.Error(err))
		return CompleteResult{}, fmt.Errorf("mark asset %s completed: %w", record.ID, errors.Join(apperrors.ErrRegistryWrite, err))
	}

	record.Status = asset.StatusCompleted
	record.SizeBytes = size
	record.CompletedAt = &completedAt
	c.publish(ctx, events.EventTypeAssetCompleted, record)

	log.Info("upload completed", zap.Int("parts", len(sorted)))

	return CompleteResult{
		AssetID:    record.ID,
		StorageKey: record.StorageKey,
		SizeBytes:  size,
		Warnings:   warnings,
	}, nil
}

func (c *UploadCoordinator) AbortUpload(ctx context.Context, assetID uuid.UUID, uploadID string) error {
	record, err := c.getAsset(ctx, assetID)
	if err != nil {
		return err
	}
	if record.UploadID != uploadID {
		return fmt.Errorf("%w: upload id does not match asset %s", apperrors.ErrInvalidState, assetID)
	}
	switch record.Status {
	case asset.StatusFailed:
		return nil
	case asset.StatusCompleted:
		return fmt.Errorf("%w: asset %s is already completed", apperrors.ErrInvalidState, assetID)
	}

	err = c.repo.UpdateStatus(ctx, record.ID, asset.StatusUploading, asset.StatusFailed, repository.StatusChange{})
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("asset %s: %w", assetID, apperrors.ErrNotFound)
	case errors.Is(err, apperrors.ErrInvalidTransition):
		current, getErr := c.getAsset(ctx, assetID)
		if getErr != nil {
			return getErr
		}
		if current.Status == asset.StatusFailed {
			return nil
		}
		return fmt.Errorf("%w: asset %s is already %s", apperrors.ErrInvalidState, assetID, current.Status)
	default:
		return fmt.Errorf("mark asset %s failed: %w", assetID, errors.Join(apperrors.ErrRegistryWrite, err))
	}

	c.releaseSession(ctx, record)

	record.Status = asset.StatusFailed
	c.publish(ctx, events.EventTypeAssetFailed, record)
	return nil
}

func (c *UploadCoordinator) DeleteAsset(ctx context.Context, assetID uuid.UUID) (DeleteResult, error) {
	record, err := c.getAsset(ctx, assetID)
	if err != nil {
		return DeleteResult{}, err
	}
	if !record.Status.IsTerminal() {
		return DeleteResult{}, fmt.Errorf("%w: asset %s is still uploading", apperrors.ErrInvalidState, assetID)
	}

	var result DeleteResult
	sctx, cancel := c.storeContext(ctx)
	err = c.store.Delete(sctx, record.StorageKey)
	cancel()
	if err != nil {
		c.logger.WithContext(ctx).Warn("object delete failed, removing record anyway",
			zap.String("asset_id", record.ID.String()),
			zap.String("storage_key", record.StorageKey),
			zap.Error(err),
		)
		result.Warnings = append(result.Warnings, fmt.Errorf("delete object %s: %w", record.StorageKey, errors.Join(apperrors.ErrPartialFailure, err)))
	}

	if err := c.repo.Delete(ctx, record.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return DeleteResult{}, fmt.Errorf("asset %s: %w", assetID, apperrors.ErrNotFound)
		}
		return DeleteResult{}, fmt.Errorf("delete asset %s: %w", assetID, errors.Join(apperrors.ErrRegistryWrite, err))
	}

	c.publish(ctx, events.EventTypeAssetDeleted, record)
	return result, nil
}

func (c *UploadCoordinator) GenerateDownloadReference(ctx context.Context, assetID uuid.UUID, opts DownloadOptions) (string, error) {
	record, err := c.getAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	if record.Status != asset.StatusCompleted {
		return "", fmt.Errorf("%w: asset %s is %s", apperrors.ErrInvalidState, assetID, record.Status)
	}

	var hint string
	if opts.Attachment {
		hint = asset.SanitizeFilename(record.OriginalFilename)
	}
	sctx, cancel := c.storeContext(ctx)
	defer cancel()
	u, err := c.store.ReadURL(sctx, record.StorageKey, c.cfg.ReadURLTTL, hint)
	if err != nil {
		return "", upstreamError("issue read url", err)
	}
	return u, nil
}

func (c *UploadCoordinator) GetAsset(ctx context.Context, assetID uuid.UUID) (asset.Asset, error) {
	return c.getAsset(ctx, assetID)
}

// ListAssets returns the owner's assets, newest first. A nil owner lists unowned assets.
func (c *UploadCoordinator) ListAssets(ctx context.Context, ownerID *int64) ([]asset.Asset, error) {
	assets, err := c.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

func (c *UploadCoordinator) getAsset(ctx context.Context, assetID uuid.UUID) (asset.Asset, error) {
	record, err := c.repo.GetByID(ctx, assetID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return asset.Asset{}, fmt.Errorf("asset %s: %w", assetID, apperrors.ErrNotFound)
		}
		return asset.Asset{}, fmt.Errorf("load asset %s: %w", assetID, err)
	}
	return record, nil
}

// activeUpload loads the asset and checks the upload id still refers to a live session.
func (c *UploadCoordinator) activeUpload(ctx context.Context, assetID uuid.UUID, uploadID string) (asset.Asset, error) {
	record, err := c.getAsset(ctx, assetID)
	if err != nil {
		return asset.Asset{}, err
	}
	if record.Status != asset.StatusUploading {
		return asset.Asset{}, fmt.Errorf("%w: asset %s is %s", apperrors.ErrInvalidState, assetID, record.Status)
	}
	if record.UploadID != uploadID {
		return asset.Asset{}, fmt.Errorf("%w: upload id does not match asset %s", apperrors.ErrInvalidState, assetID)
	}
	return record, nil
}

// releaseSession aborts the store session best-effort. It survives caller
// cancellation since it runs after the registry has already been decided.
func (c *UploadCoordinator) releaseSession(ctx context.Context, record asset.Asset) {
	sctx, cancel := c.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := c.store.Abort(sctx, record.StorageKey, record.UploadID); err != nil {
		c.logger.WithContext(ctx).Warn("failed to abort upload session",
			zap.String("asset_id", record.ID.String()),
			zap.String("upload_id", record.UploadID),
			zap.String("storage_key", record.StorageKey),
			zap.Error(err),
		)
	}
}

// publish delivers the event best-effort. The transition has already committed,
// so delivery neither follows caller cancellation nor blocks past PublishTimeout.
func (c *UploadCoordinator) publish(ctx context.Context, eventType string, record asset.Asset) {
	env, err := events.NewAssetEnvelope(eventType, events.AssetPayload{
		AssetID:          record.ID.String(),
		OwnerID:          record.OwnerID,
		StorageKey:       record.StorageKey,
		OriginalFilename: record.OriginalFilename,
		ContentType:      record.ContentType,
		Status:           string(record.Status),
		SizeBytes:        record.SizeBytes,
		CompletedAt:      record.CompletedAt,
	})
	if err == nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.PublishTimeout)
		err = c.publisher.Publish(pctx, env)
		cancel()
	}
	if err != nil {
		c.logger.WithContext(ctx).Warn("failed to publish asset event",
			zap.String("event_type", eventType),
			zap.String("asset_id", record.ID.String()),
			zap.Error(err),
		)
	}
}

func (c *UploadCoordinator) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.StoreTimeout)
}

// sortParts validates the caller's part list and returns a copy sorted by part number.
func sortParts(parts []asset.Part) ([]asset.Part, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: at least one part is required", apperrors.ErrInvalidInput)
	}
	sorted := make([]asset.Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].PartNumber < sorted[j].PartNumber
	})
	for i, p := range sorted {
		if p.PartNumber < asset.MinPartNumber || p.PartNumber > asset.MaxPartNumber {
			return nil, fmt.Errorf("%w: part number %d out of range", apperrors.ErrInvalidInput, p.PartNumber)
		}
		if strings.TrimSpace(p.ETag) == "" {
			return nil, fmt.Errorf("%w: part %d has no etag", apperrors.ErrInvalidInput, p.PartNumber)
		}
		if i > 0 && sorted[i-1].PartNumber == p.PartNumber {
			return nil, fmt.Errorf("%w: duplicate part number %d", apperrors.ErrInvalidInput, p.PartNumber)
		}
	}
	return sorted, nil
}

func upstreamError(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(apperrors.ErrUpstream, err))
}
