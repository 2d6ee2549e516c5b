package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"oneclick-video/internal/domain/asset"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// MinIOClient talks to MinIO through the low-level Core API, which exposes the
// multipart primitives that minio.Client hides behind PutObject.
type MinIOClient struct {
	cfg  MinIOConfig
	core *minio.Core
}

var _ ObjectStore = (*MinIOClient)(nil)

func NewMinIOClient(ctx context.Context, cfg MinIOConfig) (*MinIOClient, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("minio endpoint and bucket are required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := core.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := core.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinIOClient{cfg: cfg, core: core}, nil
}

func (c *MinIOClient) CreateSession(ctx context.Context, key, contentType string) (string, error) {
	if key == "" {
		return "", newError("create_session", key, errors.New("object key is required"))
	}
	uploadID, err := c.core.NewMultipartUpload(ctx, c.cfg.Bucket, key, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", newError("create_session", key, err)
	}
	return uploadID, nil
}

func (c *MinIOClient) PartURL(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	if err := ValidatePartNumber(partNumber); err != nil {
		return "", newError("part_url", key, err)
	}
	params := url.Values{}
	params.Set("partNumber", strconv.Itoa(int(partNumber)))
	params.Set("uploadId", sessionID)

	u, err := c.core.Presign(ctx, http.MethodPut, c.cfg.Bucket, key, ttl, params)
	if err != nil {
		return "", newError("part_url", key, err)
	}
	return u.String(), nil
}

func (c *MinIOClient) Complete(ctx context.Context, key, sessionID string, sortedParts []asset.Part) (string, error) {
	if err := ValidateSortedParts(sortedParts); err != nil {
		return "", newError("complete", key, err)
	}
	parts := make([]minio.CompletePart, 0, len(sortedParts))
	for _, p := range sortedParts {
		parts = append(parts, minio.CompletePart{
			PartNumber: int(p.PartNumber),
			ETag:       p.ETag,
		})
	}
	if _, err := c.core.CompleteMultipartUpload(ctx, c.cfg.Bucket, key, sessionID, parts, minio.PutObjectOptions{}); err != nil {
		return "", newError("complete", key, err)
	}
	return "minio://" + c.cfg.Bucket + "/" + key, nil
}

func (c *MinIOClient) Abort(ctx context.Context, key, sessionID string) error {
	err := c.core.AbortMultipartUpload(ctx, c.cfg.Bucket, key, sessionID)
	if err != nil && isMinIONotFound(err) {
		return nil
	}
	return newError("abort", key, err)
}

func (c *MinIOClient) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := c.core.StatObject(ctx, c.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinIONotFound(err) {
			return ObjectInfo{}, newError("stat", key, ErrObjectNotFound)
		}
		return ObjectInfo{}, newError("stat", key, err)
	}
	return ObjectInfo{
		SizeBytes:    info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

func (c *MinIOClient) ReadURL(ctx context.Context, key string, ttl time.Duration, filenameHint string) (string, error) {
	params := url.Values{}
	if disposition := contentDisposition(filenameHint); disposition != "" {
		params.Set("response-content-disposition", disposition)
	}
	u, err := c.core.PresignedGetObject(ctx, c.cfg.Bucket, key, ttl, params)
	if err != nil {
		return "", newError("read_url", key, err)
	}
	return u.String(), nil
}

func (c *MinIOClient) Delete(ctx context.Context, key string) error {
	err := c.core.RemoveObject(ctx, c.cfg.Bucket, key, minio.RemoveObjectOptions{})
	if err != nil && isMinIONotFound(err) {
		return nil
	}
	return newError("delete", key, err)
}

func isMinIONotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchUpload", "NoSuchKey", "NotFound":
		return true
	}
	return false
}
