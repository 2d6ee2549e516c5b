package storage

import (
	"context"
	"errors"
	"time"

	"oneclick-video/internal/domain/asset"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

// s3API is the subset of *s3.Client used here.
type s3API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the subset of *s3.PresignClient used here.
type presignAPI interface {
	PresignUploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Client struct {
	cfg     S3Config
	s3      s3API
	presign presignAPI
}

var _ ObjectStore = (*S3Client)(nil)

func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	if cfg.Region == "" || cfg.Bucket == "" {
		return nil, errors.New("s3 region and bucket are required")
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewS3ClientFromConfig(awsCfg, cfg), nil
}

// NewS3ClientFromConfig builds the client from an already resolved aws.Config.
// A custom endpoint switches to path-style addressing for S3-compatible stores.
func NewS3ClientFromConfig(awsCfg aws.Config, cfg S3Config) *S3Client {
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Client{
		cfg:     cfg,
		s3:      s3Client,
		presign: s3.NewPresignClient(s3Client),
	}
}

func (c *S3Client) CreateSession(ctx context.Context, key, contentType string) (string, error) {
	if key == "" {
		return "", newError("create_session", key, errors.New("object key is required"))
	}
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	out, err := c.s3.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", newError("create_session", key, err)
	}
	if out.UploadId == nil || *out.UploadId == "" {
		return "", newError("create_session", key, errors.New("store returned empty upload id"))
	}
	return *out.UploadId, nil
}

func (c *S3Client) PartURL(ctx context.Context, key, sessionID string, partNumber int32, ttl time.Duration) (string, error) {
	if err := ValidatePartNumber(partNumber); err != nil {
		return "", newError("part_url", key, err)
	}
	presigned, err := c.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.cfg.Bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(sessionID),
		PartNumber: aws.Int32(partNumber),
	}, func(po *s3.PresignOptions) {
		if ttl > 0 {
			po.Expires = ttl
		}
	})
	if err != nil {
		return "", newError("part_url", key, err)
	}
	return presigned.URL, nil
}

func (c *S3Client) Complete(ctx context.Context, key, sessionID string, sortedParts []asset.Part) (string, error) {
	if err := ValidateSortedParts(sortedParts); err != nil {
		return "", newError("complete", key, err)
	}
	completed := make([]types.CompletedPart, 0, len(sortedParts))
	for _, p := range sortedParts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		})
	}
	_, err := c.s3.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return "", newError("complete", key, err)
	}
	return "s3://" + c.cfg.Bucket + "/" + key, nil
}

func (c *S3Client) Abort(ctx context.Context, key, sessionID string) error {
	_, err := c.s3.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(key),
		UploadId: aws.String(sessionID),
	})
	if err != nil && isS3NotFound(err) {
		return nil
	}
	return newError("abort", key, err)
}

func (c *S3Client) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	out, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return ObjectInfo{}, newError("stat", key, ErrObjectNotFound)
		}
		return ObjectInfo{}, newError("stat", key, err)
	}
	return ObjectInfo{
		SizeBytes:    aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         aws.ToString(out.ETag),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

func (c *S3Client) ReadURL(ctx context.Context, key string, ttl time.Duration, filenameHint string) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	}
	if disposition := contentDisposition(filenameHint); disposition != "" {
		input.ResponseContentDisposition = aws.String(disposition)
	}
	presigned, err := c.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", newError("read_url", key, err)
	}
	return presigned.URL, nil
}

func (c *S3Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil && isS3NotFound(err) {
		return nil
	}
	return newError("delete", key, err)
}

func isS3NotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchUpload", "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
