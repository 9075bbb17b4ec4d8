// Package storage adapts an S3-compatible object store (MinIO, AWS S3, GCS
// interop) to the bucket-exists, create-bucket and put-object operations the
// uploader needs.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds object store connection settings.
type Config struct {
	// Endpoint is host[:port] without scheme, e.g. "play.min.io" or "localhost:9000".
	Endpoint  string
	AccessKey string
	SecretKey string

	// UseSSL selects https.
	UseSSL bool

	// Region is used when creating buckets. Optional.
	Region string
}

// MinIO is an object store backed by minio-go.
type MinIO struct {
	client *minio.Client
	region string
	logger zerolog.Logger
}

// New creates a new MinIO adapter.
func New(cfg Config) (*MinIO, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("storage access key and secret key are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &MinIO{
		client: client,
		region: cfg.Region,
		logger: log.With().Str("component", "object-store").Str("endpoint", cfg.Endpoint).Logger(),
	}, nil
}

// BucketExists reports whether bucket exists.
func (m *MinIO) BucketExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, fmt.Errorf("bucket exists %q: %w", bucket, err)
	}
	return exists, nil
}

// MakeBucket creates bucket. A bucket we already own counts as created.
func (m *MinIO) MakeBucket(ctx context.Context, bucket string) error {
	err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.region})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
		m.logger.Debug().Str("bucket", bucket).Msg("Bucket already owned")
		return nil
	}
	return fmt.Errorf("make bucket %q: %w", bucket, err)
}

// PutObject writes size bytes from r to bucket/key in a single request.
func (m *MinIO) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	info, err := m.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}

	m.logger.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", info.Size).
		Str("etag", info.ETag).
		Msg("Object written")
	return nil
}

// Ping verifies the endpoint and credentials by listing buckets.
func (m *MinIO) Ping(ctx context.Context) error {
	if _, err := m.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("storage ping: %w", err)
	}
	return nil
}
