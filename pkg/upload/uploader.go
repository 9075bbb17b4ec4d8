// Package upload serializes aggregated place records and writes them to an
// object-storage bucket.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Sternrassler/places-export/pkg/places"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for uploads.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "places_uploads_total",
		Help: "Total uploads by outcome",
	}, []string{"outcome"}) // "success", "failed"

	uploadBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "places_upload_bytes",
		Help:    "Size of uploaded payloads in bytes",
		Buckets: prometheus.ExponentialBuckets(256, 4, 8),
	})

	bucketsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "places_buckets_created_total",
		Help: "Total number of buckets created by the uploader",
	})
)

// ContentType of uploaded payloads.
const ContentType = "application/json"

// ObjectStore is the storage collaborator. *storage.MinIO implements it.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// Uploader writes record sets to an ObjectStore.
type Uploader struct {
	store  ObjectStore
	logger zerolog.Logger
}

// NewUploader creates a new uploader.
func NewUploader(store ObjectStore) *Uploader {
	if store == nil {
		panic("object store cannot be nil")
	}
	return &Uploader{
		store:  store,
		logger: log.With().Str("component", "result-uploader").Logger(),
	}
}

// Upload serializes records as a JSON array and writes it to bucket/key in one
// call, creating the bucket first if it does not exist. An existing object
// under key is overwritten. Failures are returned as *UploadError and not retried.
func (u *Uploader) Upload(ctx context.Context, records []places.PlaceRecord, bucket, key string) error {
	if bucket == "" || key == "" {
		return u.fail(&UploadError{Op: OpValidate, Bucket: bucket, Key: key, Err: fmt.Errorf("bucket and key are required")})
	}

	payload, err := Marshal(records)
	if err != nil {
		return u.fail(&UploadError{Op: OpSerialize, Bucket: bucket, Key: key, Err: err})
	}

	if err := u.ensureBucket(ctx, bucket); err != nil {
		return u.fail(&UploadError{Op: OpEnsureBucket, Bucket: bucket, Key: key, Err: err})
	}

	size := int64(len(payload))
	if err := u.store.PutObject(ctx, bucket, key, bytes.NewReader(payload), size, ContentType); err != nil {
		return u.fail(&UploadError{Op: OpPutObject, Bucket: bucket, Key: key, Err: err})
	}

	uploadsTotal.WithLabelValues("success").Inc()
	uploadBytes.Observe(float64(size))

	u.logger.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int("records", len(records)).
		Int64("bytes", size).
		Msg("Upload complete")

	return nil
}

// ensureBucket creates bucket if absent. A bucket that appears between the
// existence check and the create is not an error.
func (u *Uploader) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := u.store.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := u.store.MakeBucket(ctx, bucket); err != nil {
		if exists, checkErr := u.store.BucketExists(ctx, bucket); checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket: %w", err)
	}

	bucketsCreatedTotal.Inc()
	u.logger.Info().Str("bucket", bucket).Msg("Bucket created")
	return nil
}

func (u *Uploader) fail(err *UploadError) error {
	uploadsTotal.WithLabelValues("failed").Inc()
	u.logger.Error().
		Err(err.Err).
		Str("op", string(err.Op)).
		Str("bucket", err.Bucket).
		Str("key", err.Key).
		Msg("Upload failed")
	return err
}

// Marshal encodes records as a compact JSON array. A nil or empty slice
// encodes as "[]".
func Marshal(records []places.PlaceRecord) ([]byte, error) {
	if records == nil {
		records = []places.PlaceRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	return data, nil
}

// VersionedKey inserts a UTC timestamp before the extension of key, so that
// successive runs write distinct objects: "out/places.json" becomes
// "out/places-20240102T150405Z.json".
func VersionedKey(key string, t time.Time) string {
	stamp := t.UTC().Format("20060102T150405Z")
	dir, file := path.Split(key)
	ext := path.Ext(file)
	base := strings.TrimSuffix(file, ext)
	if base == "" {
		return dir + stamp + ext
	}
	return dir + base + "-" + stamp + ext
}
