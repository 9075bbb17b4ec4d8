// Package export runs one fetch-then-upload pass: every page of a Nearby
// Search session is aggregated and the result is written to the object store
// as a single JSON document.
package export

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/places-export/pkg/cache"
	"github.com/Sternrassler/places-export/pkg/logging"
	"github.com/Sternrassler/places-export/pkg/pagination"
	"github.com/Sternrassler/places-export/pkg/places"
	"github.com/Sternrassler/places-export/pkg/upload"
	"github.com/rs/zerolog"
)

// State is the pipeline position of a run.
type State int

const (
	StateNotStarted State = iota
	StateFetching
	StateFetched
	StateFetchFailed
	StateUploading
	StateDone
	StateUploadFailed
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateFetching:
		return "fetching"
	case StateFetched:
		return "fetched"
	case StateFetchFailed:
		return "fetch_failed"
	case StateUploading:
		return "uploading"
	case StateDone:
		return "done"
	case StateUploadFailed:
		return "upload_failed"
	default:
		return "unknown"
	}
}

// Fetcher aggregates all pages of a query. *pagination.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, location places.Location, radius int, keyword string) (*pagination.Result, error)
}

// Uploader persists records. *upload.Uploader implements it.
type Uploader interface {
	Upload(ctx context.Context, records []places.PlaceRecord, bucket, key string) error
}

// ResultCache stores complete results per query. *cache.Manager implements it.
type ResultCache interface {
	Get(ctx context.Context, key cache.CacheKey) (*cache.ResultEntry, error)
	Store(ctx context.Context, key cache.CacheKey, records []places.PlaceRecord, ttl time.Duration) error
}

// Job is one export run.
type Job struct {
	Location places.Location
	Radius   int
	Keyword  string

	// PlaceType and Language only distinguish cache entries; the search
	// client applies them to requests.
	PlaceType string
	Language  string

	Bucket string
	Key    string

	// VersionKey writes to a timestamped key instead of overwriting Key.
	VersionKey bool
}

// Report is the outcome of a run.
type Report struct {
	State     State
	Records   int
	Bucket    string
	Key       string
	FromCache bool

	// Truncated is set when the page cap stopped the fetch early.
	Truncated bool
	Duration  time.Duration
}

// Runner wires the fetcher, the uploader and an optional result cache.
type Runner struct {
	fetcher  Fetcher
	uploader Uploader
	cache    ResultCache
	cacheTTL time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// NewRunner creates a runner without a result cache.
func NewRunner(fetcher Fetcher, uploader Uploader) *Runner {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if uploader == nil {
		panic("uploader cannot be nil")
	}

	return &Runner{
		fetcher:  fetcher,
		uploader: uploader,
		now:      time.Now,
		logger:   logging.NewLogger("export"),
	}
}

// SetCache enables the result cache. A nil cache or a non-positive ttl disables it.
func (r *Runner) SetCache(c ResultCache, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		r.cache = nil
		r.cacheTTL = 0
		return
	}
	r.cache = c
	r.cacheTTL = ttl
}

// SetClock replaces the clock used for versioned keys (for testing).
func (r *Runner) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	r.now = now
}

// Run fetches every page of the job's query and uploads the aggregate.
// The returned Report is never nil. The error is the fetcher's error when the
// fetch fails (nothing is uploaded) or the uploader's error when the upload fails.
func (r *Runner) Run(ctx context.Context, job Job) (*Report, error) {
	start := time.Now()

	key := job.Key
	if job.VersionKey {
		key = upload.VersionedKey(key, r.now())
	}

	report := &Report{
		State:  StateNotStarted,
		Bucket: job.Bucket,
		Key:    key,
	}
	logger := r.logger.With().
		Str("keyword", job.Keyword).
		Str("bucket", job.Bucket).
		Str("key", key).
		Logger()

	cacheKey := cache.CacheKey{
		Location:  job.Location,
		Radius:    job.Radius,
		Keyword:   job.Keyword,
		PlaceType: job.PlaceType,
		Language:  job.Language,
	}

	report.State = StateFetching
	records, fromCache := r.cached(ctx, cacheKey, logger)
	if !fromCache {
		result, err := r.fetcher.Fetch(ctx, job.Location, job.Radius, job.Keyword)
		if err != nil {
			report.State = StateFetchFailed
			report.Duration = time.Since(start)
			if places.IsContextError(err) {
				logger.Warn().Err(err).Msg("Fetch interrupted, nothing uploaded")
			} else {
				logger.Error().Err(err).Msg("Fetch failed, nothing uploaded")
			}
			return report, err
		}
		records = result.Records
		report.Truncated = result.Truncated
		// a capped result must not answer later uncapped runs
		if !result.Truncated {
			r.remember(ctx, cacheKey, records, logger)
		}
	}
	report.State = StateFetched
	report.Records = len(records)
	report.FromCache = fromCache

	report.State = StateUploading
	if err := r.uploader.Upload(ctx, records, job.Bucket, key); err != nil {
		report.State = StateUploadFailed
		report.Duration = time.Since(start)
		logger.Error().Err(err).Int("records", len(records)).Msg("Upload failed")
		return report, err
	}

	report.State = StateDone
	report.Duration = time.Since(start)
	logger.Info().
		Int("records", report.Records).
		Bool("from_cache", fromCache).
		Dur("duration", report.Duration).
		Msg("Export complete")

	return report, nil
}

// cached returns a stored result for key. Cache failures count as misses.
func (r *Runner) cached(ctx context.Context, key cache.CacheKey, logger zerolog.Logger) ([]places.PlaceRecord, bool) {
	if r.cache == nil {
		return nil, false
	}

	entry, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("Result cache read failed, fetching")
		}
		return nil, false
	}
	if entry == nil || entry.IsExpired() {
		return nil, false
	}

	logger.Info().Int("records", len(entry.Records)).Msg("Using cached result")
	return entry.Records, true
}

// remember stores a fetched result. Failures are logged and ignored.
func (r *Runner) remember(ctx context.Context, key cache.CacheKey, records []places.PlaceRecord, logger zerolog.Logger) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Store(ctx, key, records, r.cacheTTL); err != nil {
		logger.Warn().Err(err).Msg("Result cache write failed")
	}
}
