// Package main provides the places-export command: it pages through a Nearby
// Search query and uploads the aggregated places to an object store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/places-export/pkg/cache"
	"github.com/Sternrassler/places-export/pkg/config"
	"github.com/Sternrassler/places-export/pkg/export"
	"github.com/Sternrassler/places-export/pkg/logging"
	"github.com/Sternrassler/places-export/pkg/metrics"
	"github.com/Sternrassler/places-export/pkg/pagination"
	"github.com/Sternrassler/places-export/pkg/places"
	"github.com/Sternrassler/places-export/pkg/storage"
	"github.com/Sternrassler/places-export/pkg/upload"
)

// exitError carries the process exit code of a failed run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func setupError(format string, args ...any) error {
	return &exitError{code: export.ExitSetupFailed, err: fmt.Errorf(format, args...)}
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return export.ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// flag parsing and other cobra errors
	return export.ExitSetupFailed
}

// deps are the collaborators the command builds from configuration.
type deps struct {
	newStore func(cfg storage.Config) (upload.ObjectStore, error)
	newCache func(ctx context.Context, redisURL string) (export.ResultCache, func(), error)
	push     func(ctx context.Context, url, job string, grouping map[string]string) error
	stderr   io.Writer
}

func defaultDeps() deps {
	return deps{
		newStore: func(cfg storage.Config) (upload.ObjectStore, error) {
			return storage.New(cfg)
		},
		newCache: newRedisCache,
		push:     metrics.Push,
		stderr:   os.Stderr,
	}
}

// newRedisCache connects to redisURL and returns the result cache.
func newRedisCache(ctx context.Context, redisURL string) (export.ResultCache, func(), error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	return cache.NewManager(client), func() { client.Close() }, nil
}

// pinger is implemented by stores that can verify endpoint and credentials
// before a run; *storage.MinIO does.
type pinger interface {
	Ping(ctx context.Context) error
}

// flagValues are command-line overrides of the environment configuration.
type flagValues struct {
	lat, lng   float64
	radius     int
	keyword    string
	placeType  string
	bucket     string
	key        string
	versionKey bool
	maxPages   int
	pageDelay  string
	logLevel   string
	pretty     bool
	noCache    bool
}

func newRootCmd(d deps) *cobra.Command {
	var fv flagValues

	cmd := &cobra.Command{
		Use:   "places-export",
		Short: "Export Nearby Search results to object storage",
		Long: `Fetches every result page of a Nearby Search query, keeps name, address,
rating and operational status of each place, and uploads the aggregate as one
JSON array to an S3-compatible bucket.

Configuration is read from the environment (and a .env file if present).
Command-line flags override environment values.

Exit codes: 0 uploaded, 1 fetch failed, 2 upload failed, 3 configuration or setup error.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return setupError("load config: %w", err)
			}
			if err := applyFlags(cmd, &fv, &cfg); err != nil {
				return setupError("%w", err)
			}
			if err := cfg.Validate(); err != nil {
				return setupError("invalid config: %w", err)
			}

			logCfg := cfg.Logging()
			logCfg.Output = d.stderr
			logger := logging.Setup(logCfg)

			return run(cmd.Context(), cfg, fv.noCache, d, logger)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&fv.lat, "lat", 0, "Search latitude (overrides SEARCH_LATITUDE)")
	f.Float64Var(&fv.lng, "lng", 0, "Search longitude (overrides SEARCH_LONGITUDE)")
	f.IntVarP(&fv.radius, "radius", "r", 0, "Search radius in meters (overrides SEARCH_RADIUS)")
	f.StringVarP(&fv.keyword, "keyword", "k", "", "Search keyword (overrides SEARCH_KEYWORD)")
	f.StringVar(&fv.placeType, "type", "", "Place type filter (overrides PLACES_TYPE)")
	f.StringVarP(&fv.bucket, "bucket", "b", "", "Target bucket (overrides STORAGE_BUCKET)")
	f.StringVar(&fv.key, "key", "", "Target object key (overrides STORAGE_OBJECT_KEY)")
	f.BoolVar(&fv.versionKey, "version-key", false, "Write to a timestamped key instead of overwriting")
	f.IntVar(&fv.maxPages, "max-pages", 0, "Stop after this many pages, 0 for all (overrides MAX_PAGES)")
	f.StringVar(&fv.pageDelay, "page-delay", "", "Wait between pages, e.g. 2s (overrides PAGE_DELAY)")
	f.StringVar(&fv.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	f.BoolVar(&fv.pretty, "pretty", false, "Human-readable log output (overrides LOG_PRETTY)")
	f.BoolVar(&fv.noCache, "no-cache", false, "Skip the result cache even when REDIS_URL is set")

	return cmd
}

// applyFlags copies explicitly set flags over cfg.
func applyFlags(cmd *cobra.Command, fv *flagValues, cfg *config.Config) error {
	f := cmd.Flags()

	latSet, lngSet := f.Changed("lat"), f.Changed("lng")
	switch {
	case latSet && lngSet:
		cfg.SetLocation(fv.lat, fv.lng)
	case latSet || lngSet:
		return fmt.Errorf("--lat and --lng must be given together")
	}

	if f.Changed("radius") {
		cfg.Search.Radius = fv.radius
	}
	if f.Changed("keyword") {
		cfg.Search.Keyword = fv.keyword
	}
	if f.Changed("type") {
		cfg.Places.PlaceType = fv.placeType
	}
	if f.Changed("bucket") {
		cfg.Storage.Bucket = fv.bucket
	}
	if f.Changed("key") {
		cfg.Storage.ObjectKey = fv.key
	}
	if f.Changed("version-key") {
		cfg.Storage.VersionKeys = fv.versionKey
	}
	if f.Changed("max-pages") {
		cfg.Fetch.MaxPages = fv.maxPages
	}
	if f.Changed("page-delay") {
		d, err := time.ParseDuration(fv.pageDelay)
		if err != nil {
			return fmt.Errorf("--page-delay: %w", err)
		}
		cfg.Fetch.PageDelay = d
	}
	if f.Changed("log-level") {
		cfg.Log.Level = fv.logLevel
	}
	if f.Changed("pretty") {
		cfg.Log.Pretty = fv.pretty
	}
	return nil
}

// run builds the pipeline from cfg and executes one export.
func run(ctx context.Context, cfg config.Config, noCache bool, d deps, logger zerolog.Logger) error {
	client, err := places.New(cfg.PlacesClient())
	if err != nil {
		return setupError("create places client: %w", err)
	}

	store, err := d.newStore(cfg.ObjectStore())
	if err != nil {
		return setupError("create object store: %w", err)
	}
	if p, ok := store.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return setupError("object store unreachable: %w", err)
		}
	}

	runner := export.NewRunner(
		pagination.NewFetcher(client, cfg.Fetcher()),
		upload.NewUploader(store),
	)

	if cfg.Cache.RedisURL != "" && !noCache {
		resultCache, closeCache, err := d.newCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("Result cache unavailable, continuing without it")
		} else {
			defer closeCache()
			runner.SetCache(resultCache, cfg.Cache.TTL)
		}
	}

	job := export.Job{
		Location:   cfg.Location(),
		Radius:     cfg.Search.Radius,
		Keyword:    cfg.Search.Keyword,
		PlaceType:  cfg.Places.PlaceType,
		Language:   cfg.Places.Language,
		Bucket:     cfg.Storage.Bucket,
		Key:        cfg.Storage.ObjectKey,
		VersionKey: cfg.Storage.VersionKeys,
	}

	report, runErr := runner.Run(ctx, job)

	if cfg.PushgatewayURL != "" {
		grouping := map[string]string{}
		if job.Keyword != "" {
			grouping["keyword"] = job.Keyword
		}
		if err := d.push(ctx, cfg.PushgatewayURL, metrics.DefaultJob, grouping); err != nil {
			logger.Warn().Err(err).Msg("Metrics push failed")
		}
	}

	if runErr != nil {
		return &exitError{code: report.ExitCode(), err: runErr}
	}

	logger.Info().
		Str("bucket", report.Bucket).
		Str("key", report.Key).
		Int("records", report.Records).
		Msg("Places exported")
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd(defaultDeps()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}
