package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/places-export/pkg/places"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for fetch sessions.
var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "places_pages_fetched_total",
		Help: "Total number of result pages fetched",
	})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "places_records_fetched_total",
		Help: "Total number of place records fetched",
	})

	fetchSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "places_fetch_sessions_total",
		Help: "Total fetch sessions by outcome",
	}, []string{"outcome"}) // "complete", "truncated", "failed"

	pageDelaySeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "places_page_delay_seconds_total",
		Help: "Total time spent waiting for page tokens to become valid",
	})
)

// Session outcomes.
const (
	OutcomeComplete  = "complete"
	OutcomeTruncated = "truncated"
	OutcomeFailed    = "failed"
)

// Config holds fetcher configuration.
type Config struct {
	// PageDelay is the fixed wait before every request after the first.
	PageDelay time.Duration

	// MaxPages stops the session after this many pages. Zero means unbounded.
	MaxPages int

	// SessionTimeout bounds the whole session. Zero means no timeout.
	SessionTimeout time.Duration
}

// DefaultConfig returns the default configuration: 2s between pages, no page cap, no timeout.
func DefaultConfig() Config {
	return Config{
		PageDelay: 2 * time.Second,
	}
}

// Searcher is the search collaborator the fetcher pages through.
// *places.Client implements it.
type Searcher interface {
	Search(ctx context.Context, req places.SearchRequest) (*places.SearchResponse, error)
}

// WaitFunc suspends for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Fetcher aggregates every page of a Nearby Search session.
type Fetcher struct {
	searcher Searcher
	config   Config
	wait     WaitFunc
}

// NewFetcher creates a new fetcher.
func NewFetcher(searcher Searcher, config Config) *Fetcher {
	if searcher == nil {
		panic("searcher cannot be nil")
	}
	if config.PageDelay < 0 {
		config.PageDelay = 0
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &Fetcher{
		searcher: searcher,
		config:   config,
		wait:     waitTimer,
	}
}

// SetWaitFunc replaces the inter-page wait (for testing).
func (f *Fetcher) SetWaitFunc(wait WaitFunc) {
	if wait == nil {
		wait = waitTimer
	}
	f.wait = wait
}

// Result is the outcome of a successful session.
type Result struct {
	// Records in page order.
	Records []places.PlaceRecord

	// Pages is the number of pages fetched.
	Pages int

	// Truncated is set when MaxPages stopped the session before the last page.
	Truncated bool
}

// FetchAll runs one session and returns every record in page order.
// Any search error aborts the session; records already collected are discarded
// and a *FetchError is returned.
func (f *Fetcher) FetchAll(ctx context.Context, location places.Location, radius int, keyword string) ([]places.PlaceRecord, error) {
	result, err := f.Fetch(ctx, location, radius, keyword)
	if err != nil {
		return nil, err
	}
	return result.Records, nil
}

// Fetch is FetchAll reporting the session outcome alongside the records.
func (f *Fetcher) Fetch(ctx context.Context, location places.Location, radius int, keyword string) (*Result, error) {
	start := time.Now()

	if f.config.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.SessionTimeout)
		defer cancel()
	}

	logger := log.With().
		Str("component", "paged-fetcher").
		Str("keyword", keyword).
		Str("location", location.String()).
		Int("radius", radius).
		Logger()

	logger.Info().Msg("Starting fetch session")

	req := places.SearchRequest{
		Location: location,
		Radius:   radius,
		Keyword:  keyword,
	}

	records := make([]places.PlaceRecord, 0)
	for page := 1; ; page++ {
		if page > 1 {
			if err := f.wait(ctx, f.config.PageDelay); err != nil {
				fetchSessionsTotal.WithLabelValues(OutcomeFailed).Inc()
				return nil, &FetchError{Page: page, Records: len(records), Err: err}
			}
			pageDelaySeconds.Add(f.config.PageDelay.Seconds())
		}

		resp, err := f.searcher.Search(ctx, req)
		if err != nil {
			fetchSessionsTotal.WithLabelValues(OutcomeFailed).Inc()
			logger.Error().
				Err(err).
				Int("page", page).
				Int("discarded_records", len(records)).
				Msg("Page fetch failed, aborting session")
			return nil, &FetchError{Page: page, Records: len(records), Err: err}
		}
		if resp == nil {
			fetchSessionsTotal.WithLabelValues(OutcomeFailed).Inc()
			return nil, &FetchError{Page: page, Records: len(records), Err: fmt.Errorf("nil response")}
		}

		records = append(records, resp.Records...)
		pagesFetchedTotal.Inc()
		recordsFetchedTotal.Add(float64(len(resp.Records)))

		logger.Debug().
			Int("page", page).
			Int("page_records", len(resp.Records)).
			Int("records", len(records)).
			Bool("has_next", resp.NextPageToken != "").
			Msg("Page fetched")

		if resp.NextPageToken == "" {
			fetchSessionsTotal.WithLabelValues(OutcomeComplete).Inc()
			logger.Info().
				Int("pages", page).
				Int("records", len(records)).
				Dur("duration", time.Since(start)).
				Msg("Fetch complete")
			return &Result{Records: records, Pages: page}, nil
		}

		if f.config.MaxPages > 0 && page >= f.config.MaxPages {
			fetchSessionsTotal.WithLabelValues(OutcomeTruncated).Inc()
			logger.Warn().
				Int("pages", page).
				Int("max_pages", f.config.MaxPages).
				Int("records", len(records)).
				Msg("Page limit reached, more results available upstream")
			return &Result{Records: records, Pages: page, Truncated: true}, nil
		}

		// the token replaces the original filters on every follow-up call
		req = places.SearchRequest{PageToken: resp.NextPageToken}
	}
}

// waitTimer blocks for d unless ctx is done first.
func waitTimer(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
