// Package metrics provides the shared Prometheus registry and run metric export
// for places-export. All metrics are defined in their respective packages
// (places, pagination, upload, cache) to keep those packages self-contained.
//
// This package documents the available metrics and pushes them to a
// Pushgateway at the end of a run.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry is the default Prometheus registry used by places-export.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// DefaultJob is the Pushgateway job name of an export run.
const DefaultJob = "places_export"

// Push sends every gathered metric to the Pushgateway at url, replacing
// earlier pushes of the same job and grouping.
func Push(ctx context.Context, url, job string, grouping map[string]string) error {
	return PushFrom(ctx, Gatherer, url, job, grouping)
}

// PushFrom is Push with an explicit gatherer.
func PushFrom(ctx context.Context, g prometheus.Gatherer, url, job string, grouping map[string]string) error {
	if url == "" {
		return fmt.Errorf("pushgateway url is required")
	}
	if job == "" {
		job = DefaultJob
	}

	pusher := push.New(url, job).Gatherer(g)
	for name, value := range grouping {
		pusher = pusher.Grouping(name, value)
	}

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/places):
//   - places_requests_total{kind, status} (Counter): Nearby Search requests by kind (query, token) and API status
//   - places_request_duration_seconds{kind} (Histogram): Call duration including retries
//   - places_errors_total{class} (Counter): Errors by class (client, server, quota, denied, invalid, token_pending, network, decode)
//
// Retry Metrics (pkg/places):
//   - places_retries_total{error_class} (Counter): Retry attempts by error class
//   - places_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - places_retry_exhausted_total{error_class} (Counter): Calls that exhausted max retries
//
// Pagination Metrics (pkg/pagination):
//   - places_pages_fetched_total (Counter): Pages received
//   - places_records_fetched_total (Counter): Records received
//   - places_fetch_sessions_total{outcome} (Counter): Fetch sessions by outcome (complete, truncated, failed)
//   - places_page_delay_seconds_total (Counter): Time spent waiting for page tokens
//
// Upload Metrics (pkg/upload):
//   - places_uploads_total{outcome} (Counter): Uploads by outcome (success, failed)
//   - places_upload_bytes (Histogram): Serialized document size
//   - places_buckets_created_total (Counter): Buckets created by the uploader
//
// Result Cache Metrics (pkg/cache):
//   - places_result_cache_hits_total (Counter): Cached result hits
//   - places_result_cache_misses_total (Counter): Cached result misses
//   - places_result_cache_stored_bytes (Gauge): Size of the last stored entry
//   - places_result_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Records per run
//   increase(places_records_fetched_total[1d])
//
//   # Failed sessions
//   places_fetch_sessions_total{outcome="failed"}
//
//   # Quota pressure
//   rate(places_errors_total{class="quota"}[1h])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(places_request_duration_seconds_bucket[5m]))
