package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks result cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "places_result_cache_hits_total",
			Help: "Total number of result cache hits",
		},
	)

	// CacheMisses tracks result cache misses (missing or expired)
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "places_result_cache_misses_total",
			Help: "Total number of result cache misses",
		},
	)

	// StoredBytes tracks the size of the most recently stored entry
	StoredBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "places_result_cache_stored_bytes",
			Help: "Size in bytes of the most recently stored result entry",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "places_result_cache_errors_total",
			Help: "Total number of result cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
