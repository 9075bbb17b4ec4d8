package cache

import (
	"time"

	"github.com/Sternrassler/places-export/pkg/places"
)

// ResultEntry is a cached aggregated result.
type ResultEntry struct {
	// Records in fetch order
	Records []places.PlaceRecord `json:"records"`

	// Query is the cache key string the entry was stored under
	Query string `json:"query"`

	// CachedAt is when the result was stored
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the cache entry has expired.
func (e *ResultEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *ResultEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
