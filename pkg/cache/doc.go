// Package cache stores aggregated search results in Redis.
//
// A fetch session for the same query (location, radius, keyword, place type,
// language) within the TTL can be answered from the cache instead of paging through the
// API again. Only complete results are cached, never single pages or results
// cut short by a page cap: page tokens are single-use and expire upstream.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Location:  places.Location{Latitude: 12.97, Longitude: 77.59},
//		Radius:    1500,
//		Keyword:   "Indian",
//		PlaceType: "restaurant",
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// run the fetch session, then:
//		_ = manager.Store(ctx, key, records, time.Hour)
//	}
//
// # Metrics
//
//   - places_result_cache_hits_total - Cache hits
//   - places_result_cache_misses_total - Cache misses
//   - places_result_cache_errors_total{operation} - Cache operation errors
//   - places_result_cache_stored_bytes - Size of the last stored entry
package cache
