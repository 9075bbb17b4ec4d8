// Package pagination drives token-paginated Nearby Search sessions.
//
// The API returns at most one page per call plus an opaque next_page_token.
// A token is not usable the moment it is issued, so the fetcher waits a fixed
// PageDelay before each follow-up request. Follow-up requests carry only the
// token; the original filters are encoded in it server-side.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(placesClient, pagination.DefaultConfig())
//	records, err := fetcher.FetchAll(ctx, places.Location{Latitude: 12.97, Longitude: 77.59}, 1500, "Indian")
//
// The fetcher:
//   - Issues the query request, then one token request per further page
//   - Appends records in page order, then within-page order (no dedup, no sorting)
//   - Aborts on the first search error and discards pages already collected
//   - Optionally stops after MaxPages (Fetch reports it as Result.Truncated)
//     or when SessionTimeout elapses
package pagination
