package cache

import (
	"strconv"
	"strings"

	"github.com/Sternrassler/places-export/pkg/places"
)

// CacheKey identifies the query behind a cached result.
type CacheKey struct {
	Location  places.Location
	Radius    int
	Keyword   string
	PlaceType string
	Language  string
}

// String generates a deterministic cache key string.
// Format: places:lat=<lat>:lng=<lng>:radius=<m>[:keyword=<kw>][:type=<type>][:lang=<code>]
//
// Example:
//
//	places:lat=12.97:lng=77.59:radius=1500:keyword=Indian:type=restaurant
func (k CacheKey) String() string {
	parts := []string{
		"places",
		"lat=" + strconv.FormatFloat(k.Location.Latitude, 'f', -1, 64),
		"lng=" + strconv.FormatFloat(k.Location.Longitude, 'f', -1, 64),
		"radius=" + strconv.Itoa(k.Radius),
	}

	if keyword := strings.TrimSpace(k.Keyword); keyword != "" {
		parts = append(parts, "keyword="+keyword)
	}
	if placeType := strings.TrimSpace(k.PlaceType); placeType != "" {
		parts = append(parts, "type="+placeType)
	}
	if language := strings.TrimSpace(k.Language); language != "" {
		parts = append(parts, "lang="+language)
	}

	return strings.Join(parts, ":")
}
