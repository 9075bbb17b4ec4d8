// Package config loads places-export settings from the environment.
//
// Values come from process environment variables; the CLI loads a .env file
// into the environment first when one exists. Command-line flags override
// loaded values before Validate runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/places-export/pkg/logging"
	"github.com/Sternrassler/places-export/pkg/pagination"
	"github.com/Sternrassler/places-export/pkg/places"
	"github.com/Sternrassler/places-export/pkg/storage"
)

// Config holds every setting of a run.
type Config struct {
	Places  PlacesConfig
	Search  SearchConfig
	Fetch   FetchConfig
	Storage StorageConfig
	Cache   CacheConfig
	Log     LogConfig

	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string
}

// PlacesConfig holds search API settings.
type PlacesConfig struct {
	APIKey            string // PLACES_API_KEY, required
	BaseURL           string // PLACES_BASE_URL
	PlaceType         string // PLACES_TYPE, default: restaurant
	Language          string // PLACES_LANGUAGE
	RequestsPerSecond int    // PLACES_RPS, default: 10
	MaxRetries        int    // PLACES_MAX_RETRIES, default: per error class
}

// SearchConfig holds the query of a run.
type SearchConfig struct {
	Latitude    float64 // SEARCH_LATITUDE
	Longitude   float64 // SEARCH_LONGITUDE
	HasLocation bool    // both coordinates supplied
	Radius      int     // SEARCH_RADIUS, default: 1500
	Keyword     string  // SEARCH_KEYWORD
}

// FetchConfig holds pagination settings.
type FetchConfig struct {
	PageDelay      time.Duration // PAGE_DELAY, default: 2s
	MaxPages       int           // MAX_PAGES, default: 0 (unbounded)
	SessionTimeout time.Duration // SESSION_TIMEOUT, default: 0 (none)
}

// StorageConfig holds object store settings.
type StorageConfig struct {
	Endpoint    string // STORAGE_ENDPOINT, required
	AccessKey   string // STORAGE_ACCESS_KEY, required
	SecretKey   string // STORAGE_SECRET_KEY, required
	UseSSL      bool   // STORAGE_USE_SSL, default: true
	Region      string // STORAGE_REGION
	Bucket      string // STORAGE_BUCKET, required
	ObjectKey   string // STORAGE_OBJECT_KEY, default: places.json
	VersionKeys bool   // STORAGE_VERSION_KEYS, default: false (overwrite)
}

// CacheConfig holds result cache settings. The cache is off without RedisURL.
type CacheConfig struct {
	RedisURL string        // REDIS_URL, e.g. redis://localhost:6379/0
	TTL      time.Duration // CACHE_TTL, default: 1h
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // LOG_LEVEL, default: info
	Pretty bool   // LOG_PRETTY
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Places: PlacesConfig{
			BaseURL:           places.DefaultBaseURL,
			PlaceType:         "restaurant",
			RequestsPerSecond: 10,
		},
		Search: SearchConfig{
			Radius: 1500,
		},
		Fetch: FetchConfig{
			PageDelay: 2 * time.Second,
		},
		Storage: StorageConfig{
			UseSSL:    true,
			ObjectKey: "places.json",
		},
		Cache: CacheConfig{
			TTL: time.Hour,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
	}
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom reads the configuration through lookup, starting from Default.
// Malformed values are reported together; missing values keep their defaults.
func LoadFrom(lookup LookupFunc) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.str("PLACES_API_KEY", &cfg.Places.APIKey)
	p.str("PLACES_BASE_URL", &cfg.Places.BaseURL)
	p.str("PLACES_TYPE", &cfg.Places.PlaceType)
	p.str("PLACES_LANGUAGE", &cfg.Places.Language)
	p.int("PLACES_RPS", &cfg.Places.RequestsPerSecond)
	p.int("PLACES_MAX_RETRIES", &cfg.Places.MaxRetries)

	latSet := p.float("SEARCH_LATITUDE", &cfg.Search.Latitude)
	lngSet := p.float("SEARCH_LONGITUDE", &cfg.Search.Longitude)
	cfg.Search.HasLocation = latSet && lngSet
	p.int("SEARCH_RADIUS", &cfg.Search.Radius)
	p.str("SEARCH_KEYWORD", &cfg.Search.Keyword)

	p.duration("PAGE_DELAY", &cfg.Fetch.PageDelay)
	p.int("MAX_PAGES", &cfg.Fetch.MaxPages)
	p.duration("SESSION_TIMEOUT", &cfg.Fetch.SessionTimeout)

	p.str("STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	p.str("STORAGE_ACCESS_KEY", &cfg.Storage.AccessKey)
	p.str("STORAGE_SECRET_KEY", &cfg.Storage.SecretKey)
	p.bool("STORAGE_USE_SSL", &cfg.Storage.UseSSL)
	p.str("STORAGE_REGION", &cfg.Storage.Region)
	p.str("STORAGE_BUCKET", &cfg.Storage.Bucket)
	p.str("STORAGE_OBJECT_KEY", &cfg.Storage.ObjectKey)
	p.bool("STORAGE_VERSION_KEYS", &cfg.Storage.VersionKeys)

	p.str("REDIS_URL", &cfg.Cache.RedisURL)
	p.duration("CACHE_TTL", &cfg.Cache.TTL)

	p.str("LOG_LEVEL", &cfg.Log.Level)
	p.bool("LOG_PRETTY", &cfg.Log.Pretty)

	p.str("PUSHGATEWAY_URL", &cfg.PushgatewayURL)

	if len(p.errs) > 0 {
		return cfg, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate checks that required values are present and in range.
func (c *Config) Validate() error {
	var errs []error

	if c.Places.APIKey == "" {
		errs = append(errs, fmt.Errorf("PLACES_API_KEY is required"))
	}
	if c.Places.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("PLACES_RPS must be non-negative"))
	}

	if !c.Search.HasLocation {
		errs = append(errs, fmt.Errorf("SEARCH_LATITUDE and SEARCH_LONGITUDE are required"))
	} else {
		if c.Search.Latitude < -90 || c.Search.Latitude > 90 {
			errs = append(errs, fmt.Errorf("latitude must be within [-90, 90], got %v", c.Search.Latitude))
		}
		if c.Search.Longitude < -180 || c.Search.Longitude > 180 {
			errs = append(errs, fmt.Errorf("longitude must be within [-180, 180], got %v", c.Search.Longitude))
		}
	}
	if c.Search.Radius <= 0 || c.Search.Radius > places.MaxRadius {
		errs = append(errs, fmt.Errorf("radius must be within (0, %d], got %d", places.MaxRadius, c.Search.Radius))
	}

	if c.Fetch.PageDelay < 0 {
		errs = append(errs, fmt.Errorf("PAGE_DELAY must be non-negative"))
	}
	if c.Fetch.MaxPages < 0 {
		errs = append(errs, fmt.Errorf("MAX_PAGES must be non-negative"))
	}
	if c.Fetch.SessionTimeout < 0 {
		errs = append(errs, fmt.Errorf("SESSION_TIMEOUT must be non-negative"))
	}

	if c.Storage.Endpoint == "" {
		errs = append(errs, fmt.Errorf("STORAGE_ENDPOINT is required"))
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		errs = append(errs, fmt.Errorf("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, fmt.Errorf("STORAGE_BUCKET is required"))
	}
	if c.Storage.ObjectKey == "" {
		errs = append(errs, fmt.Errorf("STORAGE_OBJECT_KEY must not be empty"))
	}

	if c.Cache.RedisURL != "" && c.Cache.TTL <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_TTL must be positive when REDIS_URL is set"))
	}

	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", c.Log.Level))
	}

	return errors.Join(errs...)
}

// SetLocation overrides the search coordinates.
func (c *Config) SetLocation(lat, lng float64) {
	c.Search.Latitude = lat
	c.Search.Longitude = lng
	c.Search.HasLocation = true
}

// Location returns the search coordinates.
func (c *Config) Location() places.Location {
	return places.Location{Latitude: c.Search.Latitude, Longitude: c.Search.Longitude}
}

// PlacesClient returns the search client configuration.
func (c *Config) PlacesClient() places.Config {
	cfg := places.DefaultConfig(c.Places.APIKey)
	if c.Places.BaseURL != "" {
		cfg.BaseURL = c.Places.BaseURL
	}
	cfg.PlaceType = c.Places.PlaceType
	cfg.Language = c.Places.Language
	cfg.RequestsPerSecond = c.Places.RequestsPerSecond
	cfg.MaxRetries = c.Places.MaxRetries
	return cfg
}

// Fetcher returns the pagination configuration.
func (c *Config) Fetcher() pagination.Config {
	return pagination.Config{
		PageDelay:      c.Fetch.PageDelay,
		MaxPages:       c.Fetch.MaxPages,
		SessionTimeout: c.Fetch.SessionTimeout,
	}
}

// ObjectStore returns the storage client configuration.
func (c *Config) ObjectStore() storage.Config {
	return storage.Config{
		Endpoint:  c.Storage.Endpoint,
		AccessKey: c.Storage.AccessKey,
		SecretKey: c.Storage.SecretKey,
		UseSSL:    c.Storage.UseSSL,
		Region:    c.Storage.Region,
	}
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// parser accumulates conversion errors while reading variables.
type parser struct {
	lookup LookupFunc
	errs   []error
}

func (p *parser) get(key string) (string, bool) {
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *parser) str(key string, dst *string) {
	if v, ok := p.get(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) bool {
	v, ok := p.get(key)
	if !ok {
		return false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return false
	}
	*dst = f
	return true
}

func (p *parser) bool(key string, dst *bool) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return
	}
	*dst = b
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = d
}
