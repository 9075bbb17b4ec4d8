package config

import (
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

// envFrom parses dotenv content into a lookup function.
func envFrom(t *testing.T, content string) LookupFunc {
	t.Helper()
	env, err := godotenv.Unmarshal(content)
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

const validEnv = `
PLACES_API_KEY=test-key
SEARCH_LATITUDE=12.97
SEARCH_LONGITUDE=77.59
SEARCH_KEYWORD=Indian
STORAGE_ENDPOINT=localhost:9000
STORAGE_ACCESS_KEY=minio
STORAGE_SECRET_KEY=minio123
STORAGE_BUCKET=places
`

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Places.PlaceType != "restaurant" {
		t.Errorf("PlaceType = %q, want restaurant", cfg.Places.PlaceType)
	}
	if cfg.Search.Radius != 1500 {
		t.Errorf("Radius = %d, want 1500", cfg.Search.Radius)
	}
	if cfg.Fetch.PageDelay != 2*time.Second {
		t.Errorf("PageDelay = %v, want 2s", cfg.Fetch.PageDelay)
	}
	if cfg.Fetch.MaxPages != 0 {
		t.Errorf("MaxPages = %d, want 0", cfg.Fetch.MaxPages)
	}
	if cfg.Storage.ObjectKey != "places.json" {
		t.Errorf("ObjectKey = %q, want places.json", cfg.Storage.ObjectKey)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadFrom_Valid(t *testing.T) {
	cfg, err := LoadFrom(envFrom(t, validEnv))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Places.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Places.APIKey)
	}
	if !cfg.Search.HasLocation {
		t.Error("HasLocation = false, want true")
	}
	loc := cfg.Location()
	if loc.Latitude != 12.97 || loc.Longitude != 77.59 {
		t.Errorf("Location = %v", loc)
	}
	if cfg.Search.Keyword != "Indian" {
		t.Errorf("Keyword = %q", cfg.Search.Keyword)
	}
	if cfg.Storage.Bucket != "places" {
		t.Errorf("Bucket = %q", cfg.Storage.Bucket)
	}
	// Defaults survive when unset
	if cfg.Search.Radius != 1500 {
		t.Errorf("Radius = %d, want default 1500", cfg.Search.Radius)
	}
	if !cfg.Storage.UseSSL {
		t.Error("UseSSL default should be true")
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	env := validEnv + `
SEARCH_RADIUS=500
PAGE_DELAY=3s
MAX_PAGES=2
SESSION_TIMEOUT=1m
STORAGE_USE_SSL=false
STORAGE_OBJECT_KEY=exports/bangalore.json
STORAGE_VERSION_KEYS=true
REDIS_URL=redis://localhost:6379/0
CACHE_TTL=10m
LOG_LEVEL=debug
LOG_PRETTY=true
PLACES_TYPE=cafe
PLACES_LANGUAGE=en
PUSHGATEWAY_URL=http://localhost:9091
`
	cfg, err := LoadFrom(envFrom(t, env))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Search.Radius != 500 {
		t.Errorf("Radius = %d, want 500", cfg.Search.Radius)
	}
	if cfg.Fetch.PageDelay != 3*time.Second {
		t.Errorf("PageDelay = %v", cfg.Fetch.PageDelay)
	}
	if cfg.Fetch.MaxPages != 2 {
		t.Errorf("MaxPages = %d", cfg.Fetch.MaxPages)
	}
	if cfg.Fetch.SessionTimeout != time.Minute {
		t.Errorf("SessionTimeout = %v", cfg.Fetch.SessionTimeout)
	}
	if cfg.Storage.UseSSL {
		t.Error("UseSSL = true, want false")
	}
	if !cfg.Storage.VersionKeys {
		t.Error("VersionKeys = false, want true")
	}
	if cfg.Cache.TTL != 10*time.Minute {
		t.Errorf("TTL = %v", cfg.Cache.TTL)
	}
	if cfg.PushgatewayURL != "http://localhost:9091" {
		t.Errorf("PushgatewayURL = %q", cfg.PushgatewayURL)
	}

	pc := cfg.PlacesClient()
	if pc.PlaceType != "cafe" || pc.Language != "en" || pc.APIKey != "test-key" {
		t.Errorf("PlacesClient() = %+v", pc)
	}

	fc := cfg.Fetcher()
	if fc.PageDelay != 3*time.Second || fc.MaxPages != 2 || fc.SessionTimeout != time.Minute {
		t.Errorf("Fetcher() = %+v", fc)
	}

	sc := cfg.ObjectStore()
	if sc.Endpoint != "localhost:9000" || sc.UseSSL {
		t.Errorf("ObjectStore() = %+v", sc)
	}

	lc := cfg.Logging()
	if lc.Level != "debug" || !lc.Pretty {
		t.Errorf("Logging() = %+v", lc)
	}
}

func TestLoadFrom_MalformedValues(t *testing.T) {
	env := validEnv + `
SEARCH_RADIUS=wide
PAGE_DELAY=soon
STORAGE_USE_SSL=maybe
SEARCH_LATITUDE=north
`
	_, err := LoadFrom(envFrom(t, env))
	if err == nil {
		t.Fatal("expected error for malformed values")
	}

	for _, key := range []string{"SEARCH_RADIUS", "PAGE_DELAY", "STORAGE_USE_SSL", "SEARCH_LATITUDE"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestLoadFrom_EmptyValueKeepsDefault(t *testing.T) {
	cfg, err := LoadFrom(envFrom(t, validEnv+"\nSEARCH_RADIUS=\n"))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Search.Radius != 1500 {
		t.Errorf("Radius = %d, want 1500", cfg.Search.Radius)
	}
}

func TestLoad_ProcessEnv(t *testing.T) {
	t.Setenv("PLACES_API_KEY", "from-env")
	t.Setenv("SEARCH_RADIUS", "750")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Places.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.Places.APIKey)
	}
	if cfg.Search.Radius != 750 {
		t.Errorf("Radius = %d, want 750", cfg.Search.Radius)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "missing api key",
			modify:  func(c *Config) { c.Places.APIKey = "" },
			wantErr: "PLACES_API_KEY",
		},
		{
			name:    "missing location",
			modify:  func(c *Config) { c.Search.HasLocation = false },
			wantErr: "SEARCH_LATITUDE",
		},
		{
			name:    "latitude out of range",
			modify:  func(c *Config) { c.Search.Latitude = 91 },
			wantErr: "latitude",
		},
		{
			name:    "longitude out of range",
			modify:  func(c *Config) { c.Search.Longitude = -181 },
			wantErr: "longitude",
		},
		{
			name:    "zero radius",
			modify:  func(c *Config) { c.Search.Radius = 0 },
			wantErr: "radius",
		},
		{
			name:    "radius above limit",
			modify:  func(c *Config) { c.Search.Radius = 50001 },
			wantErr: "radius",
		},
		{
			name:    "negative page delay",
			modify:  func(c *Config) { c.Fetch.PageDelay = -time.Second },
			wantErr: "PAGE_DELAY",
		},
		{
			name:    "negative max pages",
			modify:  func(c *Config) { c.Fetch.MaxPages = -1 },
			wantErr: "MAX_PAGES",
		},
		{
			name:    "missing endpoint",
			modify:  func(c *Config) { c.Storage.Endpoint = "" },
			wantErr: "STORAGE_ENDPOINT",
		},
		{
			name:    "missing secret",
			modify:  func(c *Config) { c.Storage.SecretKey = "" },
			wantErr: "STORAGE_SECRET_KEY",
		},
		{
			name:    "missing bucket",
			modify:  func(c *Config) { c.Storage.Bucket = "" },
			wantErr: "STORAGE_BUCKET",
		},
		{
			name:    "empty object key",
			modify:  func(c *Config) { c.Storage.ObjectKey = "" },
			wantErr: "STORAGE_OBJECT_KEY",
		},
		{
			name: "cache without ttl",
			modify: func(c *Config) {
				c.Cache.RedisURL = "redis://localhost:6379"
				c.Cache.TTL = 0
			},
			wantErr: "CACHE_TTL",
		},
		{
			name:    "unknown log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: "LOG_LEVEL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFrom(envFrom(t, validEnv))
			if err != nil {
				t.Fatalf("LoadFrom failed: %v", err)
			}
			tt.modify(&cfg)

			err = cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CacheDisabledIgnoresTTL(t *testing.T) {
	cfg, err := LoadFrom(envFrom(t, validEnv))
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	cfg.Cache.TTL = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestSetLocation(t *testing.T) {
	cfg := Default()
	cfg.SetLocation(-33.86, 151.19)

	if !cfg.Search.HasLocation {
		t.Error("HasLocation = false after SetLocation")
	}
	if got := cfg.Location().String(); got != "-33.86,151.19" {
		t.Errorf("Location = %q", got)
	}
}
