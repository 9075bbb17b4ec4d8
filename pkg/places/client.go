// Package places provides an HTTP client for the Google Places Nearby Search
// API with retries, client-side rate limiting and request metrics.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Prometheus metrics for Nearby Search requests.
var (
	placesRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "places_requests_total",
		Help: "Total Nearby Search requests by request kind and status",
	}, []string{"kind", "status"})

	placesRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "places_request_duration_seconds",
		Help:    "Nearby Search call duration in seconds (including retries) by request kind",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	placesErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "places_errors_total",
		Help: "Total Nearby Search errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the Nearby Search JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// MaxRadius is the largest radius the API accepts, in meters.
const MaxRadius = 50000

const (
	kindQuery = "query"
	kindToken = "token"
)

// Config holds the client configuration.
type Config struct {
	// APIKey is the Places API key (REQUIRED).
	APIKey string

	// BaseURL overrides the Nearby Search endpoint (tests, proxies).
	BaseURL string

	// PlaceType restricts results to one place type, e.g. "restaurant". Optional.
	PlaceType string

	// Language is the result language code. Optional.
	Language string

	// Timeout per HTTP attempt.
	Timeout time.Duration

	// RequestsPerSecond caps outgoing requests. Zero disables the limiter.
	RequestsPerSecond int

	// MaxRetries overrides the per-class attempt count when > 0.
	MaxRetries int
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		BaseURL:           DefaultBaseURL,
		PlaceType:         "restaurant",
		Timeout:           30 * time.Second,
		RequestsPerSecond: 10,
	}
}

// Client calls the Nearby Search API.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryPolicy RetryPolicy
	config      Config
	logger      zerolog.Logger
}

// New creates a new Nearby Search client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests_per_second must be >= 0 (got %d)", cfg.RequestsPerSecond)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:     limiter,
		retryPolicy: WithMaxAttempts(RetryConfigForErrorClass, cfg.MaxRetries),
		config:      cfg,
		logger:      log.With().Str("component", "places-client").Logger(),
	}, nil
}

// Search performs one Nearby Search call. Retryable failures are retried
// according to the client's retry policy before an error is returned.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	kind := kindQuery
	if req.IsContinuation() {
		kind = kindToken
	} else if req.Radius <= 0 || req.Radius > MaxRadius {
		return nil, &APIError{
			ErrorClass: ErrorClassInvalid,
			Message:    fmt.Sprintf("radius must be in (0, %d], got %d", MaxRadius, req.Radius),
		}
	}

	startTime := time.Now()
	defer func() {
		placesRequestDuration.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	}()

	endpoint := c.config.BaseURL + "?" + c.queryParams(req).Encode()

	c.logger.Debug().
		Str("kind", kind).
		Str("keyword", req.Keyword).
		Msg("Executing Nearby Search request")

	var result *SearchResponse
	err := retryWithBackoff(ctx, c.retryPolicy, func() error {
		resp, attemptErr := c.attempt(ctx, kind, endpoint, req.IsContinuation())
		if attemptErr != nil {
			return attemptErr
		}
		result = resp
		return nil
	}, classOf)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("kind", kind).
			Str("error_class", string(classOf(err))).
			Msg("Nearby Search request failed")
		return nil, err
	}

	return result, nil
}

// attempt executes a single HTTP round trip and decodes the response.
func (c *Client) attempt(ctx context.Context, kind, endpoint string, continuation bool) (*SearchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		placesErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		placesRequestsTotal.WithLabelValues(kind, "network_error").Inc()
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		errClass := classifyHTTPStatus(resp.StatusCode)
		placesErrorsTotal.WithLabelValues(string(errClass)).Inc()
		placesRequestsTotal.WithLabelValues(kind, strconv.Itoa(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("kind", kind).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Nearby Search HTTP error")

		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	var body nearbySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		placesErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		placesRequestsTotal.WithLabelValues(kind, "decode_error").Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode response",
			Err:        err,
		}
	}

	placesRequestsTotal.WithLabelValues(kind, body.Status).Inc()

	switch body.Status {
	case StatusOK, StatusZeroResults:
		return body.toSearchResponse(), nil
	}

	errClass := classifyAPIStatus(body.Status, continuation)
	placesErrorsTotal.WithLabelValues(string(errClass)).Inc()

	message := body.ErrorMessage
	if message == "" {
		message = body.Status
	}

	c.logger.Warn().
		Str("kind", kind).
		Str("api_status", body.Status).
		Str("error_class", string(errClass)).
		Msg("Nearby Search API error")

	return nil, &APIError{
		Status:     body.Status,
		StatusCode: resp.StatusCode,
		ErrorClass: errClass,
		Message:    message,
	}
}

// queryParams builds the request query. Continuation requests carry only the token.
func (c *Client) queryParams(req SearchRequest) url.Values {
	params := url.Values{}
	params.Set("key", c.config.APIKey)

	if req.IsContinuation() {
		params.Set("pagetoken", req.PageToken)
		return params
	}

	params.Set("location", req.Location.String())
	params.Set("radius", strconv.Itoa(req.Radius))
	if req.Keyword != "" {
		params.Set("keyword", req.Keyword)
	}
	if c.config.PlaceType != "" {
		params.Set("type", c.config.PlaceType)
	}
	if c.config.Language != "" {
		params.Set("language", c.config.Language)
	}
	return params
}

// SetRetryPolicy replaces the retry policy (for testing).
func (c *Client) SetRetryPolicy(policy RetryPolicy) {
	if policy == nil {
		policy = RetryConfigForErrorClass
	}
	c.retryPolicy = policy
}

// IsContextError reports whether err stems from context cancellation or deadline.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrContextCancelled)
}
