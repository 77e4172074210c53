// Package client provides the compound database API client with caching,
// error classification, and optional retry.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mohrezaeib/cyto-compound-client/pkg/cache"
	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// Pagination defaults for the /items endpoint. Caller-supplied filter
// parameters override these (later keys win).
const (
	DefaultPage    = 1
	DefaultPerPage = 50
)

// Prometheus metrics for API client operations.
var (
	apiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compound_api_requests_total",
		Help: "Total compound API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compound_api_request_duration_seconds",
		Help:    "Compound API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	apiErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compound_api_errors_total",
		Help: "Total compound API errors by class",
	}, []string{"class"})
)

// Client is the compound database API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration. The base URL is injected here
// rather than read from a package-level constant so multiple environments
// (and tests) can point the client at different backends.
type Config struct {
	// BaseURL is the API root, e.g. "https://cytodb.example.org/api".
	BaseURL string

	// Redis enables response caching when set. Nil disables caching;
	// every call then goes straight to the backend.
	Redis *redis.Client

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// MaxRetries is the number of additional attempts after a retryable
	// failure (server or network errors). 0 means the first failure is
	// propagated to the caller untouched.
	MaxRetries int

	// InitialBackoff is the first retry delay; doubled per attempt.
	InitialBackoff time.Duration
}

// DefaultConfig returns a safe default configuration for the given API root.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      "cyto-compound-client/0.1.0",
		Timeout:        30 * time.Second,
		MaxRetries:     0,
		InitialBackoff: 1 * time.Second,
	}
}

// New creates a new compound API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = "cyto-compound-client/0.1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 1 * time.Second
	}

	logger := log.With().Str("component", "compound-client").Logger()

	var cacheManager *cache.Manager
	if cfg.Redis != nil {
		cacheManager = cache.NewManager(cfg.Redis)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		cache:   cacheManager,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Items fetches one page of the compound listing. The request carries the
// pagination defaults {page: 1, per_page: 50} overridden and extended by
// the caller's filter parameters: a Page or PerPage set in params wins over
// the defaults.
func (c *Client) Items(ctx context.Context, params compound.FilterParams) (*compound.Page, error) {
	query := url.Values{
		"page":     []string{fmt.Sprintf("%d", DefaultPage)},
		"per_page": []string{fmt.Sprintf("%d", DefaultPerPage)},
	}
	for key, values := range params.Values() {
		query[key] = values
	}

	body, err := c.get(ctx, "/items", query)
	if err != nil {
		return nil, err
	}

	var page compound.Page
	if err := json.Unmarshal(body, &page); err != nil {
		c.logger.Error().Err(err).Msg("Failed to decode items response")
		return nil, fmt.Errorf("decode items response: %w", err)
	}

	return &page, nil
}

// Item fetches a single compound by mol_idx, including the mol_idx values
// of its dataset-order neighbours. Returns ErrNotFound for unknown ids.
func (c *Client) Item(ctx context.Context, molIdx int64) (*compound.Detail, error) {
	body, err := c.get(ctx, fmt.Sprintf("/item/%d", molIdx), nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: mol_idx %d", ErrNotFound, molIdx)
		}
		return nil, err
	}

	var detail compound.Detail
	if err := json.Unmarshal(body, &detail); err != nil {
		c.logger.Error().Err(err).Msg("Failed to decode item response")
		return nil, fmt.Errorf("decode item response: %w", err)
	}

	return &detail, nil
}

// Get performs a raw GET against an API endpoint, passing the query
// through untouched, and returns the response body. Used by the proxy to
// forward SPA requests through the cache without re-encoding them.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	return c.get(ctx, endpoint, query)
}

// Health checks the backend health endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.get(ctx, "/health", nil)
	return err
}

// get performs a GET against an API endpoint and returns the response body.
// It orchestrates caching, conditional requests, error classification, and
// the optional retry policy.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		apiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	reqURL := *c.baseURL
	reqURL.Path = strings.TrimRight(reqURL.Path, "/") + endpoint
	reqURL.RawQuery = query.Encode()

	// Check cache
	cacheKey := cache.Key{
		Endpoint:    endpoint,
		QueryParams: query,
	}

	var cachedEntry *cache.Entry
	if c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		cachedEntry = entry
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", reqURL.RawQuery).
		Msg("Executing API request")

	var resp *http.Response

	retryErr := retryWithBackoff(ctx, c.retryConfig(), func() (ErrorClass, error) {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		// Network errors
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			apiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		// 304 Not Modified is handled below, not an error
		if resp.StatusCode == http.StatusNotModified {
			return "", nil
		}

		// HTTP errors
		if resp.StatusCode >= 400 {
			errClass := classifyStatus(resp.StatusCode)
			apiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			apiRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    errorMessage(resp),
			}
			resp.Body.Close()
			return errClass, apiErr
		}

		// Success
		apiRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return "", nil
	})

	if retryErr != nil {
		return nil, retryErr
	}

	// 304 Not Modified: serve the cached body and refresh its TTL
	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		apiRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		resp.Body.Close()
		return cachedEntry.Data, nil
	}

	defer resp.Body.Close()

	// Cache successful responses
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}

// retryConfig derives the retry configuration from the client config.
func (c *Client) retryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       c.config.MaxRetries + 1,
		InitialBackoff:    c.config.InitialBackoff,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// classifyStatus categorizes an HTTP error status for observability and
// retry decisions.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// errorMessage extracts the backend's error message from a failed response.
// The backend wraps errors as {"error": "..."}; fall back to the HTTP
// status text when the body doesn't match.
func errorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return payload.Error
		}
	}
	return resp.Status
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the cache manager, or nil when caching is disabled.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
