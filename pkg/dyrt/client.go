// Package dyrt provides the HTTP client for The Dyrt's paginated campground
// search endpoint, with retry and error classification.
package dyrt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/campwatch/campground-ingest/pkg/catalog"
	"github.com/campwatch/campground-ingest/pkg/logging"
)

// Prometheus metrics for catalog API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog API request duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20},
	})

	decodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_decode_failures_total",
		Help: "Total responses dropped due to malformed bodies",
	})

	itemsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_items_skipped_total",
		Help: "Total catalog items skipped during parsing",
	})
)

// BoundingBox is the four-coordinate rectangle constraining the search.
type BoundingBox struct {
	MinLongitude float64
	MinLatitude  float64
	MaxLongitude float64
	MaxLatitude  float64
}

// Param renders the box in the API's bbox filter format.
func (b BoundingBox) Param() string {
	return fmt.Sprintf("%v,%v,%v,%v", b.MinLongitude, b.MinLatitude, b.MaxLongitude, b.MaxLatitude)
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.MinLatitude + b.MaxLatitude) / 2, (b.MinLongitude + b.MaxLongitude) / 2
}

// Config holds the fetcher configuration.
type Config struct {
	// Endpoint is the full URL of the catalog search endpoint.
	Endpoint string

	// BoundingBox constrains every search request.
	BoundingBox BoundingBox

	// PageSize is the fixed page size requested from the API.
	PageSize int

	// RequestTimeout bounds each individual page request.
	RequestTimeout time.Duration

	// Retry controls the transient-failure retry envelope.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(endpoint string, bbox BoundingBox) Config {
	return Config{
		Endpoint:       endpoint,
		BoundingBox:    bbox,
		PageSize:       500,
		RequestTimeout: 20 * time.Second,
		Retry:          DefaultRetryConfig(),
	}
}

// PageResult is the outcome of fetching one page.
type PageResult struct {
	// Records parsed from the page body, possibly empty.
	Records []catalog.Record

	// TotalPages is the page count the API reported on this response.
	// Valid only when HasTotal is true; the API omits it on some responses.
	TotalPages int
	HasTotal   bool

	// Skipped counts items on this page dropped by validation.
	Skipped int
}

// Client fetches pages from the catalog search endpoint.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new catalog API client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		config: cfg,
		logger: logging.NewLogger("dyrt-client"),
	}, nil
}

// searchResponse mirrors the JSON:API search response envelope.
type searchResponse struct {
	Data []json.RawMessage `json:"data"`
	Meta struct {
		PageCount *int `json:"page-count"`
	} `json:"meta"`
	Links struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// FetchPage fetches a single page of search results.
//
// Transient failures (network errors, 5xx, 429) are retried with strictly
// increasing exponential backoff; exhausting the retries is fatal for this
// page and returned as an error. Malformed bodies and client errors are not
// retried: the page yields zero records and no page count, and the run is
// expected to continue with other pages.
func (c *Client) FetchPage(ctx context.Context, page int) (PageResult, error) {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		var fetchErr error
		body, fetchErr = c.doRequest(ctx, page)
		return fetchErr
	}, classifyError)
	if err != nil {
		return PageResult{}, fmt.Errorf("fetch page %d: %w", page, err)
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		decodeFailuresTotal.Inc()
		c.logger.Warn().
			Err(err).
			Int("page", page).
			Msg("Malformed response body, dropping page")
		return PageResult{}, nil
	}

	records, skipped := catalog.ParsePage(decoded.Data, c.logger)
	if skipped > 0 {
		itemsSkippedTotal.Add(float64(skipped))
	}

	result := PageResult{
		Records: records,
		Skipped: skipped,
	}
	if decoded.Meta.PageCount != nil {
		result.TotalPages = *decoded.Meta.PageCount
		result.HasTotal = true
	}
	return result, nil
}

// doRequest performs one HTTP round trip for a page and returns the body.
func (c *Client) doRequest(ctx context.Context, page int) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.config.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	q := req.URL.Query()
	q.Set("filter[search][drive_time]", "any")
	q.Set("filter[search][air_quality]", "any")
	q.Set("filter[search][electric_amperage]", "any")
	q.Set("filter[search][max_vehicle_length]", "any")
	q.Set("filter[search][price]", "any")
	q.Set("filter[search][rating]", "any")
	q.Set("filter[search][bbox]", c.config.BoundingBox.Param())
	q.Set("sort", "recommended")
	q.Set("page[number]", strconv.Itoa(page))
	q.Set("page[size]", strconv.Itoa(c.config.PageSize))
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Content-Type", "application/vnd.api+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "request failed",
			Err:        err,
		}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
			Message:    resp.Status,
		}
		c.logger.Warn().
			Int("page", page).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.ErrorClass)).
			Msg("Catalog request error")
		return nil, apiErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{
			ErrorClass: ErrorClassNetwork,
			Message:    "read body",
			Err:        err,
		}
	}
	return body, nil
}

// classifyStatus categorizes an HTTP status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassThrottle
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// classifyError categorizes an error for the retry decision.
func classifyError(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}
