// Package geocode provides best-effort reverse geocoding of the search
// area's center point, used only for human-readable log context.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campwatch/campground-ingest/pkg/logging"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Client reverse-geocodes coordinates via the OpenStreetMap Nominatim API.
// Results are cached in Redis when a client is provided; Nominatim asks
// heavy users to cache, and the bbox center never changes between runs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	redis      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// New creates a geocoding client. redisClient may be nil to disable caching.
func New(redisClient *redis.Client) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  "campground-ingest/1.0",
		redis:      redisClient,
		cacheTTL:   30 * 24 * time.Hour,
		logger:     logging.NewLogger("geocode"),
	}
}

// SetBaseURL overrides the Nominatim endpoint (for testing).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Describe returns a human-readable place description for the coordinates,
// or "" on any failure. Failures never gate ingestion; they are logged and
// swallowed.
func (c *Client) Describe(ctx context.Context, lat, lon float64) string {
	cacheKey := fmt.Sprintf("geocode:%.4f,%.4f", lat, lon)

	if c.redis != nil {
		if cached, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			return cached
		}
	}

	name, err := c.lookup(ctx, lat, lon)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Reverse geocoding failed")
		return ""
	}

	if c.redis != nil && name != "" {
		if err := c.redis.Set(ctx, cacheKey, name, c.cacheTTL).Err(); err != nil {
			c.logger.Debug().Err(err).Msg("Geocode cache write failed")
		}
	}

	return name
}

// lookup performs one reverse-geocode request.
func (c *Client) lookup(ctx context.Context, lat, lon float64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%v", lat))
	q.Set("lon", fmt.Sprintf("%v", lon))
	q.Set("format", "jsonv2")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reverse geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reverse geocode: status %d", resp.StatusCode)
	}

	var body struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return body.DisplayName, nil
}
