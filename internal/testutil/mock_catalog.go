// Package testutil provides testing utilities for the ingestion service.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockCatalog is a configurable mock of the catalog search API.
// It serves JSON:API-shaped page responses keyed by the page[number] query
// parameter and tracks per-page attempts and concurrent in-flight requests.
type MockCatalog struct {
	server *httptest.Server

	mu          sync.Mutex
	responses   map[int]mockResponse
	failures    map[int]int
	attempts    map[int]int
	delay       time.Duration
	inFlight    int
	maxInFlight int
}

type mockResponse struct {
	statusCode int
	body       string
}

// NewMockCatalog creates a running mock catalog server.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		responses: make(map[int]mockResponse),
		failures:  make(map[int]int),
		attempts:  make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// SetResponse configures the response for a page.
func (m *MockCatalog) SetResponse(page, statusCode int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[page] = mockResponse{statusCode: statusCode, body: body}
}

// SetPage configures a 200 response for a page.
func (m *MockCatalog) SetPage(page int, body string) {
	m.SetResponse(page, http.StatusOK, body)
}

// FailTransiently makes the first n attempts for a page return 503 before
// the configured response is served.
func (m *MockCatalog) FailTransiently(page, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = n
}

// SetDelay adds a fixed delay to every response, making concurrent
// requests observable.
func (m *MockCatalog) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Attempts returns how many requests were made for a page.
func (m *MockCatalog) Attempts(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[page]
}

// MaxInFlight returns the concurrent-request high-water mark.
func (m *MockCatalog) MaxInFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxInFlight
}

func (m *MockCatalog) handle(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page[number]"))

	m.mu.Lock()
	m.attempts[page]++
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	delay := m.delay

	fail := false
	if m.failures[page] > 0 {
		m.failures[page]--
		fail = true
	}
	resp, configured := m.responses[page]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "application/vnd.api+json")

	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error": "upstream unavailable"}`))
		return
	}

	if !configured {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(PageBody(1, true)))
		return
	}

	w.WriteHeader(resp.statusCode)
	w.Write([]byte(resp.body))
}

// Item renders a valid catalog item with the given id and coordinates.
func Item(id string, lat, lon float64) string {
	return fmt.Sprintf(`{
		"id": %q,
		"type": "campgrounds",
		"links": {"self": "https://catalog.example/campgrounds/%s"},
		"attributes": {
			"name": "Campground %s",
			"latitude": %v,
			"longitude": %v,
			"region-name": "Test Region",
			"bookable": true,
			"accommodation-type-names": ["tent"],
			"camper-types": ["rv"],
			"photos-count": 2,
			"reviews-count": 5
		}
	}`, id, id, id, lat, lon)
}

// PageBody renders a search response with the given items. When hasCount
// is true the meta block carries the page count.
func PageBody(pageCount int, hasCount bool, items ...string) string {
	meta := "{}"
	if hasCount {
		meta = fmt.Sprintf(`{"page-count": %d}`, pageCount)
	}
	return fmt.Sprintf(`{"data": [%s], "meta": %s, "links": {"next": null}}`,
		strings.Join(items, ","), meta)
}
