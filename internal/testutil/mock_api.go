// Package testutil provides a mock compound database backend for testing.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mohrezaeib/cyto-compound-client/pkg/compound"
)

// MockResponse defines the behavior for a canned endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock compound API server. By default it serves
// a dataset with the backend's real pagination semantics; individual paths
// can be overridden with canned responses to exercise failure handling.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
	dataset  []compound.Compound

	// Tracking
	RequestCount     int
	ConditionalCount int
	LastQuery        url.Values
}

// NewMockAPI creates a mock API server over the given dataset.
func NewMockAPI(dataset []compound.Compound) *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		dataset:  dataset,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastQuery = r.URL.Query()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server's API base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastQuery = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a canned response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastQuery returns the query parameters of the most recent request.
func (m *MockAPI) GetLastQuery() url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// defaultHandler serves the dataset with the backend's route surface.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	switch {
	case r.URL.Path == "/items":
		m.handleItems(w, r)
	case strings.HasPrefix(r.URL.Path, "/item/"):
		m.handleItem(w, r)
	case r.URL.Path == "/health":
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "healthy",
			"data_loaded": len(m.dataset),
		})
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "not found"}`))
	}
}

// handleItems implements the filtered, paginated listing. The filter
// subset covers free-text query, molweight range, and activity; enough to
// exercise the client's parameter encoding end to end.
func (m *MockAPI) handleItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := intParam(q, "page", 1)
	if page < 1 {
		page = 1
	}
	perPage := intParam(q, "per_page", 20)
	if perPage < 1 {
		perPage = 20
	}

	filtered := make([]compound.Compound, 0, len(m.dataset))
	for _, c := range m.dataset {
		if !matchQuery(c, q.Get("query")) {
			continue
		}
		if !matchRange(c, "Total Molweight", q.Get("min_molweight"), q.Get("max_molweight")) {
			continue
		}
		if !matchContains(c, "Actin Disruption Activity", q.Get("activity")) {
			continue
		}
		filtered = append(filtered, c)
	}

	totalItems := len(filtered)
	totalPages := (totalItems + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}

	json.NewEncoder(w).Encode(compound.Page{
		Items:      filtered[start:end],
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalItems: totalItems,
	})
}

// handleItem implements the detail endpoint with prev/next indexes.
func (m *MockAPI) handleItem(w http.ResponseWriter, r *http.Request) {
	molIdx, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/item/"), 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Compound not found"}`))
		return
	}

	idx := -1
	for i := range m.dataset {
		if m.dataset[i].MolIdx == molIdx {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "Compound not found"}`))
		return
	}

	detail := compound.Detail{Item: m.dataset[idx]}
	if idx > 0 {
		detail.PrevIdx = &m.dataset[idx-1].MolIdx
	}
	if idx < len(m.dataset)-1 {
		detail.NextIdx = &m.dataset[idx+1].MolIdx
	}

	json.NewEncoder(w).Encode(detail)
}

func intParam(q url.Values, key string, def int) int {
	if s := q.Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

var numPattern = regexp.MustCompile(`[-+]?\d*\.\d+|\d+`)

// parseNumber extracts the first numeric value from an attribute, which
// may carry units or annotations (e.g. "12.5 µM").
func parseNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	match := numPattern.FindString(fmt.Sprintf("%v", value))
	if match == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(match, 64)
	return n, err == nil
}

func matchQuery(c compound.Compound, query string) bool {
	if query == "" {
		return true
	}
	for _, value := range c.Fields {
		if strings.Contains(strings.ToLower(fmt.Sprintf("%v", value)), strings.ToLower(query)) {
			return true
		}
	}
	return false
}

func matchRange(c compound.Compound, field, minStr, maxStr string) bool {
	if minStr == "" && maxStr == "" {
		return true
	}
	value, ok := parseNumber(c.Field(field))
	if !ok {
		return false
	}
	if minStr != "" {
		if min, err := strconv.ParseFloat(minStr, 64); err == nil && value < min {
			return false
		}
	}
	if maxStr != "" {
		if max, err := strconv.ParseFloat(maxStr, 64); err == nil && value > max {
			return false
		}
	}
	return true
}

func matchContains(c compound.Compound, field, want string) bool {
	if want == "" {
		return true
	}
	return strings.Contains(
		strings.ToLower(c.FieldString(field)),
		strings.ToLower(want),
	)
}

// Dataset generates n compounds with deterministic attributes for tests.
// MolIdx runs from 1 to n; molweight grows by 10 per compound, activity
// alternates between "+" and "-".
func Dataset(n int) []compound.Compound {
	compounds := make([]compound.Compound, n)
	for i := range compounds {
		activity := "+"
		if i%2 == 1 {
			activity = "-"
		}
		compounds[i] = compound.Compound{
			MolIdx: int64(i + 1),
			Fields: map[string]any{
				"Compound Name":             fmt.Sprintf("Compound-%03d", i+1),
				"Total Molweight":           fmt.Sprintf("%.1f", 300.0+float64(i)*10),
				"IC50":                      fmt.Sprintf("%.2f µM", 0.5+float64(i)*0.25),
				"Actin Disruption Activity": activity,
				"Reversibilty":              "Reversible",
				"Quantity":                  "available",
			},
		}
	}
	return compounds
}

// NewServerErrorResponse creates a canned 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewCacheableResponse creates a canned 200 response with ETag and
// Expires headers so the client will cache and revalidate it.
func NewCacheableResponse(data string, etag string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
			"ETag":         etag,
			"Expires":      time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
		},
	}
}

// NewConditionalHandler creates a handler that responds 304 when the
// request carries a matching If-None-Match header and the full body
// otherwise.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Header.Get("If-None-Match") == etag {
			w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
