// Package testutil provides testing utilities for the Harvest client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
)

// MockHarvest is a configurable mock Harvest API server for testing.
// Handlers are keyed by URL path; unmatched paths return 404.
type MockHarvest struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount int
	pathCounts   map[string]int
	requests     []*http.Request
}

// NewMockHarvest creates and starts a mock server.
func NewMockHarvest() *MockHarvest {
	mock := &MockHarvest{
		handlers:   make(map[string]http.HandlerFunc),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.requests = append(mock.requests, r.Clone(r.Context()))
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		WriteJSON(w, http.StatusNotFound, map[string]string{
			"message": fmt.Sprintf("no handler for %s", r.URL.Path),
		}, nil)
	}))

	return mock
}

// URL returns the mock server base URL, usable as a client BaseURL.
func (m *MockHarvest) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockHarvest) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockHarvest) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.requests = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockHarvest) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetJSON serves body as a single JSON page for path.
func (m *MockHarvest) SetJSON(path string, body any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, body, nil)
	})
}

// SetStatus makes path always respond with status and a JSON error body.
func (m *MockHarvest) SetStatus(path string, status int) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, map[string]string{"message": http.StatusText(status)}, nil)
	})
}

// SetPages serves pages for path. Page n (1-based) is selected with the
// "page" query parameter; every page but the last carries a rel="next" Link
// header pointing at the following page.
func (m *MockHarvest) SetPages(path string, pages ...any) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		n := 1
		if p := r.URL.Query().Get("page"); p != "" {
			fmt.Sscanf(p, "%d", &n)
		}
		if n < 1 || n > len(pages) {
			WriteJSON(w, http.StatusNotFound, map[string]string{"message": "page out of range"}, nil)
			return
		}

		headers := map[string]string{}
		if n < len(pages) {
			next := *r.URL
			next.Scheme = "http"
			next.Host = r.Host
			q := next.Query()
			q.Set("page", fmt.Sprint(n+1))
			next.RawQuery = q.Encode()
			headers["Link"] = fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next.String(), next.String())
		}
		WriteJSON(w, http.StatusOK, pages[n-1], headers)
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockHarvest) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockHarvest) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// Requests returns copies of every request received, in arrival order.
func (m *MockHarvest) Requests() []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*http.Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsFor returns the requests received for path.
func (m *MockHarvest) RequestsFor(path string) []*http.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*http.Request
	for _, r := range m.requests {
		if r.URL.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// WriteJSON writes body as an application/json response with extra headers.
func WriteJSON(w http.ResponseWriter, status int, body any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
