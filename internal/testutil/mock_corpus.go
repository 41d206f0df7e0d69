// Package testutil provides testing utilities for the batch call scheduler.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock corpus endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCorpus is a configurable mock corpus-query server for testing.
type MockCorpus struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	RequestTimes []time.Time
	LastQuery    map[string][]string
	inFlight     int
	MaxInFlight  int
}

// NewMockCorpus creates a new mock corpus server.
func NewMockCorpus() *MockCorpus {
	mock := &MockCorpus{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestTimes = append(mock.RequestTimes, time.Now())
		mock.LastQuery = r.URL.Query()
		mock.inFlight++
		if mock.inFlight > mock.MaxInFlight {
			mock.MaxInFlight = mock.inFlight
		}
		mock.mu.Unlock()
		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

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

// URL returns the mock server URL.
func (m *MockCorpus) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCorpus) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCorpus) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.RequestTimes = nil
	m.LastQuery = nil
	m.MaxInFlight = 0
}

// GetMaxInFlight returns the highest number of requests observed executing
// at the same time.
func (m *MockCorpus) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.MaxInFlight
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCorpus) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCorpus) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.Headers["Content-Type"] == "" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCorpus) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetRequestTimes returns the arrival time of every request, in order.
func (m *MockCorpus) GetRequestTimes() []time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]time.Time, len(m.RequestTimes))
	copy(out, m.RequestTimes)
	return out
}

// GetLastQuery returns the query values of the most recent request.
func (m *MockCorpus) GetLastQuery() map[string][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

// defaultHandler echoes the request parameters back the way the corpus API
// does, minus nothing: redaction is the client's job and tests rely on the
// echo to verify it.
func (m *MockCorpus) defaultHandler(w http.ResponseWriter, r *http.Request) {
	request := map[string]any{}
	for key, vals := range r.URL.Query() {
		if len(vals) == 1 {
			request[key] = vals[0]
		} else {
			request[key] = vals
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"request":  request,
		"Desc":     []any{},
		"fullsize": 0,
	})
}

// NewHealthyResponse creates a standard 200 OK JSON response.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewAppErrorResponse creates a 200 OK response carrying a service-reported
// error field, the way the corpus API signals a bad query.
func NewAppErrorResponse(message string) MockResponse {
	body, _ := json.Marshal(map[string]any{"error": message})
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewCSVResponse creates a 200 OK text/csv response.
func NewCSVResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"Content-Type": "text/csv; charset=utf-8",
		},
	}
}
