package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockBackend is a configurable HTTP test server that simulates the
// services a built app talks to. It allows configuring per-route responses
// and records all received requests for later assertion.
type MockBackend struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.RWMutex
	routes   map[string]*routeConfig
	received map[string][]*RecordedRequest
}

// RecordedRequest captures the details of a request received by the mock backend.
type RecordedRequest struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     http.Header
	Body        map[string]any
	RawBody     []byte
	ReceivedAt  time.Time
}

// routeConfig holds the configured responses for a single route.
type routeConfig struct {
	mu        sync.Mutex
	responses []*mockResponse
	current   int
}

type mockResponse struct {
	status    int
	body      any
	delay     time.Duration
	connError bool
}

// RouteMock is a builder for configuring mock responses for a specific route.
type RouteMock struct {
	backend *MockBackend
	key     string
}

// newMockBackend creates a new mock backend and starts the HTTP test server.
// Unconfigured routes answer 200 {"status":"ok"}.
func newMockBackend(t *testing.T) *MockBackend {
	t.Helper()

	mb := &MockBackend{
		t:        t,
		routes:   make(map[string]*routeConfig),
		received: make(map[string][]*RecordedRequest),
	}
	mb.server = httptest.NewServer(http.HandlerFunc(mb.handle))
	t.Cleanup(mb.server.Close)

	return mb
}

func routeKey(method, path string) string {
	return method + " " + path
}

// URL returns the base URL of the mock backend server.
func (mb *MockBackend) URL() string {
	return mb.server.URL
}

// On returns a builder for configuring responses for method and path.
func (mb *MockBackend) On(method, path string) *RouteMock {
	return &RouteMock{backend: mb, key: routeKey(method, path)}
}

// RespondWith configures the route to respond with the given status and body.
func (rm *RouteMock) RespondWith(status int, body any) *RouteMock {
	rm.backend.addResponse(rm.key, &mockResponse{status: status, body: body})
	return rm
}

// RespondWithDelay configures a delayed response to simulate slow backends.
func (rm *RouteMock) RespondWithDelay(delay time.Duration, status int, body any) *RouteMock {
	rm.backend.addResponse(rm.key, &mockResponse{status: status, body: body, delay: delay})
	return rm
}

// RespondWithConnectionError configures the route to close the connection
// to simulate a backend failure.
func (rm *RouteMock) RespondWithConnectionError() *RouteMock {
	rm.backend.addResponse(rm.key, &mockResponse{connError: true})
	return rm
}

func (mb *MockBackend) addResponse(key string, resp *mockResponse) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	cfg, ok := mb.routes[key]
	if !ok {
		cfg = &routeConfig{}
		mb.routes[key] = cfg
	}
	cfg.responses = append(cfg.responses, resp)
}

func (mb *MockBackend) handle(w http.ResponseWriter, r *http.Request) {
	key := routeKey(r.Method, r.URL.Path)

	// Record the request.
	rec := &RecordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		QueryParams: make(map[string]string),
		Headers:     r.Header.Clone(),
		ReceivedAt:  time.Now(),
	}
	for k, values := range r.URL.Query() {
		if len(values) > 0 {
			rec.QueryParams[k] = values[0]
		}
	}
	if r.Body != nil {
		body, _ := io.ReadAll(r.Body)
		rec.RawBody = body
		if len(body) > 0 {
			var parsed map[string]any
			if err := json.Unmarshal(body, &parsed); err == nil {
				rec.Body = parsed
			}
		}
	}

	mb.mu.Lock()
	mb.received[key] = append(mb.received[key], rec)
	mb.mu.Unlock()

	resp := mb.nextResponse(key)
	if resp == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		return
	}

	if resp.connError {
		// Hijack the connection and close it to simulate a connection error.
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			if conn != nil {
				conn.Close()
			}
		}
		return
	}

	if resp.delay > 0 {
		time.Sleep(resp.delay)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	if resp.body != nil {
		json.NewEncoder(w).Encode(resp.body)
	}
}

func (mb *MockBackend) nextResponse(key string) *mockResponse {
	mb.mu.RLock()
	cfg, ok := mb.routes[key]
	mb.mu.RUnlock()
	if !ok || cfg == nil {
		return nil
	}

	cfg.mu.Lock()
	defer cfg.mu.Unlock()

	if len(cfg.responses) == 0 {
		return nil
	}

	idx := cfg.current
	if idx >= len(cfg.responses) {
		// Repeat the last response for subsequent calls.
		idx = len(cfg.responses) - 1
	} else {
		cfg.current++
	}
	return cfg.responses[idx]
}

// AssertCalled verifies that the route was called the expected number of times.
func (mb *MockBackend) AssertCalled(t *testing.T, method, path string, expectedCount int) {
	t.Helper()
	mb.mu.RLock()
	actual := len(mb.received[routeKey(method, path)])
	mb.mu.RUnlock()
	if actual != expectedCount {
		t.Errorf("mock: %s %s called %d times, want %d", method, path, actual, expectedCount)
	}
}

// LastRequest returns the last request received for the route, or nil.
func (mb *MockBackend) LastRequest(method, path string) *RecordedRequest {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	reqs := mb.received[routeKey(method, path)]
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}
