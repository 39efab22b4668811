// Package integration provides a reusable test harness for end-to-end
// integration testing of the studio server. It starts a full HTTP server
// over a real storage backend with a mock backend service for form
// submissions and REST calls.
package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/catalog"
	"github.com/pitabwire/studio/internal/config"
	"github.com/pitabwire/studio/internal/dnd"
	"github.com/pitabwire/studio/internal/invoker"
	"github.com/pitabwire/studio/internal/notify"
	"github.com/pitabwire/studio/internal/observability"
	"github.com/pitabwire/studio/internal/render"
	"github.com/pitabwire/studio/internal/session"
	"github.com/pitabwire/studio/internal/storage"
	"github.com/pitabwire/studio/internal/store"
	"github.com/pitabwire/studio/internal/transport"
	"github.com/pitabwire/studio/internal/workflow"
)

// TestHarness encapsulates a fully wired studio instance with a mock
// backend for integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	// Internal components exposed for advanced test scenarios.
	Backend          storage.Backend
	Workspace        *store.Workspace
	Catalog          *catalog.Registry
	Sessions         *session.Manager
	Client           *invoker.Client
	IdempotencyStore *transport.MemoryIdempotencyStore

	mock *MockBackend
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	storageDriver      string
	idempotencyEnabled bool
	handlerTimeout     time.Duration
	submission         config.SubmissionConfig
}

// WithStorage selects the storage driver. File-backed drivers use a file in
// the test's temp directory.
func WithStorage(driver string) HarnessOption {
	return func(c *harnessConfig) {
		c.storageDriver = driver
	}
}

// WithIdempotency enables the in-memory idempotency store.
func WithIdempotency() HarnessOption {
	return func(c *harnessConfig) {
		c.idempotencyEnabled = true
	}
}

// WithHandlerTimeout sets the per-request handler timeout.
func WithHandlerTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.handlerTimeout = d
	}
}

// WithSubmission overrides the outbound call settings.
func WithSubmission(cfg config.SubmissionConfig) HarnessOption {
	return func(c *harnessConfig) {
		c.submission = cfg
	}
}

// NewTestHarness creates a fully wired studio instance for testing.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		storageDriver:  config.DriverMemory,
		handlerTimeout: 10 * time.Second,
		submission: config.SubmissionConfig{
			Timeout: 2 * time.Second,
			CircuitBreaker: config.CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          30 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(hc)
	}

	// Step 1: Build config.
	cfg := config.Defaults()
	cfg.Server.HandlerTimeout = hc.handlerTimeout
	cfg.Storage.Driver = hc.storageDriver
	switch hc.storageDriver {
	case config.DriverBolt:
		cfg.Storage.Path = filepath.Join(t.TempDir(), "studio.db")
	case config.DriverSQLite:
		cfg.Storage.Path = filepath.Join(t.TempDir(), "studio.sqlite")
	}
	cfg.Submission = hc.submission
	cfg.Idempotency.Enabled = hc.idempotencyEnabled

	h := &TestHarness{t: t}

	// Step 2: Start the mock backend.
	h.mock = newMockBackend(t)

	// Step 3: Open storage.
	backend, err := storage.Open(context.Background(), cfg.Storage, zap.NewNop())
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { backend.Close() })
	h.Backend = backend

	// Step 4: Load the catalog.
	f, err := catalog.LoadBuiltin()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	h.Catalog = catalog.NewRegistry(f)

	// Step 5: Build the editor, outbound client and preview sessions.
	h.Workspace = store.NewWorkspace(backend, zap.NewNop(), store.Options{})
	h.Client = invoker.NewClient(cfg.Submission, nil, zap.NewNop())
	actions := workflow.NewEngine(h.Client, nil, zap.NewNop())
	h.Sessions = session.NewManager(func(string) session.Deps {
		return session.Deps{
			Engine:   render.NewEngine(zap.NewNop()),
			Caller:   h.Client,
			Actions:  actions,
			Notifier: notify.NewQueue(time.Minute, 20, zap.NewNop()),
		}
	})
	t.Cleanup(h.Sessions.CloseAll)
	h.Workspace.OnOpen(func(projectID string, s *store.Store) {
		h.Sessions.Attach(projectID, s)
	})

	// Step 6: Build router.
	deps := transport.Dependencies{
		Config:    cfg,
		Logger:    zap.NewNop(),
		Workspace: h.Workspace,
		Catalog:   h.Catalog,
		Resolver:  dnd.NewResolver(h.Catalog, nil, zap.NewNop()),
		Sessions:  h.Sessions,
		Readiness: observability.ReadinessChecks{
			CatalogLoaded: func() bool { return h.Catalog.Len() > 0 },
			Storage:       backend,
		},
	}
	if hc.idempotencyEnabled {
		h.IdempotencyStore = transport.NewMemoryIdempotencyStore()
		deps.Idempotency = h.IdempotencyStore
		deps.IdempotencyTTL = time.Hour
	}

	// Step 7: Start test server.
	h.server = httptest.NewServer(transport.NewRouter(deps))
	t.Cleanup(h.server.Close)

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// MockBackend returns the backend that submissions and REST calls reach.
func (h *TestHarness) MockBackend() *MockBackend {
	return h.mock
}

// Reopen builds a fresh workspace over the same storage, as a restarted
// server would.
func (h *TestHarness) Reopen() *store.Workspace {
	return store.NewWorkspace(h.Backend, zap.NewNop(), store.Options{})
}

// --- HTTP client helpers ---

// GET performs a GET request.
func (h *TestHarness) GET(path string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, nil)
}

// POST performs a POST request with a JSON body.
func (h *TestHarness) POST(path string, body any) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, nil)
}

// POSTWithHeaders performs a POST request with additional headers.
func (h *TestHarness) POSTWithHeaders(path string, body any, headers map[string]string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, headers)
}

// Do performs a request with any method.
func (h *TestHarness) Do(method, path string, body any) *http.Response {
	h.t.Helper()
	return h.doRequest(method, path, body, nil)
}

func (h *TestHarness) doRequest(method, path string, body any, headers map[string]string) *http.Response {
	h.t.Helper()

	url := h.server.URL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// ReadBody reads and returns the response body as a string.
func (h *TestHarness) ReadBody(resp *http.Response) string {
	h.t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	return string(data)
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks that the response has the expected status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// --- Editor helpers ---

// CommandResult mirrors the response of every document command.
type CommandResult struct {
	Applied bool   `json:"applied"`
	ID      string `json:"id"`
	Version uint64 `json:"version"`
}

// AddNode adds node under parentID (the page root when empty) and returns
// the stored id.
func (h *TestHarness) AddNode(project, parentID string, node map[string]any) string {
	h.t.Helper()
	var res CommandResult
	h.AssertJSON(h.t, h.POST("/api/projects/"+project+"/nodes", map[string]any{
		"parentId": parentID,
		"node":     node,
	}), http.StatusOK, &res)
	if !res.Applied {
		h.t.Fatalf("add node %v not applied", node)
	}
	return res.ID
}

// Preview returns the rendered preview HTML.
func (h *TestHarness) Preview(project string) string {
	h.t.Helper()
	resp := h.GET("/api/projects/" + project + "/preview")
	if resp.StatusCode != http.StatusOK {
		h.t.Fatalf("preview status = %d: %s", resp.StatusCode, h.ReadBody(resp))
	}
	return h.ReadBody(resp)
}

// PreviewState mirrors the response of a preview event.
type PreviewState struct {
	PageID string           `json:"pageId"`
	Dark   bool             `json:"dark"`
	Vars   map[string]any   `json:"vars"`
	Toasts []map[string]any `json:"toasts"`
}

// Dispatch sends a preview event and returns the resulting state.
func (h *TestHarness) Dispatch(project string, event map[string]any) PreviewState {
	h.t.Helper()
	var state PreviewState
	h.AssertJSON(h.t, h.POST("/api/projects/"+project+"/preview/events", event), http.StatusOK, &state)
	return state
}
