package integration

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pitabwire/studio/internal/config"
)

// buildContactForm opens project with its backend pointed at the mock and
// adds a form posting to /contact. It returns the form id.
func buildContactForm(t *testing.T, h *TestHarness, project string) string {
	t.Helper()
	openProject(t, h, project)
	h.AssertStatus(t, h.Do(http.MethodPatch, "/api/projects/"+project, map[string]any{
		"backend": map[string]any{"kind": "rest", "baseUrl": h.MockBackend().URL()},
	}), http.StatusOK)

	form := h.AddNode(project, "", map[string]any{
		"type":  "Form",
		"props": map[string]any{"path": "/contact", "successMessage": "Thanks!"},
	})
	h.AddNode(project, form, map[string]any{"type": "Input", "props": map[string]any{"name": "email"}})
	return form
}

func TestPreview_RendersPage(t *testing.T) {
	h := NewTestHarness(t)
	openProject(t, h, "demo")
	h.AddNode("demo", "", map[string]any{"type": "Heading", "props": map[string]any{"text": "Storefront"}})

	html := h.Preview("demo")
	if !strings.Contains(html, "Storefront") {
		t.Errorf("preview does not contain heading text:\n%s", html)
	}
	if !strings.Contains(html, "data-page-id") {
		t.Errorf("preview root carries no page id:\n%s", html)
	}
}

func TestPreview_FormSubmission(t *testing.T) {
	h := NewTestHarness(t)
	form := buildContactForm(t, h, "demo")
	h.MockBackend().On(http.MethodPost, "/contact").RespondWith(http.StatusCreated, map[string]any{"id": 1})

	state := h.Dispatch("demo", map[string]any{
		"nodeId": form,
		"action": "submit",
		"fields": map[string]any{"email": "a@example.com", "ignored": "x"},
	})

	h.MockBackend().AssertCalled(t, http.MethodPost, "/contact", 1)
	req := h.MockBackend().LastRequest(http.MethodPost, "/contact")
	if req == nil {
		t.Fatal("backend received no request")
	}
	if req.Body["email"] != "a@example.com" {
		t.Errorf("submitted email = %v, want a@example.com", req.Body["email"])
	}
	if _, ok := req.Body["ignored"]; ok {
		t.Error("undeclared field was submitted")
	}
	if len(state.Toasts) != 1 || state.Toasts[0]["message"] != "Thanks!" {
		t.Errorf("toasts = %v, want [Thanks!]", state.Toasts)
	}
}

func TestPreview_FormSubmissionFailure(t *testing.T) {
	h := NewTestHarness(t)
	form := buildContactForm(t, h, "demo")
	h.MockBackend().On(http.MethodPost, "/contact").RespondWith(http.StatusInternalServerError, map[string]any{"error": "boom"})

	state := h.Dispatch("demo", map[string]any{"nodeId": form, "action": "submit"})
	if len(state.Toasts) != 1 {
		t.Fatalf("toasts = %v, want one", state.Toasts)
	}
	toast := state.Toasts[0]
	if toast["variant"] != "error" {
		t.Errorf("variant = %v, want error", toast["variant"])
	}
	if msg, _ := toast["message"].(string); !strings.Contains(msg, "500") {
		t.Errorf("message = %q, want it to mention 500", msg)
	}
}

func TestPreview_ButtonLoadsTable(t *testing.T) {
	h := NewTestHarness(t)
	openProject(t, h, "blog")

	h.MockBackend().On(http.MethodGet, "/posts").RespondWith(http.StatusOK, []map[string]any{
		{"id": 1, "title": "Hello world"},
		{"id": 2, "title": "Second post"},
	})
	h.AssertStatus(t, h.POST("/api/projects/blog/data-sources", map[string]any{
		"id": "ds-api", "name": "api", "kind": "rest", "baseUrl": h.MockBackend().URL(),
	}), http.StatusOK)

	button := h.AddNode("blog", "", map[string]any{
		"type":  "Button",
		"props": map[string]any{"text": "Load"},
		"events": []map[string]any{{
			"id":      "load",
			"trigger": "onClick",
			"actions": []map[string]any{{
				"type":         "callRest",
				"dataSourceId": "api",
				"path":         "/posts",
				"assignToVar":  "posts",
			}, {
				"type":        "toast",
				"messageExpr": "Loaded",
				"variant":     "success",
			}},
		}},
	})
	h.AddNode("blog", "", map[string]any{"type": "Table"})

	if html := h.Preview("blog"); !strings.Contains(html, "No data") {
		t.Errorf("table should be empty before loading:\n%s", html)
	}

	state := h.Dispatch("blog", map[string]any{"nodeId": button, "action": "click"})
	h.MockBackend().AssertCalled(t, http.MethodGet, "/posts", 1)
	posts, ok := state.Vars["posts"].([]any)
	if !ok || len(posts) != 2 {
		t.Fatalf("vars.posts = %v, want two rows", state.Vars["posts"])
	}
	var sawLoaded bool
	for _, toast := range state.Toasts {
		if toast["message"] == "Loaded" {
			sawLoaded = true
		}
	}
	if !sawLoaded {
		t.Errorf("toasts = %v, want Loaded", state.Toasts)
	}

	html := h.Preview("blog")
	for _, want := range []string{"Hello world", "Second post"} {
		if !strings.Contains(html, want) {
			t.Errorf("preview missing %q:\n%s", want, html)
		}
	}
}

func TestPreview_CallRestFailureStopsActions(t *testing.T) {
	h := NewTestHarness(t)
	openProject(t, h, "blog")

	h.MockBackend().On(http.MethodGet, "/posts").RespondWith(http.StatusBadGateway, nil)
	h.AssertStatus(t, h.POST("/api/projects/blog/data-sources", map[string]any{
		"name": "api", "kind": "rest", "baseUrl": h.MockBackend().URL(),
	}), http.StatusOK)
	button := h.AddNode("blog", "", map[string]any{
		"type": "Button",
		"events": []map[string]any{{
			"id":      "load",
			"trigger": "onClick",
			"actions": []map[string]any{
				{"type": "callRest", "dataSourceId": "api", "path": "/posts", "assignToVar": "posts"},
				{"type": "toast", "messageExpr": "Loaded"},
			},
		}},
	})

	state := h.Dispatch("blog", map[string]any{"nodeId": button, "action": "click"})
	if len(state.Toasts) != 1 || state.Toasts[0]["message"] != "Request failed: 502" {
		t.Errorf("toasts = %v, want [Request failed: 502]", state.Toasts)
	}
	if _, ok := state.Vars["posts"]; ok {
		t.Error("posts assigned after a failed call")
	}
}

func TestPreview_UnknownNodeAndAction(t *testing.T) {
	h := NewTestHarness(t)
	snap := openProject(t, h, "demo")
	rootID := snap.App.Pages[0].Root.ID

	h.AssertStatus(t, h.POST("/api/projects/demo/preview/events", map[string]any{
		"nodeId": "ghost", "action": "click",
	}), http.StatusNotFound)
	h.AssertStatus(t, h.POST("/api/projects/demo/preview/events", map[string]any{
		"nodeId": rootID, "action": "fly",
	}), http.StatusBadRequest)
}

func TestPreview_CircuitBreakerStopsSubmissions(t *testing.T) {
	h := NewTestHarness(t, WithSubmission(config.SubmissionConfig{
		Timeout: 2 * time.Second,
		CircuitBreaker: config.CircuitBreakerConfig{
			FailureThreshold: 2,
			SuccessThreshold: 1,
			Timeout:          time.Minute,
		},
	}))
	form := buildContactForm(t, h, "demo")
	h.MockBackend().On(http.MethodPost, "/contact").RespondWith(http.StatusServiceUnavailable, nil)

	for range 4 {
		state := h.Dispatch("demo", map[string]any{"nodeId": form, "action": "submit"})
		if len(state.Toasts) != 1 || state.Toasts[0]["variant"] != "error" {
			t.Fatalf("toasts = %v, want one error", state.Toasts)
		}
	}

	// The breaker opens after two failures; later submissions never leave.
	h.MockBackend().AssertCalled(t, http.MethodPost, "/contact", 2)
}

func TestPreview_ConnectionErrorBecomesToast(t *testing.T) {
	h := NewTestHarness(t)
	form := buildContactForm(t, h, "demo")
	h.MockBackend().On(http.MethodPost, "/contact").RespondWithConnectionError()

	state := h.Dispatch("demo", map[string]any{"nodeId": form, "action": "submit"})
	if len(state.Toasts) != 1 || state.Toasts[0]["variant"] != "error" {
		t.Errorf("toasts = %v, want one error", state.Toasts)
	}
}
