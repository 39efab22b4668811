package transport

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/pitabwire/studio/internal/dnd"
	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/model"
)

func TestHandler_addNodeUndoRedo(t *testing.T) {
	r := NewRouter(testDeps(t))

	w := do(t, r, "POST", "/api/projects/p1/nodes", map[string]any{
		"node": map[string]any{"type": "Button", "props": map[string]any{"text": "Go"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	res := decodeResult(t, w)
	if !res.Applied || res.ID == "" {
		t.Fatalf("result = %+v, want applied with id", res)
	}

	snap := snapshot(t, r, "p1")
	if _, ok := tree.Find(rootOf(snap), res.ID); !ok {
		t.Fatalf("node %q not in tree", res.ID)
	}
	if !snap.CanUndo {
		t.Error("CanUndo = false after add")
	}

	if res := decodeResult(t, do(t, r, "POST", "/api/projects/p1/undo", nil)); !res.Applied {
		t.Error("undo not applied")
	}
	if _, ok := tree.Find(rootOf(snapshot(t, r, "p1")), res.ID); ok {
		t.Error("node still present after undo")
	}

	if res := decodeResult(t, do(t, r, "POST", "/api/projects/p1/redo", nil)); !res.Applied {
		t.Error("redo not applied")
	}
	if _, ok := tree.Find(rootOf(snapshot(t, r, "p1")), res.ID); !ok {
		t.Error("node missing after redo")
	}
}

func TestHandler_addNodeUnknownComponent(t *testing.T) {
	r := NewRouter(testDeps(t))
	w := do(t, r, "POST", "/api/projects/p1/nodes", map[string]any{
		"node": map[string]any{"type": "Hologram"},
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var body struct {
		Error model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if body.Error.Code != model.ErrUnknownComponent {
		t.Errorf("code = %q, want %q", body.Error.Code, model.ErrUnknownComponent)
	}
}

func TestHandler_invalidJSON(t *testing.T) {
	r := NewRouter(testDeps(t))
	w := do(t, r, "POST", "/api/projects/p1/nodes", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandler_moveAndRemove(t *testing.T) {
	r := NewRouter(testDeps(t))

	card := decodeResult(t, do(t, r, "POST", "/api/projects/p1/nodes", map[string]any{
		"node": map[string]any{"type": "Card"},
	}))
	text := decodeResult(t, do(t, r, "POST", "/api/projects/p1/nodes", map[string]any{
		"node": map[string]any{"type": "Text"},
	}))

	if res := decodeResult(t, do(t, r, "POST", "/api/projects/p1/nodes/"+text.ID+"/move", map[string]any{
		"parentId": card.ID,
	})); !res.Applied {
		t.Fatal("move not applied")
	}
	parent, _ := tree.Find(rootOf(snapshot(t, r, "p1")), card.ID)
	if len(parent.Children) != 1 || parent.Children[0].ID != text.ID {
		t.Fatalf("card children = %v, want [%s]", parent.Children, text.ID)
	}

	// Moving a node into its own subtree is rejected.
	if res := decodeResult(t, do(t, r, "POST", "/api/projects/p1/nodes/"+card.ID+"/move", map[string]any{
		"parentId": text.ID,
	})); res.Applied {
		t.Error("cyclic move applied")
	}

	if res := decodeResult(t, do(t, r, "DELETE", "/api/projects/p1/nodes/"+card.ID, nil)); !res.Applied {
		t.Fatal("remove not applied")
	}
	if _, ok := tree.Find(rootOf(snapshot(t, r, "p1")), text.ID); ok {
		t.Error("descendant survived removal")
	}
}

func TestHandler_updatePropsAndBindings(t *testing.T) {
	r := NewRouter(testDeps(t))
	n := decodeResult(t, do(t, r, "POST", "/api/projects/p1/nodes", map[string]any{
		"node": map[string]any{"type": "Text", "props": map[string]any{"text": "a"}},
	}))

	do(t, r, "PATCH", "/api/projects/p1/nodes/"+n.ID+"/props", map[string]any{"text": "b", "size": "lg"})
	do(t, r, "PATCH", "/api/projects/p1/nodes/"+n.ID+"/bindings", map[string]string{"text": "{{ vars.title }}"})

	got, _ := tree.Find(rootOf(snapshot(t, r, "p1")), n.ID)
	if got.Props["text"] != "b" || got.Props["size"] != "lg" {
		t.Errorf("props = %v", got.Props)
	}
	if got.Bindings["text"] != "{{ vars.title }}" {
		t.Errorf("bindings = %v", got.Bindings)
	}
}

func TestHandler_pages(t *testing.T) {
	r := NewRouter(testDeps(t))
	home := snapshot(t, r, "p1").CurrentPageID

	about := decodeResult(t, do(t, r, "POST", "/api/projects/p1/pages", map[string]any{"name": "About"}))
	if !about.Applied || about.ID == "" {
		t.Fatalf("add page = %+v", about)
	}
	if snapshot(t, r, "p1").CurrentPageID != about.ID {
		t.Error("new page should become current")
	}

	if res := decodeResult(t, do(t, r, "PUT", "/api/projects/p1/current-page", map[string]string{"pageId": home})); !res.Applied {
		t.Error("set current page not applied")
	}
	if res := decodeResult(t, do(t, r, "DELETE", "/api/projects/p1/pages/"+about.ID, nil)); !res.Applied {
		t.Error("remove page not applied")
	}
	if n := len(snapshot(t, r, "p1").App.Pages); n != 1 {
		t.Errorf("pages = %d, want 1", n)
	}
}

func TestHandler_variablesAndDataSources(t *testing.T) {
	r := NewRouter(testDeps(t))

	if w := do(t, r, "POST", "/api/projects/p1/variables", map[string]any{"type": "string"}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("nameless variable status = %d, want 422", w.Code)
	}
	if res := decodeResult(t, do(t, r, "POST", "/api/projects/p1/variables", map[string]any{"name": "title", "type": "string", "initial": "Hi"})); !res.Applied {
		t.Error("add variable not applied")
	}
	if w := do(t, r, "POST", "/api/projects/p1/data-sources", map[string]any{"name": "api", "kind": "graphql"}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad kind status = %d, want 422", w.Code)
	}
	if res := decodeResult(t, do(t, r, "POST", "/api/projects/p1/data-sources", map[string]any{"name": "api", "kind": "rest", "baseUrl": "https://api.example.com"})); !res.Applied {
		t.Error("add data source not applied")
	}

	snap := snapshot(t, r, "p1")
	if len(snap.App.Variables) != 1 || len(snap.App.DataSources) != 1 {
		t.Errorf("variables = %d, data sources = %d", len(snap.App.Variables), len(snap.App.DataSources))
	}
}

func TestHandler_patchProject(t *testing.T) {
	r := NewRouter(testDeps(t))
	do(t, r, "PATCH", "/api/projects/p1", map[string]any{"name": "Shop"})
	if got := snapshot(t, r, "p1").App.Name; got != "Shop" {
		t.Errorf("name = %q, want Shop", got)
	}
}

func TestHandler_selectionAndCanvasDark(t *testing.T) {
	r := NewRouter(testDeps(t))
	do(t, r, "PUT", "/api/projects/p1/selection", map[string]any{"ids": []string{"a", "b"}})
	do(t, r, "PUT", "/api/projects/p1/canvas-dark", map[string]any{"dark": true})

	snap := snapshot(t, r, "p1")
	if len(snap.Selection) != 2 {
		t.Errorf("selection = %v", snap.Selection)
	}
	if !snap.CanvasDark {
		t.Error("CanvasDark = false")
	}
}

func TestHandler_saveAndList(t *testing.T) {
	r := NewRouter(testDeps(t))
	do(t, r, "POST", "/api/projects/p1/seed", nil)
	if w := do(t, r, "POST", "/api/projects/p1/save", nil); w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", w.Code, w.Body.String())
	}
	if snapshot(t, r, "p1").Dirty {
		t.Error("Dirty = true after save")
	}

	w := do(t, r, "GET", "/api/projects", nil)
	var body struct {
		Projects []string `json:"projects"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Projects) != 1 || body.Projects[0] != "p1" {
		t.Errorf("projects = %v, want [p1]", body.Projects)
	}
}

func TestHandler_paletteClickAndDrop(t *testing.T) {
	r := NewRouter(testDeps(t))

	w := do(t, r, "POST", "/api/projects/p1/palette/Card", nil)
	var out dnd.Outcome
	json.NewDecoder(w.Body).Decode(&out)
	if !out.Applied || out.Kind != dnd.KindAdd {
		t.Fatalf("click outcome = %+v", out)
	}

	w = do(t, r, "POST", "/api/projects/p1/dnd", dnd.DragEnd{
		Payload: dnd.Payload{Type: "Text"},
		Target:  "drop:" + out.NodeID,
	})
	var dropped dnd.Outcome
	json.NewDecoder(w.Body).Decode(&dropped)
	if !dropped.Applied || dropped.ParentID != out.NodeID {
		t.Errorf("drop outcome = %+v, want parent %s", dropped, out.NodeID)
	}

	w = do(t, r, "POST", "/api/projects/p1/dnd", dnd.DragEnd{
		Payload: dnd.Payload{Type: "Text"},
		Target:  "nowhere",
	})
	var ignored dnd.Outcome
	json.NewDecoder(w.Body).Decode(&ignored)
	if ignored.Applied {
		t.Error("drop on unknown target applied")
	}

	if w := do(t, r, "POST", "/api/projects/p1/palette/Hologram", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown palette type status = %d, want 422", w.Code)
	}
}

func TestHandler_catalog(t *testing.T) {
	r := NewRouter(testDeps(t))
	w := do(t, r, "GET", "/api/catalog", nil)
	var body catalogResponse
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Items) == 0 || len(body.Categories) == 0 {
		t.Fatalf("catalog = %+v", body)
	}
	if body.Source != "builtin" {
		t.Errorf("source = %q, want builtin", body.Source)
	}

	w = do(t, r, "GET", "/api/catalog?category="+body.Categories[0], nil)
	var filtered catalogResponse
	json.NewDecoder(w.Body).Decode(&filtered)
	for _, it := range filtered.Items {
		if it.Category != body.Categories[0] {
			t.Errorf("item %s category = %q", it.Type, it.Category)
		}
	}
}

func TestHandler_preview(t *testing.T) {
	r := NewRouter(testDeps(t))
	btn := decodeResult(t, do(t, r, "POST", "/api/projects/p1/nodes", map[string]any{
		"node": map[string]any{"type": "Button", "props": map[string]any{"text": "Hi", "onClickToast": "Hello"}},
	}))

	w := do(t, r, "GET", "/api/projects/p1/preview", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), `data-node-id="`+btn.ID+`"`) {
		t.Errorf("preview missing button: %s", w.Body.String())
	}

	w = do(t, r, "POST", "/api/projects/p1/preview/events", map[string]string{"nodeId": btn.ID, "action": "click"})
	if w.Code != http.StatusOK {
		t.Fatalf("event status = %d, body %s", w.Code, w.Body.String())
	}
	var state previewState
	json.NewDecoder(w.Body).Decode(&state)
	if len(state.Toasts) != 1 || state.Toasts[0].Message != "Hello" {
		t.Errorf("toasts = %+v, want [Hello]", state.Toasts)
	}

	if w := do(t, r, "POST", "/api/projects/p1/preview/events", map[string]string{"nodeId": "ghost", "action": "click"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown node status = %d, want 404", w.Code)
	}
	if w := do(t, r, "POST", "/api/projects/p1/preview/events", map[string]string{"nodeId": btn.ID, "action": "fly"}); w.Code != http.StatusBadRequest {
		t.Errorf("unsupported action status = %d, want 400", w.Code)
	}
}
