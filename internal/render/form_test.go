package render

import (
	"context"
	"strings"
	"testing"

	"github.com/pitabwire/studio/model"
)

func TestSubmissionURL(t *testing.T) {
	tests := []struct {
		name    string
		backend *model.Backend
		path    string
		want    string
	}{
		{"rest joins", &model.Backend{Kind: model.BackendREST, BaseURL: "https://api.example.com"}, "/submit", "https://api.example.com/submit"},
		{"supabase joins", &model.Backend{Kind: model.BackendSupabase, BaseURL: "https://x.supabase.co/"}, "rest/v1/rows", "https://x.supabase.co/rest/v1/rows"},
		{"webhook verbatim", &model.Backend{Kind: model.BackendWebhook, BaseURL: "https://ignored"}, "https://hooks.example.com/abc", "https://hooks.example.com/abc"},
		{"no backend", nil, "https://api.example.com/x", "https://api.example.com/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &model.AppSchema{Backend: tt.backend}
			if got := SubmissionURL(app, tt.path); got != tt.want {
				t.Errorf("SubmissionURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func formFixture(typ string) (*model.ComponentNode, *Env) {
	f := node("f1", typ, model.Props{"path": "/submit"},
		node("i1", model.TypeInput, model.Props{"name": "name", "label": "Your name"}),
		node("i2", model.TypeSwitch, model.Props{"name": "agree"}),
	)
	app := &model.AppSchema{Backend: &model.Backend{Kind: model.BackendREST, BaseURL: "https://api.example.com"}}
	return node("root", model.TypeRoot, nil, f), &Env{App: app}
}

func TestForm_submitSuccess(t *testing.T) {
	root, env := formFixture(model.TypeForm)
	e := NewEngine(nil)
	h := &recordingHandlers{}

	ev := Event{NodeID: "f1", Action: ActionSubmit, Fields: map[string]any{"name": "x", "stray": "y"}}
	if err := e.Dispatch(context.Background(), root, env, h, ev); err != nil {
		t.Fatalf("Dispatch(submit) error: %v", err)
	}
	if len(h.submissions) != 1 {
		t.Fatalf("submissions = %d, want 1", len(h.submissions))
	}
	sub := h.submissions[0]
	if sub.Method != "POST" || sub.URL != "https://api.example.com/submit" {
		t.Errorf("submission = %s %s, want POST https://api.example.com/submit", sub.Method, sub.URL)
	}
	if len(sub.Fields) != 1 || sub.Fields["name"] != "x" {
		t.Errorf("fields = %v, want {name: x}", sub.Fields)
	}
	if len(h.toasts) != 1 || h.toasts[0].Variant != model.ToastSuccess {
		t.Errorf("toasts = %v, want one success", h.toasts)
	}
	if len(h.actions) != 1 || h.actions[0] != "f1:onSubmit" {
		t.Errorf("actions = %v, want [f1:onSubmit]", h.actions)
	}
}

func TestForm_submitFailureNotifiesStatus(t *testing.T) {
	root, env := formFixture(model.TypeForm)
	e := NewEngine(nil)
	h := &recordingHandlers{submitErr: &StatusError{StatusCode: 502}}

	if err := e.Dispatch(context.Background(), root, env, h, Event{NodeID: "f1", Action: ActionSubmit}); err != nil {
		t.Fatalf("Dispatch(submit) error: %v", err)
	}
	if len(h.toasts) != 1 {
		t.Fatalf("toasts = %d, want 1", len(h.toasts))
	}
	if h.toasts[0].Variant != model.ToastError || !strings.Contains(h.toasts[0].Message, "502") {
		t.Errorf("toast = %+v, want error containing 502", h.toasts[0])
	}
	if len(h.actions) != 0 {
		t.Errorf("actions = %v, want none after failure", h.actions)
	}
}

func TestForms_layout(t *testing.T) {
	root, env := formFixture(model.TypeForms)
	e := NewEngine(nil)
	el := e.Render(root.Children[0], env, &recordingHandlers{})

	labels := el.FindAll(ByTag("label"))
	if len(labels) != 2 {
		t.Fatalf("labels = %d, want 2", len(labels))
	}
	if labels[0].TextContent() != "Your name" || labels[0].Attr("for") != "name" {
		t.Errorf("first label = %q for %q", labels[0].TextContent(), labels[0].Attr("for"))
	}
	if labels[1].TextContent() != "agree" {
		t.Errorf("second label = %q, want agree", labels[1].TextContent())
	}
	if b := el.Find(ByAttr("type", "submit")); b == nil || b.TextContent() != "Submit" {
		t.Error("submit button missing")
	}
	if b := el.Find(ByAttr("type", "reset")); b == nil || b.TextContent() != "Reset" {
		t.Error("reset button missing")
	}
}

func TestForms_hideReset(t *testing.T) {
	e := NewEngine(nil)
	el := e.Render(node("f1", model.TypeForms, model.Props{"showReset": false, "submitText": "Send"}), &Env{}, &recordingHandlers{})
	if el.Find(ByAttr("type", "reset")) != nil {
		t.Error("reset button rendered with showReset=false")
	}
	if b := el.Find(ByAttr("type", "submit")); b == nil || b.TextContent() != "Send" {
		t.Error("submit text not applied")
	}
}
