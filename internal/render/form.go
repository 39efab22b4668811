package render

import (
	"context"
	"strings"

	"github.com/pitabwire/studio/internal/invoker"
	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/model"
)

// fieldTypes are the node types Forms lays out with a label.
var fieldTypes = map[string]bool{
	model.TypeInput:      true,
	model.TypeTextarea:   true,
	model.TypeSelect:     true,
	model.TypeSwitch:     true,
	model.TypeDate:       true,
	model.TypeTime:       true,
	model.TypeDatePicker: true,
}

// form is the submission boundary shared by Form and Forms. Submission
// failures become notifications and never reach the caller.
type form struct {
	grid bool
}

func (f form) Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	el := El("form").
		Set("method", submissionMethod(n)).
		Set(AttrAction, ActionSubmit).
		Class(n.Props.String("className", ""))
	if path := n.Props.String("path", ""); path != "" {
		el.Set("action", path)
	}
	if !f.grid {
		return el.Append(e.RenderChildren(n, env, h)...)
	}

	grid := El("div").Class("grid grid-cols-1 md:grid-cols-" + n.Props.String("cols", "2") + " gap-4")
	for _, c := range n.Children {
		child := e.Render(c, env, h)
		if !fieldTypes[c.Type] {
			grid.Append(child)
			continue
		}
		label := El("label", TextNode(fieldLabel(c)))
		if name := child.Attr("name"); name != "" {
			child.Set("id", name)
			label.Set("for", name)
		}
		grid.Append(El("div", label, child).Class("flex flex-col gap-2"))
	}
	buttons := El("div",
		El("button", TextNode(n.Props.String("submitText", "Submit"))).Set("type", "submit"),
	).Class("flex gap-2")
	if n.Props.Bool("showReset", true) {
		buttons.Append(El("button", TextNode(n.Props.String("resetText", "Reset"))).
			Set("type", "reset").
			Set("data-variant", "outline"))
	}
	return el.Append(grid, buttons)
}

func (f form) Handle(ctx context.Context, _ *Engine, n *model.ComponentNode, env *Env, h Handlers, ev Event) error {
	if ev.Action != ActionSubmit {
		return unsupported(n, ev)
	}
	var app *model.AppSchema
	if env != nil {
		app = env.App
	}
	sub := Submission{
		NodeID: n.ID,
		Method: submissionMethod(n),
		URL:    SubmissionURL(app, n.Props.String("path", "")),
		Fields: namedFields(n, ev.Fields),
	}
	if err := h.Submit(ctx, sub); err != nil {
		h.Notify(model.Toast{
			Message: n.Props.String("errorMessage", "Submission failed") + ": " + err.Error(),
			Variant: model.ToastError,
		})
		return nil
	}
	h.Notify(model.Toast{
		Message: n.Props.String("successMessage", "Submitted successfully"),
		Variant: model.ToastSuccess,
	})
	h.RunActions(ctx, n, model.TriggerSubmit)
	return nil
}

// SubmissionURL composes the target of a form submission. Backends that
// host an API join their base URL with path; anything else uses path as is.
func SubmissionURL(app *model.AppSchema, path string) string {
	if app != nil && app.Backend.JoinsURL() {
		return invoker.JoinURL(app.Backend.BaseURL, path)
	}
	return path
}

func submissionMethod(n *model.ComponentNode) string {
	return strings.ToUpper(n.Props.String("method", "POST"))
}

func fieldLabel(n *model.ComponentNode) string {
	if l := n.Props.String("label", ""); l != "" {
		return l
	}
	if n.Name != "" {
		return n.Name
	}
	return n.Props.String("name", n.Type)
}

// namedFields keeps the submitted values whose keys match a field name
// declared under n. Without declared names every value is kept.
func namedFields(n *model.ComponentNode, values map[string]any) map[string]any {
	names := make(map[string]bool)
	tree.Walk(n, func(c *model.ComponentNode, _ int) bool {
		if c != n {
			if name := c.Props.String("name", ""); name != "" {
				names[name] = true
			}
		}
		return true
	})
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(names) == 0 || names[k] {
			out[k] = v
		}
	}
	return out
}
