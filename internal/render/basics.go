package render

import (
	"context"
	"strconv"

	"github.com/pitabwire/studio/internal/expression"
	"github.com/pitabwire/studio/model"
)

func renderText(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	return El("p", TextNode(n.Props.String("text", ""))).Class(n.Props.String("className", ""))
}

func renderHeading(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	level := n.Props.Int("level", 2)
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return El("h"+strconv.Itoa(level), TextNode(n.Props.String("text", "Heading"))).
		Class(n.Props.String("className", ""))
}

func renderSeparator(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	return El("hr").Class(n.Props.String("className", ""))
}

func renderBadge(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	return El("span", TextNode(n.Props.String("text", "Badge"))).
		Class("badge", n.Props.String("className", "")).
		Set("data-variant", n.Props.String("variant", "default"))
}

func renderImage(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	return El("img").
		Set("src", n.Props.String("src", "")).
		Set("alt", n.Props.String("alt", "")).
		Class(n.Props.String("className", ""))
}

func renderAlert(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	el := El("div").
		Set("role", "alert").
		Set("data-variant", n.Props.String("variant", "default")).
		Class(n.Props.String("className", ""))
	if title := n.Props.String("title", ""); title != "" {
		el.Append(El("h5", TextNode(title)).Class("font-medium"))
	}
	return el.Append(El("div", TextNode(n.Props.String("text", ""))).Class("text-sm"))
}

// button notifies its onClickToast template and runs its onClick events.
type button struct{}

func (button) Render(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	return El("button", TextNode(n.Props.String("text", "Button"))).
		Set("type", "button").
		Set("data-variant", n.Props.String("variant", "default")).
		Set(AttrAction, ActionClick).
		Class(n.Props.String("className", ""))
}

func (button) Handle(ctx context.Context, _ *Engine, n *model.ComponentNode, env *Env, h Handlers, ev Event) error {
	if ev.Action != ActionClick {
		return unsupported(n, ev)
	}
	if tmpl := n.Props.String("onClickToast", ""); tmpl != "" {
		h.Notify(model.Toast{Message: expression.EvalTemplate(tmpl, env.runtime()), Variant: model.ToastInfo})
	}
	h.RunActions(ctx, n, model.TriggerClick)
	return nil
}

// field renders the input-like types. Change events run onChange actions.
type field struct{}

func (field) Render(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	var el *Element
	switch n.Type {
	case model.TypeTextarea:
		el = El("textarea").Set("placeholder", n.Props.String("placeholder", ""))
	case model.TypeSelect:
		el = renderSelect(n)
	case model.TypeSwitch:
		el = El("input").Set("type", "checkbox").Set("role", "switch").
			SetIf(n.Props.Bool("checked", false), "checked", "")
	case model.TypeDate:
		el = El("input").Set("type", "date")
	case model.TypeTime:
		el = El("input").Set("type", "time")
	default:
		el = El("input").Set("placeholder", n.Props.String("placeholder", ""))
	}
	name := n.Props.String("name", "")
	return el.SetIf(name != "", "name", name).
		Set(AttrAction, ActionChange).
		Class(n.Props.String("className", ""))
}

func (field) Handle(ctx context.Context, _ *Engine, n *model.ComponentNode, _ *Env, h Handlers, ev Event) error {
	if ev.Action != ActionChange {
		return unsupported(n, ev)
	}
	h.RunActions(ctx, n, model.TriggerChange)
	return nil
}

func renderSelect(n *model.ComponentNode) *Element {
	el := El("select").Set("data-placeholder", n.Props.String("placeholder", "Select"))
	for i, opt := range n.Props.Strings("options") {
		el.Append(El("option", TextNode(opt)).Set("value", opt).SetIf(i == 0, "selected", ""))
	}
	return el
}
