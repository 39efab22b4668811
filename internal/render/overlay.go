package render

import (
	"context"
	"sync"

	"github.com/pitabwire/studio/model"
)

// overlay backs Dialog, Sheet and Drawer. Its content is rendered only
// while open.
type overlay struct {
	mu   sync.Mutex
	open bool
}

func newOverlay(*Engine) Instance { return &overlay{} }

func (o *overlay) Mount()   {}
func (o *overlay) Unmount() {}

// SetOpen sets the open flag.
func (o *overlay) SetOpen(open bool) {
	o.mu.Lock()
	o.open = open
	o.mu.Unlock()
}

// IsOpen reports the open flag.
func (o *overlay) IsOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open
}

func (o *overlay) Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	open := o.IsOpen()
	trigger := El("button", TextNode(n.Props.String("triggerText", "Open "+n.Type))).
		Set("type", "button").
		Set("data-variant", "outline").
		Set(AttrNodeID, n.ID).
		Set(AttrAction, ActionOpen)
	el := El("div", trigger).
		Set("data-overlay", n.Type).
		Set("data-state", overlayState(open)).
		Class(n.Props.String("className", ""))
	if !open {
		return el
	}

	bodyClass := "mt-2"
	content := El("div").Set("role", "dialog")
	switch n.Type {
	case model.TypeSheet:
		content.Set("data-side", n.Props.String("side", "right"))
	case model.TypeDrawer:
		bodyClass = "mt-2 px-4 pb-4"
	}
	if title := n.Props.String("title", ""); title != "" {
		content.Append(El("h2", TextNode(title)).Class("text-lg font-semibold"))
	}
	if desc := n.Props.String("description", ""); desc != "" {
		content.Append(El("p", TextNode(desc)).Class("text-sm text-muted-foreground"))
	}
	content.Append(
		El("div", e.RenderChildren(n, env, h)...).Class(bodyClass),
		El("button", TextNode("Close")).
			Set("type", "button").
			Set(AttrNodeID, n.ID).
			Set(AttrAction, ActionClose),
	)
	return el.Append(content)
}

func (o *overlay) Handle(_ context.Context, _ *Engine, n *model.ComponentNode, _ *Env, _ Handlers, ev Event) error {
	switch ev.Action {
	case ActionOpen:
		o.SetOpen(true)
	case ActionClose:
		o.SetOpen(false)
	case ActionToggle:
		o.mu.Lock()
		o.open = !o.open
		o.mu.Unlock()
	default:
		return unsupported(n, ev)
	}
	return nil
}

func overlayState(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
