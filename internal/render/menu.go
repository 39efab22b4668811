package render

import (
	"context"

	"github.com/pitabwire/studio/model"
)

// Menu layouts.
const (
	LayoutTop      = "top"
	LayoutSidebar  = "sidebar"
	LayoutFloating = "floating"
)

// menu is a navigation bar bound to the app pages.
type menu struct{}

func (menu) Render(_ *Engine, n *model.ComponentNode, env *Env, _ Handlers) *Element {
	var app *model.AppSchema
	var current string
	var dark bool
	if env != nil {
		app, current, dark = env.App, env.PageID, env.Dark
	}
	nav := El("nav").Set("data-layout", menuLayout(n)).Class(menuClass(n, app))
	if app == nil {
		return nav
	}
	for _, p := range app.Pages {
		nav.Append(El("button", TextNode(p.Name)).
			Set("type", "button").
			Set(AttrNodeID, n.ID).
			Set(AttrAction, ActionNavigate).
			Set(AttrValue, p.ID).
			SetIf(p.ID == current, "aria-current", "page"))
	}
	if app.Theme.HasDarkMode() && n.Props.Bool("showTheme", false) {
		label := "Dark"
		if dark {
			label = "Light"
		}
		nav.Append(El("button", TextNode(label)).
			Set("type", "button").
			Set(AttrNodeID, n.ID).
			Set(AttrAction, ActionTheme))
	}
	return nav
}

func (menu) Handle(_ context.Context, _ *Engine, n *model.ComponentNode, env *Env, h Handlers, ev Event) error {
	switch ev.Action {
	case ActionNavigate:
		if env == nil || env.App == nil {
			return unsupported(n, ev)
		}
		if _, ok := env.App.PageByID(ev.Value); !ok {
			return unsupported(n, ev)
		}
		h.Navigate(ev.Value)
	case ActionTheme:
		h.ToggleDark()
	default:
		return unsupported(n, ev)
	}
	return nil
}

func menuLayout(n *model.ComponentNode) string {
	switch l := n.Props.String("layout", LayoutTop); l {
	case LayoutSidebar, LayoutFloating:
		return l
	}
	return LayoutTop
}

func menuClass(n *model.ComponentNode, app *model.AppSchema) string {
	var class string
	switch menuLayout(n) {
	case LayoutSidebar:
		side, border := "left-0", "border-r"
		if n.Props.String("side", "left") == "right" {
			side, border = "right-0", "border-l"
		}
		class = "fixed top-0 " + side + " h-full w-" + n.Props.String("width", "60") +
			" flex flex-col gap-1 " + border + " p-2"
	case LayoutFloating:
		vertical, horizontal := "top-4", "right-4"
		switch n.Props.String("corner", "top-right") {
		case "top-left":
			horizontal = "left-4"
		case "bottom-left":
			vertical, horizontal = "bottom-4", "left-4"
		case "bottom-right":
			vertical = "bottom-4"
		}
		class = "fixed " + vertical + " " + horizontal + " z-50 flex flex-col gap-1 rounded-md border p-2 shadow"
	default:
		align := n.Props.String("align", "")
		if align == "" && app != nil && app.Nav != nil {
			align = app.Nav.Align
		}
		justify := "justify-start"
		switch align {
		case "center":
			justify = "justify-center"
		case "right":
			justify = "justify-end"
		}
		class = "flex items-center " + justify + " gap-2 border-b p-2"
	}
	if app != nil && app.Nav != nil && app.Nav.ClassName != "" {
		class += " " + app.Nav.ClassName
	}
	if extra := n.Props.String("className", ""); extra != "" {
		class += " " + extra
	}
	return class
}
