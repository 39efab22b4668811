package render

import (
	"sort"
	"strconv"

	"github.com/pitabwire/studio/internal/expression"
	"github.com/pitabwire/studio/model"
)

// tablePreviewRows caps the rows a Table shows.
const tablePreviewRows = 5

func renderRoot(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	return El("div", e.RenderChildren(n, env, h)...).Class("flex flex-col gap-4", n.Props.String("className", ""))
}

func renderFlex(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	direction, align := "flex-row", "center"
	if n.Type == model.TypeColumn {
		direction, align = "flex-col", "start"
	}
	class := "flex " + direction +
		" items-" + n.Props.String("align", align) +
		" justify-" + n.Props.String("justify", "start") +
		" gap-" + n.Props.String("gap", "4")
	return El("div", e.RenderChildren(n, env, h)...).Class(class, n.Props.String("className", ""))
}

func renderGrid(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	class := "grid grid-cols-" + n.Props.String("cols", "2") + " gap-" + n.Props.String("gap", "4")
	return El("div", e.RenderChildren(n, env, h)...).Class(class, n.Props.String("className", ""))
}

func renderCard(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	el := El("div").Class("rounded-lg border", n.Props.String("className", ""))
	if title := n.Props.String("title", ""); title != "" {
		el.Append(El("div", El("h3", TextNode(title)).Class("font-semibold")).Class("card-header p-6"))
	}
	return el.Append(El("div", e.RenderChildren(n, env, h)...).Class("card-content p-6 pt-0"))
}

// renderTabs shows the children under the first tab only; every other tab
// shows a placeholder.
func renderTabs(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	tabs := n.Props.Strings("tabs")
	if len(tabs) == 0 {
		tabs = []string{"One", "Two"}
	}
	strip := El("div").Set("role", "tablist")
	el := El("div", strip).Class(n.Props.String("className", ""))
	for i, tab := range tabs {
		strip.Append(El("button", TextNode(tab)).
			Set("type", "button").
			Set("role", "tab").
			Set("aria-selected", strconv.FormatBool(i == 0)))
		if i == 0 {
			el.Append(El("div", e.RenderChildren(n, env, h)...).Set("role", "tabpanel").Class("mt-2"))
			continue
		}
		el.Append(El("div", TextNode("Tab "+tab)).
			Set("role", "tabpanel").
			Set("hidden", "").
			Class("mt-2 text-sm text-muted-foreground"))
	}
	return el
}

func renderTable(_ *Engine, n *model.ComponentNode, env *Env, _ Handlers) *Element {
	rows := tableRows(env.runtime().Var("posts"))
	if len(rows) == 0 {
		return El("div", TextNode("No data")).Class("text-sm text-muted-foreground")
	}
	if len(rows) > tablePreviewRows {
		rows = rows[:tablePreviewRows]
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	head := El("tr")
	for _, c := range cols {
		head.Append(El("th", TextNode(c)))
	}
	body := El("tbody")
	for _, r := range rows {
		tr := El("tr")
		for _, c := range cols {
			tr.Append(El("td", TextNode(expression.Stringify(r[c]))))
		}
		body.Append(tr)
	}
	return El("table", El("thead", head), body).Class("w-full text-sm", n.Props.String("className", ""))
}

func tableRows(v any) []map[string]any {
	switch t := v.(type) {
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
