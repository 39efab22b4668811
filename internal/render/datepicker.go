package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pitabwire/studio/model"
)

const (
	dateLayout  = "2006-01-02"
	labelLayout = "Mon Jan 02 2006"
)

// datePicker holds the popover open flag and the selected date.
type datePicker struct {
	mu       sync.Mutex
	open     bool
	selected time.Time
}

func newDatePicker(*Engine) Instance { return &datePicker{} }

func (d *datePicker) Mount()   {}
func (d *datePicker) Unmount() {}

func (d *datePicker) Render(_ *Engine, n *model.ComponentNode, _ *Env, _ Handlers) *Element {
	d.mu.Lock()
	open, selected := d.open, d.selected
	d.mu.Unlock()

	label := "Pick a date"
	if !selected.IsZero() {
		label = selected.Format(labelLayout)
	}
	el := El("div",
		El("button", TextNode(label)).
			Set("type", "button").
			Set("data-variant", "outline").
			Set(AttrNodeID, n.ID).
			Set(AttrAction, ActionToggle),
	).Set("data-state", overlayState(open)).Class(n.Props.String("className", ""))
	if !open {
		return el
	}
	input := El("input").
		Set("type", "date").
		Set(AttrNodeID, n.ID).
		Set(AttrAction, ActionSelect)
	if !selected.IsZero() {
		input.Set("value", selected.Format(dateLayout))
	}
	return el.Append(El("div", input).Set("role", "dialog").Class("popover"))
}

func (d *datePicker) Handle(_ context.Context, _ *Engine, n *model.ComponentNode, _ *Env, _ Handlers, ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch ev.Action {
	case ActionToggle:
		d.open = !d.open
	case ActionOpen:
		d.open = true
	case ActionClose:
		d.open = false
	case ActionSelect:
		t, err := time.Parse(dateLayout, ev.Value)
		if err != nil {
			return fmt.Errorf("render: date %q: %w", ev.Value, err)
		}
		d.selected = t
		d.open = false
	default:
		return unsupported(n, ev)
	}
	return nil
}
