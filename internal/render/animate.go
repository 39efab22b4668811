package render

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pitabwire/studio/model"
)

// Animation triggers.
const (
	TriggerMount  = "mount"
	TriggerHover  = "hover"
	TriggerInView = "inView"
)

// Animation phases exposed as data-state.
const (
	phaseIdle    = "idle"
	phaseRunning = "running"
	phaseDone    = "done"
)

// animate is an entrance wrapper. Each start bumps the restart key and arms
// a timer that marks the animation done after its full duration.
type animate struct {
	mu        sync.Mutex
	afterFunc func(time.Duration, func()) Timer
	mounted   bool
	key       int
	seen      bool
	phase     string
	timer     Timer
}

func newAnimate(e *Engine) Instance {
	return &animate{afterFunc: e.afterFunc, phase: phaseIdle}
}

func (a *animate) Mount() {
	a.mu.Lock()
	a.mounted = true
	a.mu.Unlock()
}

func (a *animate) Unmount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mounted = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// Key returns the restart key.
func (a *animate) Key() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key
}

// Phase returns the current phase.
func (a *animate) Phase() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.phase
}

func (a *animate) startLocked(total time.Duration) {
	if !a.mounted {
		return
	}
	a.key++
	a.phase = phaseRunning
	if a.timer != nil {
		a.timer.Stop()
	}
	key := a.key
	a.timer = a.afterFunc(total, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.key == key && a.mounted {
			a.phase = phaseDone
			a.timer = nil
		}
	})
}

func animationTiming(n *model.ComponentNode) (duration, delay, stagger time.Duration) {
	duration = time.Duration(n.Props.Int("durationMs", 500)) * time.Millisecond
	delay = time.Duration(n.Props.Int("delayMs", 0)) * time.Millisecond
	stagger = time.Duration(n.Props.Int("staggerMs", 0)) * time.Millisecond
	return duration, delay, stagger
}

func totalDuration(n *model.ComponentNode) time.Duration {
	duration, delay, stagger := animationTiming(n)
	total := duration + delay
	if stagger > 0 && len(n.Children) > 1 {
		total += stagger * time.Duration(len(n.Children)-1)
	}
	return total
}

func (a *animate) Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	a.mu.Lock()
	if a.key == 0 && n.Props.String("trigger", TriggerMount) == TriggerMount {
		a.startLocked(totalDuration(n))
	}
	key, phase := a.key, a.phase
	a.mu.Unlock()

	duration, delay, stagger := animationTiming(n)
	trigger := n.Props.String("trigger", TriggerMount)
	el := El("div").
		Set("data-animation", n.Props.String("animation", "fade-in")).
		Set("data-trigger", trigger).
		Set("data-state", phase).
		Set("data-key", strconv.Itoa(key)).
		Class(n.Props.String("className", ""))
	switch trigger {
	case TriggerHover:
		el.Set(AttrAction, ActionEnter)
	case TriggerInView:
		el.Set(AttrAction, ActionInView)
	}

	if stagger <= 0 {
		el.Set("style", animationStyle(duration, delay))
		return el.Append(e.RenderChildren(n, env, h)...)
	}
	for i, c := range n.Children {
		el.Append(El("div", e.Render(c, env, h)).
			Set("style", animationStyle(duration, delay+time.Duration(i)*stagger)))
	}
	return el
}

func animationStyle(duration, delay time.Duration) string {
	return "animation-duration: " + strconv.FormatInt(duration.Milliseconds(), 10) +
		"ms; animation-delay: " + strconv.FormatInt(delay.Milliseconds(), 10) + "ms"
}

func (a *animate) Handle(_ context.Context, _ *Engine, n *model.ComponentNode, _ *Env, _ Handlers, ev Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	trigger := n.Props.String("trigger", TriggerMount)
	switch {
	case ev.Action == ActionEnter && trigger == TriggerHover:
		a.startLocked(totalDuration(n))
	case ev.Action == ActionInView && trigger == TriggerInView:
		if a.seen && n.Props.Bool("once", true) {
			return nil
		}
		a.seen = true
		a.startLocked(totalDuration(n))
	default:
		return unsupported(n, ev)
	}
	return nil
}
