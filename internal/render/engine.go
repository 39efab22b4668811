// Package render interprets component trees into element trees. Each node
// type maps to a Component in a registry; Engine.Render is the single
// recursive entry point, and Engine.Dispatch routes user interactions back to
// the component that rendered the addressed node.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/expression"
	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/model"
)

// Attributes carried by interactive elements.
const (
	AttrNodeID = "data-node-id"
	AttrAction = "data-action"
	AttrValue  = "data-value"
)

// Interaction names understood by Dispatch.
const (
	ActionClick    = "click"
	ActionChange   = "change"
	ActionSubmit   = "submit"
	ActionOpen     = "open"
	ActionClose    = "close"
	ActionToggle   = "toggle"
	ActionSelect   = "select"
	ActionNext     = "next"
	ActionPrev     = "prev"
	ActionGoto     = "goto"
	ActionNavigate = "navigate"
	ActionTheme    = "theme"
	ActionEnter    = "enter"
	ActionInView   = "inview"
)

var (
	// ErrUnknownNode is returned when an event addresses a node that is not
	// part of the rendered tree.
	ErrUnknownNode = errors.New("unknown node")

	// ErrUnsupportedAction is returned when a node does not handle an event.
	ErrUnsupportedAction = errors.New("unsupported action")
)

// Env is what rendering reads besides the node itself.
type Env struct {
	App     *model.AppSchema
	Runtime *model.RuntimeContext
	PageID  string
	Dark    bool
}

// Submission is a serialized form ready to be sent.
type Submission struct {
	NodeID string
	Method string
	URL    string
	Fields map[string]any
}

// StatusError reports a submission answered with a non-success status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d", e.StatusCode)
}

// Handlers are the side effects rendered components may trigger.
type Handlers interface {
	Notify(t model.Toast)
	Navigate(pageID string)
	Submit(ctx context.Context, s Submission) error
	RunActions(ctx context.Context, n *model.ComponentNode, trigger string)
	ToggleDark()
}

// Event is a user interaction addressed to a rendered node.
type Event struct {
	NodeID string         `json:"nodeId"`
	Action string         `json:"action"`
	Value  string         `json:"value,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Component renders one node type.
type Component interface {
	Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element
}

// Interactive components also react to events.
type Interactive interface {
	Component
	Handle(ctx context.Context, e *Engine, n *model.ComponentNode, env *Env, h Handlers, ev Event) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element

// Render calls f.
func (f ComponentFunc) Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	return f(e, n, env, h)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTicker replaces the ticker factory used by autoplaying components.
func WithTicker(f func(time.Duration) Ticker) Option {
	return func(e *Engine) { e.newTicker = f }
}

// WithAfterFunc replaces the one-shot timer factory used by animations.
func WithAfterFunc(f func(time.Duration, func()) Timer) Option {
	return func(e *Engine) { e.afterFunc = f }
}

// Engine renders component trees and owns the stateful instances behind
// them. An Engine is meant to serve one preview; its methods are safe for
// concurrent use.
type Engine struct {
	registry  map[string]Component
	instances *Instances
	logger    *zap.Logger
	newTicker func(time.Duration) Ticker
	afterFunc func(time.Duration, func()) Timer
}

// NewEngine creates an Engine with every built-in component registered.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		registry:  make(map[string]Component),
		instances: NewInstances(),
		logger:    logger,
		newTicker: newTimeTicker,
		afterFunc: newTimeAfterFunc,
	}
	for _, opt := range opts {
		opt(e)
	}
	registerBuiltins(e)
	return e
}

// Register binds a node type to a component, replacing any existing one.
func (e *Engine) Register(nodeType string, c Component) {
	e.registry[nodeType] = c
}

// Instances returns the stateful instance registry.
func (e *Engine) Instances() *Instances {
	return e.instances
}

// Render interprets n and its descendants. Bindings are evaluated against the
// runtime context and override static props of the same name.
func (e *Engine) Render(n *model.ComponentNode, env *Env, h Handlers) *Element {
	if n == nil {
		return nil
	}
	n = bindProps(n, env)
	c, ok := e.registry[n.Type]
	if !ok {
		return El("div", TextNode("Unsupported: "+n.Type)).
			Class("text-xs text-muted-foreground").
			Set(AttrNodeID, n.ID)
	}
	el := c.Render(e, n, env, h)
	if el != nil && el.Tag != "" && !el.Has(AttrNodeID) {
		el.Set(AttrNodeID, n.ID)
	}
	return el
}

// RenderChildren renders every child of n in order.
func (e *Engine) RenderChildren(n *model.ComponentNode, env *Env, h Handlers) []*Element {
	out := make([]*Element, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, e.Render(c, env, h))
	}
	return out
}

// Dispatch delivers ev to the component of the node it addresses within root.
func (e *Engine) Dispatch(ctx context.Context, root *model.ComponentNode, env *Env, h Handlers, ev Event) error {
	n, ok := tree.Find(root, ev.NodeID)
	if !ok {
		return fmt.Errorf("render: %w: %s", ErrUnknownNode, ev.NodeID)
	}
	n = bindProps(n, env)
	c, ok := e.registry[n.Type].(Interactive)
	if !ok {
		return unsupported(n, ev)
	}
	e.logger.Debug("dispatching event",
		zap.String("node_id", n.ID),
		zap.String("node_type", n.Type),
		zap.String("action", ev.Action),
	)
	return c.Handle(ctx, e, n, env, h, ev)
}

// bindProps returns n with its bindings resolved into props. n itself is
// returned when it has no bindings.
func bindProps(n *model.ComponentNode, env *Env) *model.ComponentNode {
	if len(n.Bindings) == 0 {
		return n
	}
	rt := env.runtime()
	out := n.ShallowCopy()
	for prop, tmpl := range n.Bindings {
		out.Props[prop] = expression.ResolveValue(tmpl, rt)
	}
	return out
}

// runtime returns the variables and params in scope; a nil env has none.
func (env *Env) runtime() *model.RuntimeContext {
	if env == nil {
		return nil
	}
	return env.Runtime
}

func unsupported(n *model.ComponentNode, ev Event) error {
	return fmt.Errorf("render: %w: %s on %s", ErrUnsupportedAction, ev.Action, n.Type)
}
