package render

import (
	"context"
	"sync"
	"time"

	"github.com/pitabwire/studio/model"
)

// Instance is the stateful half of a component. Mount runs once when the
// instance is created, Unmount once when its node leaves the tree.
type Instance interface {
	Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element
	Mount()
	Unmount()
}

// eventHandler is implemented by instances that react to events.
type eventHandler interface {
	Handle(ctx context.Context, e *Engine, n *model.ComponentNode, env *Env, h Handlers, ev Event) error
}

// overlayController is implemented by instances that can be opened and
// closed from workflow actions.
type overlayController interface {
	SetOpen(open bool)
}

// Ticker is the subset of time.Ticker autoplay needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Timer is the subset of time.Timer animations need.
type Timer interface {
	Stop() bool
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

func newTimeAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type instanceEntry struct {
	nodeType string
	inst     Instance
}

// Instances holds the live instances of stateful components keyed by node id.
type Instances struct {
	mu      sync.Mutex
	entries map[string]instanceEntry
	// pending overlay states requested before the overlay first rendered.
	pending map[string]bool
}

// NewInstances creates an empty registry.
func NewInstances() *Instances {
	return &Instances{
		entries: make(map[string]instanceEntry),
		pending: make(map[string]bool),
	}
}

// get returns the instance for id, creating and mounting one when absent or
// when the node changed type.
func (r *Instances) get(id, nodeType string, create func() Instance) Instance {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok && entry.nodeType == nodeType {
		r.mu.Unlock()
		return entry.inst
	}
	inst := create()
	r.entries[id] = instanceEntry{nodeType: nodeType, inst: inst}
	open, hasPending := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()

	if ok {
		entry.inst.Unmount()
	}
	inst.Mount()
	if oc, isOverlay := inst.(overlayController); isOverlay && hasPending {
		oc.SetOpen(open)
	}
	return inst
}

// Lookup returns the live instance for id.
func (r *Instances) Lookup(id string) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return entry.inst, ok
}

// Len returns the number of live instances.
func (r *Instances) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// SetOverlay opens or closes the overlay with the given node id. The state is
// remembered when the overlay has not rendered yet.
func (r *Instances) SetOverlay(id string, open bool) {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		r.pending[id] = open
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	if oc, isOverlay := entry.inst.(overlayController); isOverlay {
		oc.SetOpen(open)
	}
}

// Sync unmounts every instance whose id is not in live.
func (r *Instances) Sync(live map[string]bool) {
	var gone []Instance
	r.mu.Lock()
	for id, entry := range r.entries {
		if !live[id] {
			gone = append(gone, entry.inst)
			delete(r.entries, id)
		}
	}
	for id := range r.pending {
		if !live[id] {
			delete(r.pending, id)
		}
	}
	r.mu.Unlock()
	for _, inst := range gone {
		inst.Unmount()
	}
}

// UnmountAll tears down every instance.
func (r *Instances) UnmountAll() {
	r.Sync(nil)
}

// instanceComponent routes rendering and events of a node type to the
// per-node instance created by create.
type instanceComponent struct {
	create func(e *Engine) Instance
}

func (c instanceComponent) instance(e *Engine, n *model.ComponentNode) Instance {
	return e.instances.get(n.ID, n.Type, func() Instance { return c.create(e) })
}

func (c instanceComponent) Render(e *Engine, n *model.ComponentNode, env *Env, h Handlers) *Element {
	return c.instance(e, n).Render(e, n, env, h)
}

func (c instanceComponent) Handle(ctx context.Context, e *Engine, n *model.ComponentNode, env *Env, h Handlers, ev Event) error {
	inst := c.instance(e, n)
	eh, ok := inst.(eventHandler)
	if !ok {
		return unsupported(n, ev)
	}
	return eh.Handle(ctx, e, n, env, h, ev)
}
