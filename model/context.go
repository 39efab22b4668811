package model

// RuntimeContext is the data the template evaluator and the rendering engine
// read from: live variable values and optional route-like parameters.
type RuntimeContext struct {
	Vars   map[string]any `json:"vars"`
	Params map[string]any `json:"params,omitempty"`
}

// NewRuntimeContext seeds a context from variable definitions. Later
// definitions with the same name win.
func NewRuntimeContext(defs []VariableDef) *RuntimeContext {
	vars := make(map[string]any, len(defs))
	for _, d := range defs {
		vars[d.Name] = d.Initial
	}
	return &RuntimeContext{Vars: vars}
}

// Var returns the value of a top-level variable.
func (c *RuntimeContext) Var(name string) any {
	if c == nil || c.Vars == nil {
		return nil
	}
	return c.Vars[name]
}

// SetVar assigns a top-level variable, allocating the map if needed.
func (c *RuntimeContext) SetVar(name string, v any) {
	if c.Vars == nil {
		c.Vars = make(map[string]any)
	}
	c.Vars[name] = v
}

// Clone returns a copy with its own top-level maps.
func (c *RuntimeContext) Clone() *RuntimeContext {
	if c == nil {
		return &RuntimeContext{Vars: map[string]any{}}
	}
	out := &RuntimeContext{Vars: make(map[string]any, len(c.Vars))}
	for k, v := range c.Vars {
		out.Vars[k] = v
	}
	if c.Params != nil {
		out.Params = make(map[string]any, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return out
}
