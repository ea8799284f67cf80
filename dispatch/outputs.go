package dispatch

import (
	"maps"
	"sync"
)

// Outputs is the namespace that procedure results are bound into. The
// dispatcher writes to it and never reads from it; it exists so embedders can
// observe what procedures produced.
type Outputs struct {
	mu   sync.Mutex
	vals map[string]any
}

// NewOutputs returns an empty namespace.
func NewOutputs() *Outputs {
	return &Outputs{vals: make(map[string]any)}
}

// Bind sets each key of vals, replacing earlier values of the same name.
func (o *Outputs) Bind(vals map[string]any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	maps.Copy(o.vals, vals)
}

// Get returns the value bound to name.
func (o *Outputs) Get(name string) (any, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.vals[name]
	return v, ok
}

// Snapshot returns a copy of the namespace.
func (o *Outputs) Snapshot() map[string]any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return maps.Clone(o.vals)
}
