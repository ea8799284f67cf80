// Package procedure defines the registry of zero-argument procedures the
// dispatcher invokes by name.
//
// A registry is consumed as a Snapshot: an immutable name → Func map. The
// dispatcher asks its Source for a fresh Snapshot on every procedure call, so
// edits to the backing definitions take effect without a restart. A Snapshot
// is replaced wholesale, never updated in place.
package procedure

import (
	"context"
	"sort"
)

// Func is a zero-argument procedure. A non-nil map binds each key as a named
// output; a nil map means the procedure produced nothing.
type Func func() (map[string]any, error)

// Snapshot is an immutable set of procedures.
type Snapshot struct {
	funcs map[string]Func
}

// NewSnapshot copies funcs into a new Snapshot.
func NewSnapshot(funcs map[string]Func) *Snapshot {
	s := &Snapshot{funcs: make(map[string]Func, len(funcs))}
	for name, fn := range funcs {
		if fn != nil {
			s.funcs[name] = fn
		}
	}
	return s
}

// Lookup returns the procedure registered as name.
func (s *Snapshot) Lookup(name string) (Func, bool) {
	if s == nil {
		return nil, false
	}
	fn, ok := s.funcs[name]
	return fn, ok
}

// Names returns the registered names in sorted order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of procedures.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.funcs)
}

// Source resolves the current registry.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (*Snapshot, error)

// Snapshot implements Source.
func (f SourceFunc) Snapshot(ctx context.Context) (*Snapshot, error) { return f(ctx) }

// Static returns a Source that always yields the same procedures.
func Static(funcs map[string]Func) Source {
	snap := NewSnapshot(funcs)
	return SourceFunc(func(context.Context) (*Snapshot, error) { return snap, nil })
}
