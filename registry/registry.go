// Package registry stores procedure definitions and turns them into fresh
// procedure snapshots on demand.
//
// Two stores are provided: a TOML file on local disk, and etcd, where each
// definition lives under its own key:
//
//	Key:   {prefix}{Name}          e.g. /texcalc/procedures/product
//	Value: JSON-encoded procedure.Definition
//
// Neither store caches. Every Snapshot call re-reads the backing definitions,
// which is what lets a running server pick up edits without a restart.
package registry

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"texcalc/procedure"
)

// Store yields the current set of procedure definitions.
type Store interface {
	Definitions(ctx context.Context) ([]procedure.Definition, error)
}

// Source adapts a Store to a procedure.Source. Each snapshot builds its
// procedures so they write TeX definitions to tex.
func Source(store Store, tex io.Writer) procedure.Source {
	return procedure.SourceFunc(func(ctx context.Context) (*procedure.Snapshot, error) {
		defs, err := store.Definitions(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "load definitions")
		}
		return procedure.BuildAll(defs, tex)
	})
}
