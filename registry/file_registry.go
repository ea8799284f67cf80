package registry

import (
	"context"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"texcalc/procedure"
)

// FileRegistry reads definitions from a TOML file of the form:
//
//	[[procedure]]
//	name = "product"
//	op   = "multiply"
//	a    = [[1, 2], [3, 4]]
//	b    = [[5, 6], [7, 8]]
//	out  = "C"
type FileRegistry struct {
	Path string
}

type definitionFile struct {
	Procedures []procedure.Definition `toml:"procedure"`
}

// NewFileRegistry returns a registry backed by the file at path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{Path: path}
}

// Definitions re-reads the file.
func (r *FileRegistry) Definitions(ctx context.Context) ([]procedure.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadDefinitions(r.Path)
}

// ReadDefinitions decodes the definitions in the TOML file at path.
func ReadDefinitions(path string) ([]procedure.Definition, error) {
	var f definitionFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if keys := md.Undecoded(); len(keys) != 0 {
		return nil, errors.Errorf("read %s: unknown key %q", path, keys[0].String())
	}
	return f.Procedures, nil
}
