package procedure

import (
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"texcalc/matrix"
)

// Operations a Definition may name.
const (
	OpMultiply = "multiply"
	OpInverse  = "inverse"
	OpAdd      = "add"
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// texName matches what \gdef accepts as a control word.
var texName = regexp.MustCompile(`^[A-Za-z]+$`)

// Definition describes a matrix procedure: run Op on A (and B), publish the
// result to TeX under Out, and return it as the output named Out.
type Definition struct {
	Name string        `toml:"name" json:"name"`
	Op   string        `toml:"op" json:"op"`
	A    matrix.Matrix `toml:"a" json:"a"`
	B    matrix.Matrix `toml:"b,omitempty" json:"b,omitempty"`
	Out  string        `toml:"out,omitempty" json:"out,omitempty"`
}

// Output returns the output name, defaulting by operation.
func (d Definition) Output() string {
	if d.Out != "" {
		return d.Out
	}
	if strings.ToLower(d.Op) == OpInverse {
		return "Ainv"
	}
	return "C"
}

// Validate checks the definition without running it.
func (d Definition) Validate() error {
	if !validName.MatchString(d.Name) {
		return errors.Errorf("invalid procedure name %q", d.Name)
	}
	switch strings.ToLower(d.Op) {
	case OpMultiply, OpAdd:
		if len(d.B) == 0 {
			return errors.Errorf("procedure %s: %s needs operand b", d.Name, d.Op)
		}
	case OpInverse:
	default:
		return errors.Errorf("procedure %s: unknown op %q", d.Name, d.Op)
	}
	if len(d.A) == 0 {
		return errors.Errorf("procedure %s: missing operand a", d.Name)
	}
	if !texName.MatchString(d.Output()) {
		return errors.Errorf("procedure %s: output %q is not a TeX control word", d.Name, d.Output())
	}
	return nil
}

// Build binds d to a Func that writes its TeX definition to tex.
func Build(d Definition, tex io.Writer) (Func, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if tex == nil {
		tex = io.Discard
	}
	op := strings.ToLower(d.Op)
	out := d.Output()
	return func() (map[string]any, error) {
		var (
			res matrix.Matrix
			err error
		)
		switch op {
		case OpMultiply:
			res, err = matrix.Multiply(d.A, d.B)
		case OpAdd:
			res, err = matrix.Add(d.A, d.B)
		case OpInverse:
			res, err = matrix.Inverse(d.A)
		}
		if err != nil {
			return nil, errors.Wrap(err, d.Name)
		}
		if err := matrix.Gdef(tex, out, res); err != nil {
			return nil, errors.Wrap(err, "write tex")
		}
		return map[string]any{out: res}, nil
	}, nil
}

// BuildAll builds a Snapshot from defs. Duplicate names are an error.
func BuildAll(defs []Definition, tex io.Writer) (*Snapshot, error) {
	funcs := make(map[string]Func, len(defs))
	for _, d := range defs {
		if _, dup := funcs[d.Name]; dup {
			return nil, errors.Errorf("duplicate procedure %q", d.Name)
		}
		fn, err := Build(d, tex)
		if err != nil {
			return nil, err
		}
		funcs[d.Name] = fn
	}
	return NewSnapshot(funcs), nil
}
