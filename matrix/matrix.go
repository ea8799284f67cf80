// Package matrix provides the numeric helpers behind texcalc procedures and
// renders their results as TeX macro definitions.
package matrix

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"texcalc/expr"
)

// Matrix is a dense row-major matrix.
type Matrix [][]float64

func dense(name string, m Matrix) (*mat.Dense, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.Errorf("matrix %s is empty", name)
	}
	cols := len(m[0])
	data := make([]float64, 0, len(m)*cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, errors.Errorf("matrix %s: row %d has %d columns, want %d", name, i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(m), cols, data), nil
}

func fromDense(d *mat.Dense) Matrix {
	r, c := d.Dims()
	out := make(Matrix, r)
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = d.At(i, j)
		}
	}
	return out
}

// Multiply returns the product A·B.
func Multiply(a, b Matrix) (Matrix, error) {
	da, err := dense("A", a)
	if err != nil {
		return nil, err
	}
	db, err := dense("B", b)
	if err != nil {
		return nil, err
	}
	ar, ac := da.Dims()
	br, bc := db.Dims()
	if ac != br {
		return nil, errors.Errorf("cannot multiply %dx%d by %dx%d", ar, ac, br, bc)
	}
	var c mat.Dense
	c.Mul(da, db)
	return fromDense(&c), nil
}

// Add returns the element-wise sum A+B.
func Add(a, b Matrix) (Matrix, error) {
	da, err := dense("A", a)
	if err != nil {
		return nil, err
	}
	db, err := dense("B", b)
	if err != nil {
		return nil, err
	}
	ar, ac := da.Dims()
	br, bc := db.Dims()
	if ar != br || ac != bc {
		return nil, errors.Errorf("cannot add %dx%d and %dx%d", ar, ac, br, bc)
	}
	var c mat.Dense
	c.Add(da, db)
	return fromDense(&c), nil
}

// Inverse returns A⁻¹. Non-square, singular and numerically ill-conditioned
// matrices are reported as errors.
func Inverse(a Matrix) (Matrix, error) {
	da, err := dense("A", a)
	if err != nil {
		return nil, err
	}
	if r, c := da.Dims(); r != c {
		return nil, errors.Errorf("cannot invert non-square %dx%d matrix", r, c)
	}
	var inv mat.Dense
	if err := inv.Inverse(da); err != nil {
		return nil, errors.Wrap(err, "invert")
	}
	return fromDense(&inv), nil
}

// String renders m as a nested list, e.g. [[1, 2], [3, 4]]. Elements print in
// positional notation up to 1e16, as expression results do.
func (m Matrix) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, row := range m {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('[')
		for j, v := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(expr.FormatFloat(v))
		}
		sb.WriteByte(']')
	}
	sb.WriteByte(']')
	return sb.String()
}

// Gdef writes value as the TeX definition \gdef\name{value} on its own line.
func Gdef(w io.Writer, name string, value any) error {
	_, err := fmt.Fprintf(w, "\\gdef\\%s{%v}\n", name, value)
	return err
}
