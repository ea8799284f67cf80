// Package expr evaluates the arithmetic expressions accepted by the server.
//
// The grammar is closed: integer and floating-point literals, unary + and -,
// binary + - * / %, and parentheses. Comments and legacy octal literals such
// as 010 are rejected. Division of integers is true division, so "7/2" is 3.5
// and "4/2" is 2.0; "%" applies to integers only.
//
// Arithmetic is exact until the result is printed, which intentionally departs
// from IEEE 754 double arithmetic: "0.1+0.2" prints 0.3, not
// 0.30000000000000004.
package expr

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/scanner"
	"go/token"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// MaxLength bounds the accepted expression text.
const MaxLength = 4096

// Eval parses and evaluates src, returning the printed result.
func Eval(src string) (string, error) {
	v, err := Value(src)
	if err != nil {
		return "", err
	}
	return Format(v), nil
}

// Value parses and evaluates src, returning the exact result.
func Value(src string) (constant.Value, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, errors.New("empty expression")
	}
	if len(src) > MaxLength {
		return nil, errors.Errorf("expression longer than %d bytes", MaxLength)
	}
	if err := checkTokens(src); err != nil {
		return nil, err
	}
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, errors.Wrap(err, "syntax error")
	}
	return eval(node)
}

// checkTokens rejects tokens the parser would accept silently: comments, which
// it drops, and legacy octal integers.
func checkTokens(src string) error {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(src))
	var scanErr error
	var s scanner.Scanner
	s.Init(file, []byte(src), func(_ token.Position, msg string) {
		if scanErr == nil {
			scanErr = errors.Errorf("syntax error: %s", msg)
		}
	}, scanner.ScanComments)
	for {
		_, tok, lit := s.Scan()
		switch tok {
		case token.EOF:
			return scanErr
		case token.COMMENT:
			return errors.Errorf("syntax error: unexpected %q", lit[:2])
		case token.INT:
			if legacyOctal(lit) {
				return errors.Errorf("syntax error: leading zeros in %s", lit)
			}
		}
	}
}

// legacyOctal reports whether lit is an integer like 010: a leading zero
// followed by digits that are not all zero.
func legacyOctal(lit string) bool {
	if len(lit) < 2 || lit[0] != '0' {
		return false
	}
	if c := lit[1]; c < '0' || c > '9' {
		if c != '_' {
			return false // 0x, 0o, 0b prefixes
		}
	}
	return strings.Trim(lit, "0_") != ""
}

func eval(node ast.Expr) (constant.Value, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return nil, errors.Errorf("unsupported literal %s", n.Value)
		}
		v := constant.MakeFromLiteral(n.Value, n.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil, errors.Errorf("invalid number %s", n.Value)
		}
		return v, nil

	case *ast.Ident:
		return nil, errors.Errorf("unknown name %q", n.Name)

	case *ast.ParenExpr:
		return eval(n.X)

	case *ast.UnaryExpr:
		if n.Op != token.ADD && n.Op != token.SUB {
			return nil, errors.Errorf("unsupported operator %s", n.Op)
		}
		x, err := eval(n.X)
		if err != nil {
			return nil, err
		}
		return constant.UnaryOp(n.Op, x, 0), nil

	case *ast.BinaryExpr:
		x, err := eval(n.X)
		if err != nil {
			return nil, err
		}
		y, err := eval(n.Y)
		if err != nil {
			return nil, err
		}
		return binary(n.Op, x, y)

	default:
		return nil, errors.Errorf("unsupported expression %T", node)
	}
}

func binary(op token.Token, x, y constant.Value) (constant.Value, error) {
	switch op {
	case token.ADD, token.SUB, token.MUL:
	case token.QUO:
		if constant.Sign(y) == 0 {
			return nil, errors.New("division by zero")
		}
	case token.REM:
		if !isInt(x) || !isInt(y) {
			return nil, errors.New("modulo requires integer operands")
		}
		if constant.Sign(y) == 0 {
			return nil, errors.New("modulo by zero")
		}
		return floorRem(x, y), nil
	default:
		return nil, errors.Errorf("unsupported operator %s", op)
	}
	return constant.BinaryOp(x, op, y), nil
}

// floorRem gives the remainder the sign of the divisor, so -7 % 3 is 2.
func floorRem(x, y constant.Value) constant.Value {
	r := constant.BinaryOp(x, token.REM, y)
	if constant.Sign(r) != 0 && constant.Sign(r) != constant.Sign(y) {
		r = constant.BinaryOp(r, token.ADD, y)
	}
	return r
}

func isInt(v constant.Value) bool { return v.Kind() == constant.Int }

// Format prints v: integers in full, floats as FormatFloat does with a
// trailing ".0" when integral.
func Format(v constant.Value) string {
	switch v.Kind() {
	case constant.Int:
		return v.ExactString()
	case constant.Float:
		f, _ := constant.Float64Val(v)
		s := FormatFloat(f)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	default:
		return v.String()
	}
}

// FormatFloat prints f in the shortest form that reads back exactly, using
// exponent notation only for magnitudes below 1e-4 or from 1e16 up.
func FormatFloat(f float64) string {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		format = 'e'
	}
	return strconv.FormatFloat(f, format, -1, 64)
}
