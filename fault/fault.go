// Package fault enumerates the error kinds texcalc distinguishes.
//
// Only LookupFailure and InvocationFailure are turned into response text by the
// dispatcher. Every other kind propagates to whoever drives the exchange:
//
//	BindFailure      → listener construction fails
//	ConnectionClosed → the current connection is dropped, the server accepts the next one
//	MalformedFrame   → same as ConnectionClosed
//	FrameTooLarge    → the current exchange is abandoned
package fault

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error.
type Kind int

const (
	Unknown Kind = iota
	LookupFailure
	InvocationFailure
	BindFailure
	ConnectionClosed
	MalformedFrame
	FrameTooLarge
)

func (k Kind) String() string {
	switch k {
	case LookupFailure:
		return "lookup failure"
	case InvocationFailure:
		return "invocation failure"
	case BindFailure:
		return "bind failure"
	case ConnectionClosed:
		return "connection closed"
	case MalformedFrame:
		return "malformed frame"
	case FrameTooLarge:
		return "frame too large"
	case Unknown:
		return "unknown"
	default:
		return fmt.Sprintf("kind:%d", int(k))
	}
}

// Error is a classified failure. Op names the operation that failed, e.g. the
// procedure name or the listen address.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New constructs an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf constructs an *Error whose cause is formatted from the arguments.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Cause satisfies the causer interface of github.com/pkg/errors.
func (e *Error) Cause() error { return e.Err }

// KindOf reports the kind of the first *Error in the chain of err, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err carries an *Error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
