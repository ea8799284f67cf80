// Package dispatch interprets decoded requests.
//
// A request containing the "<function>" marker is a procedure call: the
// registry is resolved afresh, the named procedure runs with no arguments, and
// any outputs it returns are bound in the Outputs namespace. Every other
// request is an arithmetic expression.
//
//	"<function>NAME()" → "executed NAME" | "failed to execute NAME"
//	"2+2"              → "4"            | "failed to evaluate: ..."
package dispatch

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"texcalc/expr"
	"texcalc/fault"
	"texcalc/message"
	"texcalc/procedure"
)

// ErrExpressionsDisabled is the response text when expression evaluation is
// turned off.
const ErrExpressionsDisabled = "expression evaluation disabled"

// Options configure a Dispatcher.
type Options struct {
	// DisableExpressions rejects every request outside the procedure-call branch.
	DisableExpressions bool

	// Logger receives dispatch diagnostics. Nil discards them.
	Logger *zap.Logger
}

// Dispatcher runs requests against a procedure source.
type Dispatcher struct {
	source  procedure.Source
	outputs *Outputs
	opts    Options
	log     *zap.Logger
}

// New returns a Dispatcher resolving procedures from source.
func New(source procedure.Source, opts Options) *Dispatcher {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{source: source, outputs: NewOutputs(), opts: opts, log: log}
}

// Outputs returns the namespace procedure outputs are bound into.
func (d *Dispatcher) Outputs() *Outputs { return d.outputs }

// Handle dispatches req. It has the middleware.HandlerFunc signature.
func (d *Dispatcher) Handle(ctx context.Context, req *message.Request) *message.Outcome {
	if req.IsCall() {
		return d.call(ctx, req)
	}
	return d.evaluate(req)
}

func (d *Dispatcher) call(ctx context.Context, req *message.Request) *message.Outcome {
	name, ok := req.ProcedureName()
	var err error
	if ok {
		err = d.invoke(ctx, name)
	} else {
		err = fault.Errorf(fault.LookupFailure, name, "request %q is not of the form %sNAME()", req.Text(), message.Marker)
	}
	if err != nil {
		d.log.Debug("procedure failed", zap.String("procedure", name), zap.Stringer("kind", fault.KindOf(err)), zap.Error(err))
		return message.Failed("failed to execute " + name)
	}
	return message.Succeeded("executed " + name)
}

// invoke resolves the registry, looks up name and runs it.
func (d *Dispatcher) invoke(ctx context.Context, name string) error {
	snap, err := d.source.Snapshot(ctx)
	if err != nil {
		return fault.New(fault.LookupFailure, name, err)
	}
	fn, ok := snap.Lookup(name)
	if !ok {
		return fault.Errorf(fault.LookupFailure, name, "no procedure named %q", name)
	}
	out, err := run(fn)
	if err != nil {
		return fault.New(fault.InvocationFailure, name, err)
	}
	if out != nil {
		d.outputs.Bind(out)
	}
	return nil
}

func run(fn procedure.Func) (out map[string]any, err error) {
	defer func() {
		if x := recover(); x != nil {
			out, err = nil, errors.Errorf("panic: %v", x)
		}
	}()
	return fn()
}

func (d *Dispatcher) evaluate(req *message.Request) *message.Outcome {
	if d.opts.DisableExpressions {
		return message.Failed(ErrExpressionsDisabled)
	}
	result, err := expr.Eval(req.Text())
	if err != nil {
		return message.Failed("failed to evaluate: " + err.Error())
	}
	return message.Succeeded(result)
}
