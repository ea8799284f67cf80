package dispatch

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"texcalc/message"
	"texcalc/procedure"
)

func request(text string) *message.Request {
	return &message.Request{Payload: []byte(text)}
}

func testRegistry() procedure.Source {
	return procedure.Static(map[string]procedure.Func{
		"myproc": func() (map[string]any, error) { return nil, nil },
		"outputs": func() (map[string]any, error) {
			return map[string]any{"C": 42, "D": "text"}, nil
		},
		"raises": func() (map[string]any, error) { return nil, errors.New("boom") },
		"panics": func() (map[string]any, error) { panic("kaboom") },
	})
}

func TestProcedureCall(t *testing.T) {
	d := New(testRegistry(), Options{})
	ctx := context.Background()

	tests := []struct {
		in     string
		want   string
		failed bool
	}{
		{"<function>myproc()", "executed myproc", false},
		{"<function>outputs()", "executed outputs", false},
		{"<function>raises()", "failed to execute raises", true},
		{"<function>panics()", "failed to execute panics", true},
		{"<function>absent()", "failed to execute absent", true},
		{"<function>()", "failed to execute ", true},
		{"<function>myproc", "failed to execute myproc", true},
		{"<function>myproc(1, 2)", "failed to execute myproc(1, 2)", true},
		{"junk <function>myproc()", "failed to execute myproc", true},
	}
	for _, test := range tests {
		got := d.Handle(ctx, request(test.in))
		assert.Equal(t, test.want, got.Text, "Handle(%q)", test.in)
		assert.Equal(t, test.failed, got.Failed(), "Handle(%q) status", test.in)
	}
}

func TestOutputsBound(t *testing.T) {
	d := New(testRegistry(), Options{})
	ctx := context.Background()

	assert.Empty(t, d.Outputs().Snapshot())
	d.Handle(ctx, request("<function>myproc()"))
	assert.Empty(t, d.Outputs().Snapshot())

	d.Handle(ctx, request("<function>outputs()"))
	want := map[string]any{"C": 42, "D": "text"}
	if diff := cmp.Diff(want, d.Outputs().Snapshot()); diff != "" {
		t.Errorf("outputs (-want, +got):\n%s", diff)
	}
	v, ok := d.Outputs().Get("C")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	// Outputs are not visible to expressions.
	got := d.Handle(ctx, request("C+1"))
	assert.True(t, got.Failed())
}

func TestRegistryResolvedEveryCall(t *testing.T) {
	calls := 0
	src := procedure.SourceFunc(func(context.Context) (*procedure.Snapshot, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("registry unavailable")
		}
		funcs := map[string]procedure.Func{}
		if calls >= 3 {
			funcs["late"] = func() (map[string]any, error) { return nil, nil }
		}
		return procedure.NewSnapshot(funcs), nil
	})
	d := New(src, Options{})
	ctx := context.Background()

	assert.Equal(t, "failed to execute late", d.Handle(ctx, request("<function>late()")).Text)
	assert.Equal(t, "failed to execute late", d.Handle(ctx, request("<function>late()")).Text)
	assert.Equal(t, "executed late", d.Handle(ctx, request("<function>late()")).Text)
	assert.Equal(t, 3, calls)

	// Expressions never touch the registry.
	d.Handle(ctx, request("1+1"))
	assert.Equal(t, 3, calls)
}

func TestExpression(t *testing.T) {
	d := New(testRegistry(), Options{})
	ctx := context.Background()

	got := d.Handle(ctx, request("2+2"))
	assert.Equal(t, "4", got.Text)
	assert.False(t, got.Failed())

	got = d.Handle(ctx, request("1/0"))
	assert.True(t, got.Failed())
	assert.Equal(t, "failed to evaluate: division by zero", got.Text)

	got = d.Handle(ctx, request(`__import__("os")`))
	assert.True(t, got.Failed())
}

func TestExpressionsDisabled(t *testing.T) {
	d := New(testRegistry(), Options{DisableExpressions: true})
	ctx := context.Background()

	got := d.Handle(ctx, request("2+2"))
	assert.True(t, got.Failed())
	assert.Equal(t, ErrExpressionsDisabled, got.Text)

	assert.Equal(t, "executed myproc", d.Handle(ctx, request("<function>myproc()")).Text)
}

func TestFailuresLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	d := New(testRegistry(), Options{Logger: zap.New(core)})

	d.Handle(context.Background(), request("<function>absent()"))
	d.Handle(context.Background(), request("<function>raises()"))

	entries := logs.FilterMessage("procedure failed").All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, "lookup failure", entries[0].ContextMap()["kind"])
		assert.Equal(t, "invocation failure", entries[1].ContextMap()["kind"])
	}
}
