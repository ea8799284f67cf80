package registry

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"texcalc/matrix"
	"texcalc/procedure"
)

const productFile = `
[[procedure]]
name = "product"
op = "multiply"
a = [[1, 2], [3, 4]]
b = [[5, 6], [7, 8]]

[[procedure]]
name = "invert"
op = "inverse"
a = [[2.0, 0.0], [0.0, 4.0]]
out = "Binv"
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procs.toml")
	writeFile(t, path, productFile)

	defs, err := ReadDefinitions(path)
	require.NoError(t, err)
	want := []procedure.Definition{
		{Name: "product", Op: "multiply", A: matrix.Matrix{{1, 2}, {3, 4}}, B: matrix.Matrix{{5, 6}, {7, 8}}},
		{Name: "invert", Op: "inverse", A: matrix.Matrix{{2, 0}, {0, 4}}, Out: "Binv"},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("definitions (-want, +got):\n%s", diff)
	}
}

func TestReadDefinitionsErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadDefinitions(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[[procedure]]\nname = \"x\"\nfrobnicate = true\n")
	_, err = ReadDefinitions(bad)
	assert.ErrorContains(t, err, "unknown key")
}

func TestFileSourceReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "procs.toml")
	writeFile(t, path, productFile)

	var tex bytes.Buffer
	src := Source(NewFileRegistry(path), &tex)
	ctx := context.Background()

	snap, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"invert", "product"}, snap.Names())

	fn, ok := snap.Lookup("product")
	require.True(t, ok)
	out, err := fn()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"C": matrix.Matrix{{19, 22}, {43, 50}}}, out)
	assert.Equal(t, "\\gdef\\C{[[19, 22], [43, 50]]}\n", tex.String())

	// Edits show up in the next snapshot; the old one is unchanged.
	writeFile(t, path, "[[procedure]]\nname = \"sum\"\nop = \"add\"\na = [[1]]\nb = [[2]]\n")
	next, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sum"}, next.Names())
	assert.Equal(t, []string{"invert", "product"}, snap.Names())

	// A broken file fails resolution rather than serving stale procedures.
	writeFile(t, path, "[[procedure]]\nname = \"sum\"\nop = \"cube\"\na = [[1]]\n")
	_, err = src.Snapshot(ctx)
	assert.ErrorContains(t, err, `unknown op "cube"`)
}

type storeFunc func(context.Context) ([]procedure.Definition, error)

func (f storeFunc) Definitions(ctx context.Context) ([]procedure.Definition, error) { return f(ctx) }

func TestEtcdDecodeSkipsInvalid(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	reg := NewEtcdRegistry(nil, "/procs/", zap.New(core))

	entries := []struct{ key, value string }{
		{"/procs/sum", `{"name":"sum","op":"add","a":[[1,1]],"b":[[2,2]]}`},
		{"/procs/flip", `{"name":"flip","op":"transpose","a":[[1,2]]}`},
		{"/procs/half", `{"name":"half","op":"multiply","a":[[1]]}`},
		{"/procs/junk", `{not json`},
		{"/procs/alias", `{"name":"sum","op":"add","a":[[1]],"b":[[1]]}`},
	}
	var defs []procedure.Definition
	for _, e := range entries {
		if d, ok := reg.decode([]byte(e.key), []byte(e.value)); ok {
			defs = append(defs, d)
		}
	}
	require.Len(t, defs, 1)
	assert.Equal(t, "sum", defs[0].Name)
	assert.Equal(t, 2, logs.FilterMessage("skipping invalid definition").Len())
	assert.Equal(t, 4, logs.Len())

	// The surviving entry still resolves.
	var tex bytes.Buffer
	snap, err := Source(storeFunc(func(context.Context) ([]procedure.Definition, error) {
		return defs, nil
	}), &tex).Snapshot(context.Background())
	require.NoError(t, err)
	fn, ok := snap.Lookup("sum")
	require.True(t, ok)
	out, err := fn()
	require.NoError(t, err)
	assert.Equal(t, matrix.Matrix{{3, 3}}, out["C"])
}

// TestEtcdRegistry needs a live etcd; set TEXCALC_ETCD to its endpoint.
func TestEtcdRegistry(t *testing.T) {
	endpoint := os.Getenv("TEXCALC_ETCD")
	if endpoint == "" {
		t.Skip("TEXCALC_ETCD not set")
	}
	client, err := DialEtcd(clientv3.Config{
		Endpoints:   []string{endpoint},
		DialTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prefix := "/texcalc-test/" + t.Name() + "/"
	reg := NewEtcdRegistry(client, prefix, nil)
	defer client.Delete(ctx, prefix, clientv3.WithPrefix())

	require.NoError(t, reg.Publish(ctx, procedure.Definition{
		Name: "sum", Op: "add", A: matrix.Matrix{{1, 1}}, B: matrix.Matrix{{2, 2}},
	}))
	_, err = client.Put(ctx, prefix+"junk", "{not json")
	require.NoError(t, err)
	_, err = client.Put(ctx, prefix+"alias", `{"name":"sum","op":"add","a":[[1]],"b":[[1]]}`)
	require.NoError(t, err)
	_, err = client.Put(ctx, prefix+"flip", `{"name":"flip","op":"transpose","a":[[1]]}`)
	require.NoError(t, err)

	var tex bytes.Buffer
	snap, err := Source(reg, &tex).Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sum"}, snap.Names())

	fn, _ := snap.Lookup("sum")
	out, err := fn()
	require.NoError(t, err)
	assert.Equal(t, matrix.Matrix{{3, 3}}, out["C"])

	require.NoError(t, reg.Withdraw(ctx, "sum"))
	snap, err = Source(reg, &tex).Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Len())

	assert.Error(t, reg.Publish(ctx, procedure.Definition{Name: "bad name"}))
}
