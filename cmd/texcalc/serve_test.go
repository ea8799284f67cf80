package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"texcalc/config"
)

func TestLoadConfigDefault(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	procs := filepath.Join(dir, "procs.toml")
	require.NoError(t, os.WriteFile(procs, []byte("[[procedure]]\nname = \"inv\"\nop = \"inverse\"\na = [[2.0]]\n"), 0o644))

	cfg := config.Default()
	src, done, err := openSource(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	snap, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Len())
	done()

	cfg.Procedures.Source = config.SourceFile
	cfg.Procedures.File = procs
	var tex bytes.Buffer
	src, done, err = openSource(cfg, &tex, zap.NewNop())
	require.NoError(t, err)
	defer done()

	snap, err = src.Snapshot(context.Background())
	require.NoError(t, err)
	fn, ok := snap.Lookup("inv")
	require.True(t, ok)
	_, err = fn()
	require.NoError(t, err)
	assert.Equal(t, "\\gdef\\Ainv{[[0.5]]}\n", tex.String())
}

func TestOpenTeX(t *testing.T) {
	w, done, err := openTeX("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
	done()

	path := filepath.Join(t.TempDir(), "out.tex")
	w, done, err = openTeX(path)
	require.NoError(t, err)
	_, err = w.Write([]byte("\\gdef\\x{1}\n"))
	require.NoError(t, err)
	done()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\\gdef\\x{1}\n", string(data))
}
