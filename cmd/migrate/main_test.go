package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "up", opts.cmd)
	assert.False(t, opts.embedded)

	_, err = parseFlags([]string{"-nope"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunCreateThenValidate(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run(context.Background(), options{cmd: "create", dir: dir, name: "add order notes"}, &out))
	assert.Contains(t, out.String(), "created migration:")

	files, err := filepath.Glob(filepath.Join(dir, "*_add_order_notes.sql"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	out.Reset()
	require.NoError(t, run(context.Background(), options{cmd: "validate", dir: dir}, &out))
	assert.Contains(t, out.String(), "passed")
}

func TestRunValidateEmbedded(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), options{cmd: "validate", embedded: true}, &out))
}

func TestRunRejectsBadInput(t *testing.T) {
	assert.Error(t, run(context.Background(), options{cmd: "create", dir: t.TempDir()}, &bytes.Buffer{}))
	assert.Error(t, run(context.Background(), options{cmd: "explode"}, &bytes.Buffer{}))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, run(context.Background(), options{cmd: "validate", dir: dir}, &bytes.Buffer{}))
}
