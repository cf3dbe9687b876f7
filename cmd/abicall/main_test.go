package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-abi/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const manifest = `
name: echo
module: echo.wasm
exports:
  - name: echo_bytes
    kind: bytes
    description: returns the request unchanged
  - name: echo_string
    kind: string
`

func writeManifest(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o600))
	return path
}

func TestFormatResponse(t *testing.T) {
	assert.Equal(t, "010203", formatResponse(host.KindBytes, []byte{1, 2, 3}))
	assert.Equal(t, "", formatResponse(host.KindBytes, nil))
	assert.Equal(t, "héllo", formatResponse(host.KindString, []byte("héllo")))
}

func TestReadPayload(t *testing.T) {
	p, err := readPayload(options{data: "ping"})
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), p)

	path := filepath.Join(t.TempDir(), "req.bin")
	require.NoError(t, os.WriteFile(path, []byte{0, 1, 2}, 0o600))
	p, err = readPayload(options{file: path})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, p)

	_, err = readPayload(options{data: "x", file: path})
	assert.Error(t, err)
}

func TestRun_List(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), options{manifest: writeManifest(t), list: true}, zap.NewNop(), &out)
	require.NoError(t, err)

	assert.Equal(t, "echo_bytes\tbytes\treturns the request unchanged\necho_string\tstring\t\n", out.String())
}

func TestRun_UnknownExport(t *testing.T) {
	err := run(context.Background(), options{manifest: writeManifest(t), export: "nope"}, zap.NewNop(), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no export "nope"`)
}

func TestRun_MissingModule(t *testing.T) {
	err := run(context.Background(), options{manifest: writeManifest(t), export: "echo_bytes"}, zap.NewNop(), &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
