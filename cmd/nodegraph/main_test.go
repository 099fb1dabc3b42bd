package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with a file store rooted in dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NODEGRAPH_STORE_BACKEND", "file")
	t.Setenv("NODEGRAPH_STORE_DIR", filepath.Join(dir, "store"))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", filepath.Join(dir, "absent.yaml")}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func TestCLI_Workflow(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "sample.yaml")

	out, err := execute(t, dir, "init", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	out, err = execute(t, dir, "validate", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "3 nodes, 3 connectors")

	out, err = execute(t, dir, "run", doc)
	require.NoError(t, err)
	assert.Equal(t, "Result: 5\n", out)

	asJSON := filepath.Join(dir, "sample.json.zst")
	_, err = execute(t, dir, "convert", doc, asJSON)
	require.NoError(t, err)
	_, err = os.Stat(asJSON)
	require.NoError(t, err)

	out, err = execute(t, dir, "graph", "--run", asJSON)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph LR\n"))
	assert.Contains(t, out, "executed;")

	_, err = execute(t, dir, "convert", asJSON, "stored")
	require.NoError(t, err)
	out, err = execute(t, dir, "list")
	require.NoError(t, err)
	assert.Equal(t, "stored\n", out)

	out, err = execute(t, dir, "inspect", "stored")
	require.NoError(t, err)
	assert.Contains(t, out, "| Result | `nodegraph.Log` |")
}

func TestCLI_ValidateFailure(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("guid: not-a-guid\n"), 0o644))

	out, err := execute(t, dir, "validate", bad, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2")
	assert.Contains(t, out, "bad.yaml")
	assert.Contains(t, out, "missing")
}

func TestCLI_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, dir, "--log-level", "loud", "list")
	assert.ErrorContains(t, err, "unknown log level")

	t.Setenv("NODEGRAPH_FORMAT", "xml")
	_, err = execute(t, dir, "list")
	assert.ErrorContains(t, err, "Format")
}

func TestCLI_Version(t *testing.T) {
	out, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Regexp(t, `^nodegraph version \d+\.\d+\.\d+\n$`, out)
}

func TestCLI_MCP(t *testing.T) {
	_, err := execute(t, t.TempDir(), "mcp", "--transport", "carrier-pigeon")
	assert.ErrorContains(t, err, "unknown transport")

	tests := map[string]string{
		":8080":          "http://localhost:8080",
		"0.0.0.0:9000":   "http://localhost:9000",
		"example.org:80": "http://example.org:80",
		"[::1]:8081":     "http://[::1]:8081",
	}
	for addr, want := range tests {
		assert.Equal(t, want, localURL(addr), addr)
	}
}
