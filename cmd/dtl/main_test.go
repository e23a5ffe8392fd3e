package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	options, script, err := parseOptions([]string{
		"--input-dir", "in",
		"--output-dir", "out",
		"--trace-dir", "trace",
		"--debug",
		"script.dtl",
	})
	require.NoError(t, err)

	assert.Equal(t, "in", options.InputDir)
	assert.Equal(t, "out", options.OutputDir)
	assert.Equal(t, "trace", options.TraceDir)
	assert.True(t, options.Debug)
	assert.Equal(t, "script.dtl", script)
}

func TestParseOptionsScriptIsOptional(t *testing.T) {
	options, script, err := parseOptions([]string{"--input-dir", "in", "--output-dir", "out"})
	require.NoError(t, err)
	assert.Empty(t, script)
	assert.Empty(t, options.TraceDir)
}

func TestParseOptionsRequiresInputAndOutputDir(t *testing.T) {
	_, _, err := parseOptions([]string{})
	assert.Error(t, err)
}

func TestReadScriptFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.dtl")
	require.NoError(t, os.WriteFile(path, []byte("EXPORT SELECT * FROM t TO 'out';"), 0o644))

	script, err := readScript(path)
	require.NoError(t, err)
	assert.Equal(t, "EXPORT SELECT * FROM t TO 'out';", script)
}

func TestReadScriptMissingFile(t *testing.T) {
	_, err := readScript(filepath.Join(t.TempDir(), "missing.dtl"))
	assert.Error(t, err)
}
