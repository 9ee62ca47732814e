package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildwithgo/docserve/description"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestValidateCommand(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("testdata", "swagger.yaml"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())

	out, _, err := execute(t, "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "openapi 3.0.0")
	assert.Contains(t, out, "title: Minimal API")
	assert.Contains(t, out, "paths: 1")
}

func TestValidateCommandMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "validate")
	require.Error(t, err)
	assert.ErrorIs(t, err, description.ErrNotFound)
}

func TestServeFailsFastWithoutDescription(t *testing.T) {
	t.Chdir(t.TempDir())

	_, stderr, err := execute(t, "--log-format", "json")
	require.Error(t, err)
	assert.ErrorIs(t, err, description.ErrNotFound)
	assert.Contains(t, stderr, "Startup failed")
	assert.NotContains(t, stderr, "available at")
}

func TestStartupFailureReportedOnce(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), []string{"--log-format", "json"}, stdout, stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, strings.Count(stderr.String(), string(description.KindNotFound)), stderr.String())
	assert.Equal(t, 1, strings.Count(stderr.String(), "Startup failed"))
	assert.NotContains(t, stderr.String(), "Error:")
}

func TestConfigErrorPrinted(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	code := run(context.Background(), []string{"--port", "0"}, stdout, stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, 1, strings.Count(stderr.String(), "port out of range"))
	assert.Contains(t, stderr.String(), "Error:")
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docserve version dev")
}

func TestFlagOverridesEnvironment(t *testing.T) {
	path, err := filepath.Abs(filepath.Join("testdata", "swagger.yaml"))
	require.NoError(t, err)
	t.Chdir(t.TempDir())
	t.Setenv("DOCSERVE_DESCRIPTION", "missing.yaml")

	_, _, err = execute(t, "validate")
	require.ErrorIs(t, err, description.ErrNotFound)

	out, _, err := execute(t, "validate", "--description", path)
	require.NoError(t, err)
	assert.Contains(t, out, "title: Minimal API")
}
