package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/reviewsearch/internal/config"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand_Short(t *testing.T) {
	out, err := runCommand(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "version", "--json")

	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "dev", info["version"])
	assert.NotEmpty(t, info["go_version"])
}

func TestStatsCommand_JSONOnEmptyStore(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "stats", "--json", "--data-dir", dir)

	require.NoError(t, err)
	var stats StatsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 0, stats.ReviewCount)
	assert.Equal(t, dir, stats.DataDir)
}

func TestVerifyCommand_EmptyStoreIsValid(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "verify", "--data-dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestConfigLogLevel_AppliesToInstalledLogger(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "reviewsearch.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  log_level: debug\n"), 0o644))

	_, err := runCommand(t, "stats", "--json", "--config", cfgPath, "--data-dir", dir)
	require.NoError(t, err)

	// The level from the config file must reach the logger that was
	// installed before the file was read.
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  log_level: error\n"), 0o644))
	_, err = runCommand(t, "stats", "--json", "--config", cfgPath, "--data-dir", dir)
	require.NoError(t, err)
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
}

func TestInitCommand_WritesLoadableConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "reviewsearch.yaml")

	out, err := runCommand(t, "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, cfgPath)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)

	// A second init must not clobber the existing file.
	_, err = runCommand(t, "init", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
