package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRaw_ResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "environment: dev\nbudgets:\n  max_iterations: 5\n")
	main := writeFile(t, dir, "main.yaml", "$include: base.yaml\nlog_level: debug\n")

	raw, err := LoadRaw(main)
	require.NoError(t, err)
	assert.Equal(t, "dev", raw["environment"])
	assert.Equal(t, "debug", raw["log_level"])
}

func TestLoadRaw_DetectsCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "$include: b.yaml\n")
	bPath := writeFile(t, dir, "b.yaml", "$include: a.yaml\n")
	_ = bPath

	_, err := LoadRaw(filepath.Join(dir, "a.yaml"))
	assert.Error(t, err)
}

func TestLoadRaw_ExpandsEnv(t *testing.T) {
	t.Setenv("SENTRY_TEST_MODEL", "claude-test")
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "providers:\n  main:\n    model: ${SENTRY_TEST_MODEL}\n")

	raw, err := LoadRaw(path)
	require.NoError(t, err)
	providers := raw["providers"].(map[string]any)
	main := providers["main"].(map[string]any)
	assert.Equal(t, "claude-test", main["model"])
}

func TestDecode_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", "log_level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 5, cfg.Budgets.MaxIterations)
}
