package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, 60*time.Second, cfg.Registry.CacheTTL)
	assert.Equal(t, 75.0, cfg.ContextHealth.WarningThreshold)
	assert.True(t, cfg.ContextHealth.RotationEnabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "acfsgateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9100
  environment: production
context_health:
  warning_threshold: 70
`), 0o644))

	cfg, err := Load(Options{ExplicitPath: path})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, 70.0, cfg.ContextHealth.WarningThreshold)
	// Untouched sections keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Detector.CacheTTL)
}

func TestLoad_ManifestPathEnvOverride(t *testing.T) {
	t.Setenv("ACFS_MANIFEST_PATH", "/tmp/custom.manifest.yaml")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.manifest.yaml", cfg.Registry.ManifestPath)
}

func TestLoad_ManifestTTLMsEnvOverride(t *testing.T) {
	t.Setenv("ACFS_MANIFEST_TTL_MS", "5000")
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Registry.CacheTTL)
}
