package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, workspace, content string) {
	t.Helper()
	dir := filepath.Join(workspace, ".gep")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gep", cfg.Name)
	assert.Equal(t, 3, cfg.Evolution.StagnationThreshold)
	assert.Equal(t, "auto", cfg.Evolution.NamePrefix)
	assert.Equal(t, 1, cfg.Evolution.Workers)
	assert.Equal(t, 5*time.Second, cfg.ValidationTimeout())
	assert.Equal(t, filepath.Join(".gep", "genes.db"), cfg.Store.DatabasePath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.DebugMode)
}

func TestLoad_PartialOverride(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
evolution:
  stagnation_threshold: 5
  validation_timeout: 2s
logging:
  debug_mode: true
  level: debug
`)

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Evolution.StagnationThreshold)
	assert.Equal(t, 2*time.Second, cfg.ValidationTimeout())
	assert.True(t, cfg.Logging.DebugMode)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset knobs keep their defaults.
	assert.Equal(t, "auto", cfg.Evolution.NamePrefix)
	assert.Equal(t, 1, cfg.Evolution.Workers)
	assert.Equal(t, filepath.Join(".gep", "genes.db"), cfg.Store.DatabasePath)
}

func TestLoad_ZeroValuesFallBack(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
evolution:
  stagnation_threshold: 0
  workers: 0
  name_prefix: ""
`)

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Evolution.StagnationThreshold)
	assert.Equal(t, 1, cfg.Evolution.Workers)
	assert.Equal(t, "auto", cfg.Evolution.NamePrefix)
}

func TestLoad_InvalidYAML(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, "evolution: [not: a: mapping")

	_, err := Load(ws)
	assert.Error(t, err)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
evolution:
  validation_timeout: soonish
`)

	_, err := Load(ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation_timeout")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
logging:
  level: loud
`)

	_, err := Load(ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "logging level")
}

func TestValidate_AcceptedLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "warning", "error"} {
		cfg := Default()
		cfg.Logging.Level = level
		assert.NoError(t, cfg.Validate(), "level %q", level)
	}
}

func TestLoad_CategoryToggles(t *testing.T) {
	ws := t.TempDir()
	writeConfig(t, ws, `
logging:
  debug_mode: true
  categories:
    scan: true
    mutate: false
`)

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.True(t, cfg.Logging.Categories["scan"])
	assert.False(t, cfg.Logging.Categories["mutate"])
}
