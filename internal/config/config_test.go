package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chtemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chtemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Folds.PerCategory)
	assert.Equal(t, 0, cfg.Folds.SampleCap)
	assert.Equal(t, int64(1), cfg.Folds.Seed)
	assert.Equal(t, 3, cfg.Median.MinPoints)
	assert.InDelta(t, 30.0, cfg.Median.MaxMADKm, 0.001)
	assert.InDelta(t, 1.0, cfg.Median.ConvergenceM, 0.001)
	assert.Equal(t, 1000, cfg.Median.MaxIterations)
	assert.Equal(t, 1, cfg.Eval.Parallel)
	assert.Equal(t, "geoinf-runs.db", cfg.Ledger.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chtemp(t)

	yaml := `
folds:
  per_category: 10
  seed: 99
log:
  level: debug
  format: console
ledger:
  path: ""
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Folds.PerCategory)
	assert.Equal(t, int64(99), cfg.Folds.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Ledger.Path)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.Median.MinPoints)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chtemp(t)

	t.Setenv("GEOINF_EVAL_PARALLEL", "4")
	t.Setenv("GEOINF_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Eval.Parallel)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
