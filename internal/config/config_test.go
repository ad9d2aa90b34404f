package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	cfg, err := Load(dataDir)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, 1024, cfg.EventQueueCapacity)
	assert.Equal(t, "0.01", cfg.ReconciliationTolerance)
	assert.Equal(t, time.Duration(0), cfg.SimulationWindow)
	assert.False(t, cfg.DevMode)
}

func TestLoadResolvesDataDirToAbsoluteAndCreatesIt(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")
	cfg, err := Load(dataDir)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	require.DirExists(t, cfg.DataDir)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ARKIN_PORT", "9999")
	t.Setenv("EVENT_QUEUE_CAPACITY", "4096")
	t.Setenv("SIMULATION_WINDOW_MS", "500")
	t.Setenv("DEV_MODE", "true")

	dataDir := filepath.Join(t.TempDir(), "data")
	cfg, err := Load(dataDir)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 4096, cfg.EventQueueCapacity)
	assert.Equal(t, 500*time.Millisecond, cfg.SimulationWindow)
	assert.True(t, cfg.DevMode)
}

func TestLoadFallsBackToDefaultOnUnparseableInt(t *testing.T) {
	t.Setenv("ARKIN_PORT", "not-a-number")
	dataDir := filepath.Join(t.TempDir(), "data")
	cfg, err := Load(dataDir)
	require.NoError(t, err)
	assert.Equal(t, 8090, cfg.Port)
}

func TestValidateRejectsNonPositiveQueueCapacity(t *testing.T) {
	cfg := &Config{EventQueueCapacity: 0}
	assert.Error(t, cfg.Validate())
}

func TestValidateAcceptsPositiveQueueCapacity(t *testing.T) {
	cfg := &Config{EventQueueCapacity: 1}
	assert.NoError(t, cfg.Validate())
}
