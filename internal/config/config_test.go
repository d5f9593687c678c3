package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.waze.com/live-map/api/georss", cfg.Feed.BaseURL)
	assert.Equal(t, "na", cfg.Feed.Env)
	assert.Equal(t, "alerts,traffic", cfg.Feed.Types)
	assert.Equal(t, 4, cfg.Feed.BackoffSecs)
	assert.Equal(t, 8, cfg.Feed.MaxAttempts)

	assert.Equal(t, 23.0, cfg.Grid.MinLat)
	assert.Equal(t, 51.0, cfg.Grid.MaxLat)
	assert.Equal(t, -127.0, cfg.Grid.MinLng)
	assert.Equal(t, -62.0, cfg.Grid.MaxLng)
	assert.InDelta(t, 0.5505419906547857, cfg.Grid.LatStep, 1e-12)
	assert.InDelta(t, 0.5174560546875, cfg.Grid.LonStep, 1e-12)
	assert.Equal(t, "south-north", cfg.Grid.Direction)

	assert.Empty(t, cfg.Coverage.Outline)
	assert.Equal(t, 300, cfg.Sweep.PaceMillis)
	assert.Equal(t, 60, cfg.Sweep.IntervalSecs)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "police_alerts.db", cfg.Store.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ALERTSWEEP_FEED_ENV", "row")
	t.Setenv("ALERTSWEEP_STORE_DRIVER", "postgres")
	t.Setenv("ALERTSWEEP_SWEEP_PACE_MILLIS", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "row", cfg.Feed.Env)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 500, cfg.Sweep.PaceMillis)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouty", Format: "json"})
	assert.Error(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	assert.NoError(t, err)
}
