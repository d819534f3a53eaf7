package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/avhall/tierctl/internal/config"
	"codeberg.org/avhall/tierctl/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tierctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func resetArgs(t *testing.T, args ...string) {
	t.Helper()

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = append([]string{"tierctl"}, args...)
}

func TestLoad(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
interval = 50
evaluate_interval = 1000
cooldown = 4000
target_rate = 30
window = 500
history = 6
downgrade_high = 40
downgrade_medium = 25
upgrade_mean = 48
upgrade_floor = 45
load = 1.5
monitor = true
metrics = true
database = "/path/to/metrics.db"
log_level = "debug"

[tiers.low]
particle_density = 10
`)
	t.Setenv("TIERCTL_CONFIG", configPath)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Interval, "Expected Interval 50")
	assert.Equal(t, 1000, cfg.EvaluateInterval, "Expected EvaluateInterval 1000")
	assert.Equal(t, 4000, cfg.Cooldown, "Expected Cooldown 4000")
	assert.Equal(t, 30, cfg.TargetRate, "Expected TargetRate 30")
	assert.Equal(t, 500, cfg.Window, "Expected Window 500")
	assert.Equal(t, 6, cfg.History, "Expected History 6")
	assert.Equal(t, 1.5, cfg.Load, "Expected Load 1.5")
	assert.True(t, cfg.Monitor, "Expected Monitor true")
	assert.True(t, cfg.Metrics, "Expected Metrics true")
	assert.Equal(t, "/path/to/metrics.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)

	thresholds := cfg.Thresholds()
	assert.Equal(t, 40, thresholds.DowngradeHigh)
	assert.Equal(t, 25, thresholds.DowngradeMedium)
	assert.Equal(t, 48, thresholds.UpgradeMean)
	assert.Equal(t, 45, thresholds.UpgradeFloor)

	tiers, err := cfg.TierSettings()
	require.NoError(t, err)
	assert.Equal(t, 10, tiers[quality.TierLow]["particle_density"], "Expected config override applied")
	assert.Equal(t, 100, tiers[quality.TierHigh]["particle_density"], "Expected untouched tiers to keep defaults")
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("TIERCTL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	assert.Equal(t, 100, cfg.Interval, "Expected default Interval 100")
	assert.Equal(t, 2000, cfg.EvaluateInterval, "Expected default EvaluateInterval 2000")
	assert.Equal(t, 5000, cfg.Cooldown, "Expected default Cooldown 5000")
	assert.Equal(t, 60, cfg.TargetRate, "Expected default TargetRate 60")
	assert.Equal(t, 1000, cfg.Window, "Expected default Window 1000")
	assert.Equal(t, 10, cfg.History, "Expected default History 10")
	assert.Equal(t, quality.DefaultThresholds(), cfg.Thresholds())
	assert.False(t, cfg.Monitor, "Expected default Monitor false")
	assert.False(t, cfg.Metrics, "Expected default Metrics false")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
This is not a valid TOML file
`)
	t.Setenv("TIERCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
log_level = "invalid"
`)
	t.Setenv("TIERCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid log level")
}

func TestLogLevelFlag(t *testing.T) {
	resetArgs(t, "--log-level", "debug")
	t.Setenv("TIERCTL_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func TestThresholdOrderingRejected(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
downgrade_high = 60
`)
	t.Setenv("TIERCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downgrade_high")
}

func TestUnknownTierNameRejected(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
[tiers.extreme]
particle_density = 200
`)
	t.Setenv("TIERCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extreme")
}

func TestInvalidIntervalRejected(t *testing.T) {
	resetArgs(t)

	configPath := writeConfig(t, `
interval = 0
`)
	t.Setenv("TIERCTL_CONFIG", configPath)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid interval")
}
