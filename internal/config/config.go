package config

import (
	"os"
	"strings"

	"codeberg.org/avhall/tierctl/internal/errors"
	"codeberg.org/avhall/tierctl/internal/quality"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval         = 100  // ms between host ticks
	defaultEvaluateInterval = 2000 // ms between policy evaluations
	defaultCooldown         = 5000 // ms dwell after a transition
	defaultTargetRate       = 60   // nominal frames per second
	defaultWindow           = 1000 // ms per throughput reading
	defaultHistory          = 10   // reading history capacity
	defaultLoad             = 1.0  // workload multiplier
)

// searchPath is where the system config file lives when TIERCTL_CONFIG
// is unset. Variable so tests can point it at a scratch directory.
var searchPath = "/etc"

type Config struct {
	Interval         int     `mapstructure:"interval"`
	EvaluateInterval int     `mapstructure:"evaluate_interval"`
	Cooldown         int     `mapstructure:"cooldown"`
	TargetRate       int     `mapstructure:"target_rate"`
	Window           int     `mapstructure:"window"`
	History          int     `mapstructure:"history"`
	DowngradeHigh    int     `mapstructure:"downgrade_high"`
	DowngradeMedium  int     `mapstructure:"downgrade_medium"`
	UpgradeMean      int     `mapstructure:"upgrade_mean"`
	UpgradeFloor     int     `mapstructure:"upgrade_floor"`
	Load             float64 `mapstructure:"load"`
	Monitor          bool    `mapstructure:"monitor"`
	Metrics          bool    `mapstructure:"metrics"`
	Database         string  `mapstructure:"database"`
	LogLevel         string  `mapstructure:"log_level"`

	// Per-tier overrides of the built-in settings mapping, keyed by
	// tier name then parameter name
	Tiers map[string]map[string]int `mapstructure:"tiers"`
}

func defaults() map[string]any {
	return map[string]any{
		"interval":          defaultInterval,
		"evaluate_interval": defaultEvaluateInterval,
		"cooldown":          defaultCooldown,
		"target_rate":       defaultTargetRate,
		"window":            defaultWindow,
		"history":           defaultHistory,
		"downgrade_high":    quality.DefaultDowngradeHigh,
		"downgrade_medium":  quality.DefaultDowngradeMedium,
		"upgrade_mean":      quality.DefaultUpgradeMean,
		"upgrade_floor":     quality.DefaultUpgradeFloor,
		"load":              defaultLoad,
		"monitor":           false,
		"metrics":           false,
		"database":          "/var/lib/tierctl/metrics.db",
		"log_level":         DefaultLogLevel,
	}
}

func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("tierctl", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Int("interval", defaultInterval, "Milliseconds between host ticks")
	fs.Int("evaluate-interval", defaultEvaluateInterval, "Milliseconds between policy evaluations")
	fs.Int("cooldown", defaultCooldown, "Milliseconds of dwell after a tier transition")
	fs.Int("target-rate", defaultTargetRate, "Nominal throughput target in frames per second")
	fs.Float64("load", defaultLoad, "Simulated workload multiplier")
	fs.Bool("monitor", false, "Only observe and log, never apply settings")
	fs.Bool("metrics", false, "Record controller snapshots to the metrics database")
	fs.String("database", "", "Path to the metrics database")
	fs.String("log-level", "", "Log level (debug, info, warning, error)")
	debugFlag := fs.Bool("debug", false, "Enable debugging mode")
	verboseFlag := fs.Bool("verbose", false, "Enable verbose logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path := os.Getenv("TIERCTL_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tierctl")
		v.SetConfigType("toml")
		v.AddConfigPath(searchPath)
	}

	// A missing config file falls back to defaults; anything else, such as
	// a corrupted file, is an error regardless of where the file came from.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Flags override file values, but only when actually set
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "debug", "verbose":
			return
		case "log-level":
			v.Set("log_level", f.Value.String())
		default:
			v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
		}
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if *debugFlag {
		config.LogLevel = "debug"
	} else if *verboseFlag && config.LogLevel != "debug" {
		config.LogLevel = "info"
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 || c.EvaluateInterval <= 0 || c.Cooldown <= 0 || c.Window <= 0 {
		return errFactory.New(errors.ErrInvalidInterval)
	}
	if c.TargetRate <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "target_rate must be positive")
	}
	if c.History < quality.DefaultMinHistory {
		return errFactory.WithData(errors.ErrInvalidConfig, "history capacity below evaluation minimum")
	}
	if c.Load <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "load must be positive")
	}

	if err := c.Thresholds().Validate(); err != nil {
		return err
	}

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if _, err := c.TierSettings(); err != nil {
		return err
	}

	return nil
}

// Thresholds returns the configured transition policy boundaries
func (c *Config) Thresholds() quality.Thresholds {
	return quality.Thresholds{
		DowngradeHigh:   c.DowngradeHigh,
		DowngradeMedium: c.DowngradeMedium,
		UpgradeMean:     c.UpgradeMean,
		UpgradeFloor:    c.UpgradeFloor,
	}
}

// TierSettings merges the config file overrides over the built-in
// settings mapping
func (c *Config) TierSettings() (map[quality.Tier]quality.Settings, error) {
	settings := quality.DefaultTierSettings()

	for name, overrides := range c.Tiers {
		tier, err := quality.ParseTier(name)
		if err != nil {
			return nil, err
		}
		for key, value := range overrides {
			settings[tier][key] = value
		}
	}

	return settings, nil
}
