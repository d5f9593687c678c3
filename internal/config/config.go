// Package config loads the harvester configuration and bootstraps logging.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Feed     FeedConfig     `yaml:"feed" mapstructure:"feed"`
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Coverage CoverageConfig `yaml:"coverage" mapstructure:"coverage"`
	Sweep    SweepConfig    `yaml:"sweep" mapstructure:"sweep"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// FeedConfig configures the upstream live-map endpoint.
type FeedConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Env         string `yaml:"env" mapstructure:"env"`
	Types       string `yaml:"types" mapstructure:"types"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	BackoffSecs int    `yaml:"backoff_secs" mapstructure:"backoff_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// GridConfig configures the tile grid over the target region. The default
// steps produce roughly 0.55 degree tall by 0.52 degree wide tiles, the
// largest size the upstream serves without truncating results.
type GridConfig struct {
	MinLat    float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat    float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLng    float64 `yaml:"min_lng" mapstructure:"min_lng"`
	MaxLng    float64 `yaml:"max_lng" mapstructure:"max_lng"`
	LatStep   float64 `yaml:"lat_step" mapstructure:"lat_step"`
	LonStep   float64 `yaml:"lon_step" mapstructure:"lon_step"`
	Direction string  `yaml:"direction" mapstructure:"direction"`
}

// CoverageConfig selects the optional pruning outline. Outline is one of
// "" (no pruning), "north-america" (builtin), or a path to a .shp or .yaml
// ring file.
type CoverageConfig struct {
	Outline string `yaml:"outline" mapstructure:"outline"`
}

// SweepConfig configures sweep pacing and the daemon loop.
type SweepConfig struct {
	PaceMillis   int `yaml:"pace_millis" mapstructure:"pace_millis"`
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the daemon status server. Port 0 disables it.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ALERTSWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("feed.base_url", "https://www.waze.com/live-map/api/georss")
	v.SetDefault("feed.env", "na")
	v.SetDefault("feed.types", "alerts,traffic")
	v.SetDefault("feed.user_agent", "alertsweep/1.0")
	v.SetDefault("feed.timeout_secs", 30)
	v.SetDefault("feed.backoff_secs", 4)
	v.SetDefault("feed.max_attempts", 8)
	v.SetDefault("grid.min_lat", 23.0)
	v.SetDefault("grid.max_lat", 51.0)
	v.SetDefault("grid.min_lng", -127.0)
	v.SetDefault("grid.max_lng", -62.0)
	v.SetDefault("grid.lat_step", 0.5505419906547857)
	v.SetDefault("grid.lon_step", 0.5174560546875)
	v.SetDefault("grid.direction", "south-north")
	v.SetDefault("coverage.outline", "")
	v.SetDefault("sweep.pace_millis", 300)
	v.SetDefault("sweep.interval_secs", 60)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "police_alerts.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
