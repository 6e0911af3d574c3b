// Package config loads the runtime configuration of the shticell server.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration of the server. Values are populated
// from a config file, SHTICELL_* env vars and CLI flags, in viper's order.
type Config struct {
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	// Bounds of uploaded sheets that do not declare their own.
	DefaultRows int `mapstructure:"default_rows"`
	DefaultCols int `mapstructure:"default_cols"`
	// Largest sheet an upload may declare.
	MaxRows int `mapstructure:"max_rows"`
	MaxCols int `mapstructure:"max_cols"`

	VersionRetention int `mapstructure:"version_retention"`

	// Archive. An empty ShardConfigPath keeps the archive in memory.
	ShardConfigPath     string        `mapstructure:"shard_config_path"`
	NumShards           int           `mapstructure:"num_shards"`
	QueryTimeout        time.Duration `mapstructure:"query_timeout"`
	ArchiveQueueSize    int           `mapstructure:"archive_queue_size"`
	BreakerMaxFailures  int           `mapstructure:"breaker_max_failures"`
	BreakerResetTimeout time.Duration `mapstructure:"breaker_reset_timeout"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("port", "8080")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("default_rows", cell.DefaultRows)
	viper.SetDefault("default_cols", cell.DefaultCols)
	viper.SetDefault("max_rows", 1000)
	viper.SetDefault("max_cols", 702)
	viper.SetDefault("version_retention", 0)
	viper.SetDefault("shard_config_path", "")
	viper.SetDefault("num_shards", 16)
	viper.SetDefault("query_timeout", 5*time.Second)
	viper.SetDefault("archive_queue_size", 1024)
	viper.SetDefault("breaker_max_failures", 5)
	viper.SetDefault("breaker_reset_timeout", 30*time.Second)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: port must not be empty")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxRows < 1 || c.MaxRows > cell.MaxRows {
		return fmt.Errorf("config: max_rows (%d) must be in 1..%d", c.MaxRows, cell.MaxRows)
	}
	if c.MaxCols < 1 || c.MaxCols > cell.MaxCols {
		return fmt.Errorf("config: max_cols (%d) must be in 1..%d", c.MaxCols, cell.MaxCols)
	}
	if c.DefaultRows < 1 || c.DefaultRows > c.MaxRows || c.DefaultCols < 1 || c.DefaultCols > c.MaxCols {
		return fmt.Errorf("config: default size %dx%d must fit in 1x1..%dx%d", c.DefaultRows, c.DefaultCols, c.MaxRows, c.MaxCols)
	}
	if c.VersionRetention < 0 {
		return fmt.Errorf("config: version_retention (%d) must not be negative", c.VersionRetention)
	}
	if c.NumShards < 1 {
		return fmt.Errorf("config: num_shards (%d) must be positive", c.NumShards)
	}
	if c.ArchiveQueueSize < 1 {
		return fmt.Errorf("config: archive_queue_size (%d) must be positive", c.ArchiveQueueSize)
	}
	if c.BreakerMaxFailures < 1 {
		return fmt.Errorf("config: breaker_max_failures (%d) must be positive", c.BreakerMaxFailures)
	}
	return nil
}

// ParseLogLevel maps the log_level setting onto a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("config: unknown log_level %q", s)
}
