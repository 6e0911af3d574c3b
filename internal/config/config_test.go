package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Port", cfg.Port, "8080"},
		{"LogLevel", cfg.LogLevel, "info"},
		{"DefaultRows", cfg.DefaultRows, 50},
		{"DefaultCols", cfg.DefaultCols, 20},
		{"MaxRows", cfg.MaxRows, 1000},
		{"MaxCols", cfg.MaxCols, 702},
		{"VersionRetention", cfg.VersionRetention, 0},
		{"ShardConfigPath", cfg.ShardConfigPath, ""},
		{"NumShards", cfg.NumShards, 16},
		{"QueryTimeout", cfg.QueryTimeout, 5 * time.Second},
		{"ArchiveQueueSize", cfg.ArchiveQueueSize, 1024},
		{"BreakerMaxFailures", cfg.BreakerMaxFailures, 5},
		{"BreakerResetTimeout", cfg.BreakerResetTimeout, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "port",
			envKey: "SHTICELL_PORT",
			envVal: "9090",
			field:  func(c Config) any { return c.Port },
			want:   "9090",
		},
		{
			name:   "max_rows",
			envKey: "SHTICELL_MAX_ROWS",
			envVal: "200",
			field:  func(c Config) any { return c.MaxRows },
			want:   200,
		},
		{
			name:   "query_timeout",
			envKey: "SHTICELL_QUERY_TIMEOUT",
			envVal: "750ms",
			field:  func(c Config) any { return c.QueryTimeout },
			want:   750 * time.Millisecond,
		},
		{
			name:   "shard_config_path",
			envKey: "SHTICELL_SHARD_CONFIG_PATH",
			envVal: "/etc/shticell/shards.json",
			field:  func(c Config) any { return c.ShardConfigPath },
			want:   "/etc/shticell/shards.json",
		},
		{
			name:   "version_retention",
			envKey: "SHTICELL_VERSION_RETENTION",
			envVal: "25",
			field:  func(c Config) any { return c.VersionRetention },
			want:   25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			viper.SetEnvPrefix("SHTICELL")
			viper.AutomaticEnv()
			t.Setenv(tt.envKey, tt.envVal)

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() returned unexpected error: %v", err)
			}
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "shticell.toml")
	content := "port = \"7000\"\nlog_level = \"debug\"\nbreaker_reset_timeout = \"1m\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "7000" || cfg.LogLevel != "debug" || cfg.BreakerResetTimeout != time.Minute {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key   string
		value any
	}{
		{"log_level", "loud"},
		{"max_rows", 0},
		{"max_cols", -1},
		{"max_cols", 18279},
		{"max_rows", 1<<20 + 1},
		{"default_rows", 1001},
		{"default_cols", 0},
		{"num_shards", 0},
		{"archive_queue_size", 0},
		{"breaker_max_failures", 0},
		{"version_retention", -2},
		{"port", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			resetViper(t)
			viper.Set(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%v accepted", tt.key, tt.value)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}
