package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadShardConfig_JSON(t *testing.T) {
	path := writeTempConfig(t, "shards.json", `{
		"backends": [
			{"name": "a", "database_url": "postgres://a/db", "shard_start": 0, "shard_end": 1},
			{"name": "b", "database_url": "postgres://b/db", "shard_start": 2, "shard_end": 3}
		]
	}`)

	sc, err := LoadShardConfig(path, 4)
	if err != nil {
		t.Fatalf("LoadShardConfig: %v", err)
	}
	if len(sc.Backends) != 2 {
		t.Fatalf("got %d backends, want 2", len(sc.Backends))
	}
	b, ok := sc.BackendFor(2)
	if !ok || b.Name != "b" {
		t.Errorf("BackendFor(2) = %+v, %v", b, ok)
	}
	if _, ok := sc.BackendFor(4); ok {
		t.Error("BackendFor(4) found a backend")
	}
}

func TestLoadShardConfig_TOML(t *testing.T) {
	path := writeTempConfig(t, "shards.toml", `
[[backends]]
name = "primary"
database_url = "postgres://localhost/db"
shard_start = 0
shard_end = 7
`)
	sc, err := LoadShardConfig(path, 8)
	if err != nil {
		t.Fatalf("LoadShardConfig: %v", err)
	}
	if sc.Backends[0].Name != "primary" || sc.Backends[0].ShardEnd != 7 {
		t.Errorf("backend = %+v", sc.Backends[0])
	}
}

func TestLoadShardConfig_FileNotFound(t *testing.T) {
	if _, err := LoadShardConfig("/nonexistent/shards.json", 4); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadShardConfig_ParseErrors(t *testing.T) {
	for _, name := range []string{"shards.json", "shards.toml"} {
		path := writeTempConfig(t, name, `{not valid`)
		_, err := LoadShardConfig(path, 4)
		if err == nil || !strings.Contains(err.Error(), "parse shard config") {
			t.Errorf("%s: got %v", name, err)
		}
	}
}

func TestShardConfig_Validate(t *testing.T) {
	backend := func(name string, start, end int) BackendConfig {
		return BackendConfig{Name: name, DatabaseURL: "postgres://" + name, ShardStart: start, ShardEnd: end}
	}
	tests := []struct {
		name     string
		backends []BackendConfig
		want     string
	}{
		{"no backends", nil, "no backends"},
		{"unnamed", []BackendConfig{backend("", 0, 3)}, "has no name"},
		{"duplicate name", []BackendConfig{backend("a", 0, 1), backend("a", 2, 3)}, "used twice"},
		{"empty url", []BackendConfig{{Name: "a", ShardEnd: 3}}, "empty database_url"},
		{"negative", []BackendConfig{backend("a", -1, 3)}, "invalid shard range"},
		{"start after end", []BackendConfig{backend("a", 3, 0)}, "invalid shard range"},
		{"beyond num_shards", []BackendConfig{backend("a", 0, 4)}, "num_shards"},
		{"overlap", []BackendConfig{backend("a", 0, 2), backend("b", 2, 3)}, "multiple backends"},
		{"gap", []BackendConfig{backend("a", 0, 1), backend("b", 3, 3)}, "shard 2 is not covered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := ShardConfig{Backends: tt.backends}
			err := sc.Validate(4)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestShardConfig_ValidateSingleShard(t *testing.T) {
	sc := ShardConfig{Backends: []BackendConfig{{Name: "only", DatabaseURL: "postgres://x", ShardStart: 0, ShardEnd: 0}}}
	if err := sc.Validate(1); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
