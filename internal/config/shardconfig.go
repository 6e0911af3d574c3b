package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// BackendConfig describes a single PostgreSQL backend and the archive
// shards it holds.
type BackendConfig struct {
	Name        string `json:"name" toml:"name"`
	DatabaseURL string `json:"database_url" toml:"database_url"`
	ShardStart  int    `json:"shard_start" toml:"shard_start"`
	ShardEnd    int    `json:"shard_end" toml:"shard_end"`
}

// ShardConfig holds the list of backends that together cover all shards.
type ShardConfig struct {
	Backends []BackendConfig `json:"backends" toml:"backends"`
}

// LoadShardConfig reads a shard config file and validates it against
// numShards. Files ending in .toml are TOML; anything else is JSON.
func LoadShardConfig(path string, numShards int) (*ShardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shard config: %w", err)
	}

	var cfg ShardConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse shard config: %w", err)
	}

	if err := cfg.Validate(numShards); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every shard in [0, numShards) is held by exactly one
// named backend.
func (c *ShardConfig) Validate(numShards int) error {
	if len(c.Backends) == 0 {
		return fmt.Errorf("shard config: no backends defined")
	}

	covered := make([]bool, numShards)
	names := make(map[string]bool, len(c.Backends))

	for i, b := range c.Backends {
		if b.Name == "" {
			return fmt.Errorf("shard config: backend #%d has no name", i)
		}
		if names[b.Name] {
			return fmt.Errorf("shard config: backend name %q is used twice", b.Name)
		}
		names[b.Name] = true
		if b.DatabaseURL == "" {
			return fmt.Errorf("shard config: backend %q has empty database_url", b.Name)
		}
		if b.ShardStart < 0 || b.ShardStart > b.ShardEnd {
			return fmt.Errorf("shard config: backend %q has invalid shard range [%d, %d]", b.Name, b.ShardStart, b.ShardEnd)
		}
		if b.ShardEnd >= numShards {
			return fmt.Errorf("shard config: backend %q shard_end (%d) >= num_shards (%d)", b.Name, b.ShardEnd, numShards)
		}
		for s := b.ShardStart; s <= b.ShardEnd; s++ {
			if covered[s] {
				return fmt.Errorf("shard config: shard %d is covered by multiple backends", s)
			}
			covered[s] = true
		}
	}

	for s := 0; s < numShards; s++ {
		if !covered[s] {
			return fmt.Errorf("shard config: shard %d is not covered by any backend", s)
		}
	}
	return nil
}

// BackendFor returns the backend that holds shard.
func (c *ShardConfig) BackendFor(shard int) (BackendConfig, bool) {
	for _, b := range c.Backends {
		if shard >= b.ShardStart && shard <= b.ShardEnd {
			return b, true
		}
	}
	return BackendConfig{}, false
}
