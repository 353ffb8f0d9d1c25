// Package config holds fileflow configuration, loaded from a TOML file
// with defaults for everything.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds all fileflow configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Storage   StorageConfig   `toml:"storage"`
	Lifecycle LifecycleConfig `toml:"lifecycle"`
	Tags      TagsConfig      `toml:"tags"`
}

type ServerConfig struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Root string `toml:"root"` // user's chosen data root; empty means no root yet
	Path string `toml:"path"` // explicit db path override, rarely set
}

type LifecycleConfig struct {
	ActiveDays         int `toml:"active_days"`          // accessed within: active
	DormantDays        int `toml:"dormant_days"`         // within: dormant; beyond: stale
	ArchiveAfterDays   int `toml:"archive_after_days"`   // stale past this: suggest archive
	RefreshIntervalMin int `toml:"refresh_interval_min"` // background recompute cadence
}

type TagsConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 38338,
		},
		Lifecycle: LifecycleConfig{
			ActiveDays:         30,
			DormantDays:        90,
			ArchiveAfterDays:   180,
			RefreshIntervalMin: 30,
		},
		Tags: TagsConfig{
			SimilarityThreshold: 0.7,
		},
	}
}

// Load reads a TOML config file over the defaults. A missing file is
// not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
