// Package config loads the gateway's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds gateway runtime settings.
type Config struct {
	// Listen is the HTTP listen address, e.g. ":8090".
	Listen string `yaml:"listen"`
	// Database is the SQLite file path.
	Database string `yaml:"database"`
	// Snapshots is the local snapshot document path.
	Snapshots string `yaml:"snapshots"`
	// Mode tags the deployment (development, staging, production).
	Mode string `yaml:"mode"`
}

// Default returns the development defaults.
func Default() Config {
	return Config{
		Listen:    ":8090",
		Database:  "tillsync.db",
		Snapshots: "tillsync-snapshots.json",
		Mode:      "development",
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
