// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	API   APIConfig   `toml:"api"`
	Auth  AuthConfig  `toml:"auth"`
	Store StoreConfig `toml:"store"`
	Stats StatsConfig `toml:"stats"`
	Log   LogConfig   `toml:"log"`
}

// APIConfig maps remote endpoint settings.
type APIConfig struct {
	BaseURL     *string `toml:"base-url"`
	Lang        *string `toml:"lang"`
	PageDelayMs *int    `toml:"page-delay-ms"`
	TimeoutSec  *int    `toml:"timeout-sec"`
}

// AuthConfig maps stored credentials.
type AuthConfig struct {
	Region *string `toml:"region"`
	Token  *string `toml:"token"`
}

// StoreConfig maps database locations.
type StoreConfig struct {
	Path       *string `toml:"path"`
	LegacyPath *string `toml:"legacy-path"`
}

// StatsConfig maps aggregation settings.
type StatsConfig struct {
	NoviceBanner *int64 `toml:"novice-banner"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *bool   `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
