// Package config loads user preferences from config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DistRootEnv overrides Config.DistRoot when set.
const DistRootEnv = "MULTIRUST_DIST_ROOT"

// Config captures user preferences stored in <home>/config.yaml.
type Config struct {
	Version  int       `yaml:"version"`
	Channels []string  `yaml:"channels"`
	DistRoot string    `yaml:"dist_root"`
	Log      LogConfig `yaml:"log"`
}

// LogConfig controls the optional file log.
type LogConfig struct {
	File *bool `yaml:"file,omitempty"`
}

// FileEnabled returns the effective file-log flag applying defaults.
func (l LogConfig) FileEnabled() bool {
	if l.File == nil {
		return false
	}
	return *l.File
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:  1,
		Channels: []string{"stable", "beta", "nightly"},
		DistRoot: "https://static.rust-lang.org/dist",
		Log: LogConfig{
			File: boolPtr(false),
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration. $MULTIRUST_DIST_ROOT wins over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	contents, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(contents, &cfg); err != nil {
			return Config{}, fmt.Errorf("unmarshal config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if root := strings.TrimSpace(os.Getenv(DistRootEnv)); root != "" {
		cfg.DistRoot = root
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to sensible defaults when the YAML
// omits them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if len(c.Channels) == 0 {
		c.Channels = defaults.Channels
	}
	if strings.TrimSpace(c.DistRoot) == "" {
		c.DistRoot = defaults.DistRoot
	}
	if c.Log.File == nil {
		c.Log.File = defaults.Log.File
	}
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

func boolPtr(v bool) *bool {
	return &v
}
