package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dkrasnow/memtree/internal/util"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultPageSize is the initial buffer capacity unit in bytes. Buffer
	// capacity starts at one page and doubles until the write fits.
	DefaultPageSize = 4096

	// DefaultMaxFileSize bounds how far a single file's buffer may grow.
	DefaultMaxFileSize = int64(1) << 40 // 1 TiB

	// DefaultLogLvl is the log verbosity applied when no override is given
	DefaultLogLvl = util.InfoLevel
)

// Config contains runtime configuration values for the filesystem engine.
type Config struct {
	PageSize    int           // Initial buffer capacity unit in bytes (Default 4096)
	MaxFileSize int64         // Maximum byte offset any write may reach (Default 1TiB)
	LogLvl      util.LogLevel // Log verbosity (Default info)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	PageSize    *int           `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	MaxFileSize *int64         `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty"`
	LogLvl      *util.LogLevel `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		PageSize:    DefaultPageSize,
		MaxFileSize: DefaultMaxFileSize,
		LogLvl:      DefaultLogLvl,
	}
}

// NewConfig creates a Config from defaults with an optional override applied.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.PageSize != nil {
		c.PageSize = *override.PageSize
	}
	if override.MaxFileSize != nil {
		c.MaxFileSize = *override.MaxFileSize
	}
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}
