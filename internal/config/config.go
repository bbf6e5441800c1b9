// Package config loads and validates pipeline configuration from
// .gep/config.yaml. Every knob is optional and independently overridable;
// missing values take defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Evolution pipeline settings
	Evolution EvolutionConfig `yaml:"evolution"`

	// Gene/event persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EvolutionConfig configures the six-stage pipeline.
type EvolutionConfig struct {
	StagnationThreshold int    `yaml:"stagnation_threshold"` // repeats before stagnation (default 3)
	ValidationTimeout   string `yaml:"validation_timeout"`   // sandbox execution bound (default "5s")
	NamePrefix          string `yaml:"name_prefix"`          // auto gene name prefix (default "auto")
	Workers             int    `yaml:"workers"`              // concurrent batch workers (default 1)
}

// StoreConfig configures the persistence collaborator.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"` // default .gep/genes.db
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// Default returns a config with every knob at its default.
func Default() *Config {
	return &Config{
		Name:    "gep",
		Version: "0.1.0",
		Evolution: EvolutionConfig{
			StagnationThreshold: 3,
			ValidationTimeout:   "5s",
			NamePrefix:          "auto",
			Workers:             1,
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".gep", "genes.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config from the workspace's .gep/config.yaml, falling back to
// defaults when the file does not exist. Explicit zero values in the file
// also fall back, keeping every knob independently overridable.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".gep", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Evolution.StagnationThreshold < 1 {
		c.Evolution.StagnationThreshold = def.Evolution.StagnationThreshold
	}
	if c.Evolution.ValidationTimeout == "" {
		c.Evolution.ValidationTimeout = def.Evolution.ValidationTimeout
	}
	if c.Evolution.NamePrefix == "" {
		c.Evolution.NamePrefix = def.Evolution.NamePrefix
	}
	if c.Evolution.Workers < 1 {
		c.Evolution.Workers = def.Evolution.Workers
	}
	if c.Store.DatabasePath == "" {
		c.Store.DatabasePath = def.Store.DatabasePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate rejects values that would misconfigure the pipeline.
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.Evolution.ValidationTimeout); err != nil {
		return fmt.Errorf("invalid validation_timeout %q: %w", c.Evolution.ValidationTimeout, err)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	return nil
}

// ValidationTimeout parses the configured sandbox timeout. Validate has
// already ensured it parses.
func (c *Config) ValidationTimeout() time.Duration {
	d, err := time.ParseDuration(c.Evolution.ValidationTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
