// Package config provides configuration loading for gdmod.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete gdmod configuration.
type Config struct {
	Strings    StringsConfig    `yaml:"strings"`
	Simulation SimulationConfig `yaml:"simulation"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

// StringsConfig configures the string identity context.
type StringsConfig struct {
	// StrictBounds makes out-of-range path lookups panic instead of
	// returning the empty name.
	StrictBounds *bool `yaml:"strict_bounds,omitempty"`
}

// SimulationConfig configures `gdmod sim run`.
type SimulationConfig struct {
	// Component is the component loaded by the node
	Component string `yaml:"component"`
	// AutoInitialize loads the component when the node becomes ready
	AutoInitialize *bool `yaml:"auto_initialize,omitempty"`
	// Delta is the fixed frame step in seconds
	Delta float64 `yaml:"delta"`
	// Frames is the number of frames to run (0 = until interrupted)
	Frames int64 `yaml:"frames"`
	// ManifestDir holds CUE component manifests (empty = built-ins only)
	ManifestDir string `yaml:"manifest_dir"`
}

// StoreConfig configures the run log.
type StoreConfig struct {
	// Path is the SQLite file (empty = do not record)
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func boolPtr(b bool) *bool { return &b }

// DefaultConfig returns a Config with defaults.
func DefaultConfig() *Config {
	return &Config{
		Strings: StringsConfig{
			StrictBounds: boolPtr(false),
		},
		Simulation: SimulationConfig{
			Component:      "SimpleThermal",
			AutoInitialize: boolPtr(true),
			Delta:          1.0 / 60.0,
			Frames:         600,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// StrictBounds reports the effective strict bounds setting.
func (c *Config) StrictBounds() bool {
	return c.Strings.StrictBounds != nil && *c.Strings.StrictBounds
}

// AutoInitialize reports the effective auto-initialize setting.
func (c *Config) AutoInitialize() bool {
	return c.Simulation.AutoInitialize == nil || *c.Simulation.AutoInitialize
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if d := c.Simulation.Delta; !(d > 0) || math.IsInf(d, 1) {
		return fmt.Errorf("simulation.delta must be positive and finite")
	}
	if c.Simulation.Frames < 0 {
		return fmt.Errorf("simulation.frames must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Strings.StrictBounds != nil {
		c.Strings.StrictBounds = boolPtr(*other.Strings.StrictBounds)
	}

	if other.Simulation.Component != "" {
		c.Simulation.Component = other.Simulation.Component
	}
	if other.Simulation.AutoInitialize != nil {
		c.Simulation.AutoInitialize = boolPtr(*other.Simulation.AutoInitialize)
	}
	if other.Simulation.Delta != 0 {
		c.Simulation.Delta = other.Simulation.Delta
	}
	if other.Simulation.Frames != 0 {
		c.Simulation.Frames = other.Simulation.Frames
	}
	if other.Simulation.ManifestDir != "" {
		c.Simulation.ManifestDir = other.Simulation.ManifestDir
	}

	if other.Store.Path != "" {
		c.Store.Path = other.Store.Path
	}

	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
	if other.Log.Format != "" {
		c.Log.Format = other.Log.Format
	}
}

// NewLogger builds a slog.Logger writing to w per the log settings.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
