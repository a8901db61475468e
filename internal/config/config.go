// Package config loads the test player's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete player configuration
type Config struct {
	Source    string         `yaml:"source"` // URI, file path, or "testpattern"
	Looping   bool           `yaml:"looping"`
	Autostart *bool          `yaml:"autostart,omitempty"` // default: true
	DurationS float64        `yaml:"duration_s"`          // stop after this many seconds (0: until EOS)
	Capture   CaptureConfig  `yaml:"capture"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Log       LogConfig      `yaml:"log"`
}

// CaptureConfig controls single-frame capture
type CaptureConfig struct {
	Enabled    bool    `yaml:"enabled"`
	AtFraction float64 `yaml:"at_fraction"` // 0: first frame, otherwise (0,1]
}

// PipelineConfig contains GStreamer sink settings
type PipelineConfig struct {
	Converter string `yaml:"converter"` // e.g. imxvideoconvert_g2d
	SinkName  string `yaml:"sink_name"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, text, json
}

// Defaults returns a validated configuration playing the test pattern.
func Defaults() *Config {
	cfg := &Config{}
	_ = Validate(cfg)
	return cfg
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// AutostartEnabled reports whether playback starts on load.
func (c *Config) AutostartEnabled() bool {
	return c.Autostart == nil || *c.Autostart
}
