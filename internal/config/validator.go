package config

import (
	"fmt"
	"regexp"
)

var elementNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_\-]*$`)

// Validate fills defaults and checks the configuration
func Validate(cfg *Config) error {
	if cfg.Source == "" {
		cfg.Source = "testpattern"
	}

	if cfg.DurationS < 0 {
		return fmt.Errorf("duration_s must be >= 0, got %g", cfg.DurationS)
	}

	if cfg.Capture.AtFraction < 0 || cfg.Capture.AtFraction > 1 {
		return fmt.Errorf("capture.at_fraction must be in [0,1], got %g", cfg.Capture.AtFraction)
	}

	// Element names end up in a pipeline description.
	if cfg.Pipeline.Converter != "" && !elementNamePattern.MatchString(cfg.Pipeline.Converter) {
		return fmt.Errorf("pipeline.converter %q is not an element name", cfg.Pipeline.Converter)
	}
	if cfg.Pipeline.SinkName != "" && !elementNamePattern.MatchString(cfg.Pipeline.SinkName) {
		return fmt.Errorf("pipeline.sink_name %q is not an element name", cfg.Pipeline.SinkName)
	}

	switch cfg.Log.Level {
	case "":
		cfg.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}

	switch cfg.Log.Format {
	case "":
		cfg.Log.Format = "auto"
	case "auto", "text", "json":
	default:
		return fmt.Errorf("log.format must be one of auto, text, json; got %q", cfg.Log.Format)
	}

	return nil
}
