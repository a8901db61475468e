package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "player.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
source: /media/clip.mp4
looping: true
autostart: false
capture:
  enabled: true
  at_fraction: 0.5
pipeline:
  converter: imxvideoconvert_g2d
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/media/clip.mp4", cfg.Source)
	assert.True(t, cfg.Looping)
	assert.False(t, cfg.AutostartEnabled())
	assert.True(t, cfg.Capture.Enabled)
	assert.Equal(t, 0.5, cfg.Capture.AtFraction)
	assert.Equal(t, "imxvideoconvert_g2d", cfg.Pipeline.Converter)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "testpattern", cfg.Source)
	assert.True(t, cfg.AutostartEnabled())
	assert.False(t, cfg.Looping)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "auto", cfg.Log.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"negative duration", func(c *Config) { c.DurationS = -1 }, "duration_s"},
		{"fraction above one", func(c *Config) { c.Capture.AtFraction = 1.5 }, "capture.at_fraction"},
		{"negative fraction", func(c *Config) { c.Capture.AtFraction = -0.1 }, "capture.at_fraction"},
		{"converter injection", func(c *Config) { c.Pipeline.Converter = "queue ! fakesink" }, "pipeline.converter"},
		{"bad sink name", func(c *Config) { c.Pipeline.SinkName = "1sink" }, "pipeline.sink_name"},
		{"bad level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	_, err = Load(writeConfig(t, "source: [unterminated"))
	assert.ErrorContains(t, err, "failed to parse config")

	_, err = Load(writeConfig(t, "log:\n  level: loud\n"))
	assert.ErrorContains(t, err, "invalid configuration")
}
