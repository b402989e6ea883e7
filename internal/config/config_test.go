package config

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "SimpleThermal", cfg.Simulation.Component)
	assert.True(t, cfg.AutoInitialize())
	assert.False(t, cfg.StrictBounds())
	assert.InDelta(t, 1.0/60.0, cfg.Simulation.Delta, 1e-12)
	assert.Equal(t, int64(600), cfg.Simulation.Frames)
	assert.Empty(t, cfg.Store.Path)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid default config", func(c *Config) {}, false},
		{"zero delta", func(c *Config) { c.Simulation.Delta = 0 }, true},
		{"NaN delta", func(c *Config) { c.Simulation.Delta = math.NaN() }, true},
		{"infinite delta", func(c *Config) { c.Simulation.Delta = math.Inf(1) }, true},
		{"negative frames", func(c *Config) { c.Simulation.Frames = -1 }, true},
		{"zero frames runs forever", func(c *Config) { c.Simulation.Frames = 0 }, false},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"debug level", func(c *Config) { c.Log.Level = "debug" }, false},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gdmod.yaml")
	writeFile(t, path, `
simulation:
  component: Tank
  auto_initialize: false
  frames: 10
store:
  path: runs.db
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Tank", cfg.Simulation.Component)
	assert.False(t, cfg.AutoInitialize())
	assert.Equal(t, int64(10), cfg.Simulation.Frames)
	assert.Equal(t, "runs.db", cfg.Store.Path)
	assert.InDelta(t, 1.0/60.0, cfg.Simulation.Delta, 1e-12)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, bad, "simulation: [")
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestConfigMerge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{
		Strings:    StringsConfig{StrictBounds: boolPtr(true)},
		Simulation: SimulationConfig{AutoInitialize: boolPtr(false), Delta: 0.5},
	})

	assert.True(t, cfg.StrictBounds())
	assert.False(t, cfg.AutoInitialize())
	assert.InDelta(t, 0.5, cfg.Simulation.Delta, 1e-12)
	assert.Equal(t, "SimpleThermal", cfg.Simulation.Component)
	assert.Equal(t, int64(600), cfg.Simulation.Frames)

	cfg.Merge(nil)
	assert.True(t, cfg.StrictBounds())
}

func TestConfigSaveToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Store.Path = "out.db"
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoader_Layers(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	work := filepath.Join(project, "sub", "dir")
	require.NoError(t, os.MkdirAll(work, 0755))

	writeFile(t, filepath.Join(home, UserConfigDir, UserConfigFile), `
simulation:
  frames: 100
log:
  level: debug
`)
	writeFile(t, filepath.Join(project, ProjectConfigFile), `
simulation:
  component: Tank
`)

	cfg, err := NewLoader(quietLogger(), WithHomeDir(home), WithWorkDir(work)).Load()
	require.NoError(t, err)

	assert.Equal(t, "Tank", cfg.Simulation.Component)
	assert.Equal(t, int64(100), cfg.Simulation.Frames, "project layer must not reset user values")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_NoFiles(t *testing.T) {
	cfg, err := NewLoader(quietLogger(), WithHomeDir(t.TempDir()), WithWorkDir(t.TempDir())).Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_InvalidProjectConfig(t *testing.T) {
	work := t.TempDir()
	writeFile(t, filepath.Join(work, ProjectConfigFile), "simulation:\n  delta: -1\n")

	_, err := NewLoader(quietLogger(), WithHomeDir(t.TempDir()), WithWorkDir(work)).Load()
	assert.Error(t, err)
}

func TestLoader_LoadExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	writeFile(t, path, "strings:\n  strict_bounds: true\n")

	cfg, err := NewLoader(quietLogger()).LoadExplicit(path)
	require.NoError(t, err)
	assert.True(t, cfg.StrictBounds())
	assert.True(t, cfg.AutoInitialize())
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept", "k", 1)
	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), `"msg":"kept"`)

	_, err = LogConfig{Level: "nope"}.NewLogger(&buf)
	assert.Error(t, err)
}
