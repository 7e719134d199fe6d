package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 300.0, cfg.Flame.Temperature)
	assert.Equal(t, OneBar, cfg.Flame.Pressure)
	assert.Equal(t, 0.01, cfg.Reduction.Tolerance)
	assert.Equal(t, "modified_mechanism.yaml", cfg.Mechanism.Reduced)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "flame.yaml", `
evaluator_url: http://solver:9000
mechanism:
  path: /data/gri30.yaml
  phase: gri30
flame:
  temperature: 350
  fuel: H2
reduction:
  tolerance: 0.005
  timeout: 30m
sweep:
  stop: 0.1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://solver:9000", cfg.EvaluatorURL)
	assert.Equal(t, "/data/gri30.yaml", cfg.Mechanism.Path)
	assert.Equal(t, 350.0, cfg.Flame.Temperature)
	assert.Equal(t, "H2", cfg.Flame.Fuel)
	assert.Equal(t, 0.005, cfg.Reduction.Tolerance)
	assert.Equal(t, 30*time.Minute, cfg.Reduction.Timeout)
	assert.Equal(t, 0.1, cfg.Sweep.Stop)

	// Untouched fields keep their defaults.
	assert.Equal(t, "O2:1, N2:3.76", cfg.Flame.Oxidizer)
	assert.Equal(t, 0.005, cfg.Sweep.Step)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "flame.toml", `
output_dir = "s3://bucket/runs"

[flame]
inlet_velocity = 0.4
oxidizer = "O2:0.21, N2:0.79"

[reduction]
max_iterations = 50
timeout = "45m"

[case.species]
CH4 = 0.06
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/runs", cfg.OutputDir)
	assert.Equal(t, 0.4, cfg.Flame.InletVelocity)
	assert.Equal(t, "O2:0.21, N2:0.79", cfg.Flame.Oxidizer)
	assert.Equal(t, 50, cfg.Reduction.MaxIterations)
	assert.Equal(t, 45*time.Minute, cfg.Reduction.Timeout)
	assert.Equal(t, map[string]float64{"CH4": 0.06}, cfg.Case.Species)
}

func TestLoadInvalidFile(t *testing.T) {
	path := writeFile(t, "bad.yaml", "flame: [1, 2\n")
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLAME_EVALUATOR_URL", "http://env:1234")
	t.Setenv("FLAME_OUTPUT_DIR", "/tmp/out")
	t.Setenv("FLAME_TOLERANCE", "0.02")
	t.Setenv("BUILD_WORKSPACE_DIRECTORY", "/work")

	path := writeFile(t, "flame.yaml", "evaluator_url: http://file:1\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:1234", cfg.EvaluatorURL)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.Equal(t, 0.02, cfg.Reduction.Tolerance)
	assert.Equal(t, filepath.Join("/work", "canal_base"), cfg.Case.TemplateDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no evaluator", func(c *Config) { c.EvaluatorURL = "" }},
		{"no mechanism", func(c *Config) { c.Mechanism.Path = "" }},
		{"cold flame", func(c *Config) { c.Flame.Temperature = 0 }},
		{"no pressure", func(c *Config) { c.Flame.Pressure = -1 }},
		{"no velocity", func(c *Config) { c.Flame.InletVelocity = 0 }},
		{"no fuel", func(c *Config) { c.Flame.Fuel = "" }},
		{"negative tolerance", func(c *Config) { c.Reduction.Tolerance = -0.1 }},
		{"zero step", func(c *Config) { c.Sweep.Step = 0 }},
		{"inverted range", func(c *Config) { c.Sweep.Start, c.Sweep.Stop = 0.2, 0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("FOAM_RUN", "/foam/run")
	v, err := RequireEnv("FOAM_RUN")
	require.NoError(t, err)
	assert.Equal(t, "/foam/run", v)

	t.Setenv("FOAM_RUN", "")
	_, err = RequireEnv("FOAM_RUN")
	assert.ErrorIs(t, err, ErrMissingEnv)
}
