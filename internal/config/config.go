/*
PURPOSE:
  Defines the configuration structure and loading logic for flame-speed.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Configure the flame conditions (T, P, inlet velocity, fuel, oxidizer), the speed
    tolerance, the mixture-fraction sweep and the output location.
  - Read template/output directories for the CFD case from the environment
    (FOAM_RUN, BUILD_WORKSPACE_DIRECTORY).

  Implementation-discovered:
  - Needs to support YAML and TOML parsing (TOML chosen by file extension).
  - Needs to support environment variable overrides (FLAME_...).
  - The reduction loop needs an iteration and wall-clock budget.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine, internal/foamcase
  - Dependencies: gopkg.in/yaml.v3, github.com/BurntSushi/toml

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing config file falls back to defaults.
  - Validate() reports the first invalid field.
  - RequireEnv() returns ErrMissingEnv for unset variables.

IMPLEMENTATION RULES:
  - Config struct tags support yaml and toml.
  - Defaults reproduce the reference case (CH4/air, 300 K, 1 bar, 0.3 m/s, 0.01 m/s).

USAGE:
  cfg, err := config.Load("flame_speed.yaml")

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct and update DefaultConfig().

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// OneBar is one bar in pascal.
const OneBar = 1.0e5

// ErrMissingEnv is returned when a required environment variable is not set.
var ErrMissingEnv = errors.New("environment variable not set")

// Config represents the full configuration for flame-speed.
type Config struct {
	EvaluatorURL string   `yaml:"evaluator_url" toml:"evaluator_url"`
	OutputDir    string   `yaml:"output_dir" toml:"output_dir"` // local path or s3://bucket/prefix
	LogLevel     string   `yaml:"log_level" toml:"log_level"`
	Mechanism    Mech     `yaml:"mechanism" toml:"mechanism"`
	Flame        Flame    `yaml:"flame" toml:"flame"`
	Reduction    Reduce   `yaml:"reduction" toml:"reduction"`
	Sweep        Sweep    `yaml:"sweep" toml:"sweep"`
	Client       Client   `yaml:"client" toml:"client"`
	Case         CaseConf `yaml:"case" toml:"case"`
}

// Mech locates the complete mechanism and names its outputs.
type Mech struct {
	Path      string `yaml:"path" toml:"path"`
	Phase     string `yaml:"phase" toml:"phase"`
	Transport string `yaml:"transport" toml:"transport"`
	Reduced   string `yaml:"reduced" toml:"reduced"` // output file name of the reduced mechanism
}

// Flame holds the fixed evaluation conditions.
type Flame struct {
	Temperature      float64 `yaml:"temperature" toml:"temperature"`       // K
	Pressure         float64 `yaml:"pressure" toml:"pressure"`             // Pa
	InletVelocity    float64 `yaml:"inlet_velocity" toml:"inlet_velocity"` // m/s
	Fuel             string  `yaml:"fuel" toml:"fuel"`
	Oxidizer         string  `yaml:"oxidizer" toml:"oxidizer"`
	EquivalenceRatio float64 `yaml:"equivalence_ratio" toml:"equivalence_ratio"` // reduction point
	RefineGrid       bool    `yaml:"refine_grid" toml:"refine_grid"`
	SolverLogLevel   int     `yaml:"solver_log_level" toml:"solver_log_level"`
}

// Reduce tunes the mechanism reduction loop.
type Reduce struct {
	Tolerance     float64       `yaml:"tolerance" toml:"tolerance"` // m/s, absolute
	MaxIterations int           `yaml:"max_iterations" toml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout" toml:"timeout"`
	Trace         string        `yaml:"trace" toml:"trace"` // NDJSON trace file name
}

// Sweep is the mixture-fraction range of the report.
type Sweep struct {
	Start  float64 `yaml:"start" toml:"start"`
	Stop   float64 `yaml:"stop" toml:"stop"`
	Step   float64 `yaml:"step" toml:"step"`
	Report string  `yaml:"report" toml:"report"` // CSV file name
}

// Client tunes the HTTP evaluator adapter.
type Client struct {
	MaxRetries     int           `yaml:"max_retries" toml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay" toml:"retry_delay"`
	RequestTimeout time.Duration `yaml:"request_timeout" toml:"request_timeout"`
}

// CaseConf drives the CFD case generator.
type CaseConf struct {
	TemplateDir string             `yaml:"template_dir" toml:"template_dir"`
	Name        string             `yaml:"name" toml:"name"`
	Geometry    Geometry           `yaml:"geometry" toml:"geometry"`
	Species     map[string]float64 `yaml:"species" toml:"species"` // initial mass fractions, empty means the generator defaults
}

// Geometry of the expansion channel, in millimetres.
type Geometry struct {
	HeightChannel   float64 `yaml:"height_channel" toml:"height_channel"`
	LengthInlet     float64 `yaml:"length_inlet" toml:"length_inlet"`
	LengthExpansion float64 `yaml:"length_expansion" toml:"length_expansion"`
	LengthOutlet    float64 `yaml:"length_outlet" toml:"length_outlet"`
	WidthInlet      float64 `yaml:"width_inlet" toml:"width_inlet"`
	WidthOutlet     float64 `yaml:"width_outlet" toml:"width_outlet"`
	MinCellSize     float64 `yaml:"min_cell_size" toml:"min_cell_size"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		EvaluatorURL: "http://localhost:8765",
		OutputDir:    "output",
		LogLevel:     "info",
		Mechanism: Mech{
			Path:      "gri30.yaml",
			Phase:     "gri30",
			Transport: "mixture-averaged",
			Reduced:   "modified_mechanism.yaml",
		},
		Flame: Flame{
			Temperature:      300.0,
			Pressure:         1.0 * OneBar,
			InletVelocity:    0.3,
			Fuel:             "CH4",
			Oxidizer:         "O2:1, N2:3.76",
			EquivalenceRatio: 1.0,
			RefineGrid:       true,
			SolverLogLevel:   0,
		},
		Reduction: Reduce{
			Tolerance:     0.01,
			MaxIterations: 1000,
			Timeout:       6 * time.Hour,
			Trace:         "reduction_trace.jsonl",
		},
		Sweep: Sweep{
			Start:  0.0,
			Stop:   0.20,
			Step:   0.005,
			Report: "flame_speed_data.csv",
		},
		Client: Client{
			MaxRetries:     3,
			RetryDelay:     2 * time.Second,
			RequestTimeout: 10 * time.Minute,
		},
		Case: CaseConf{
			Name: "canal",
			Geometry: Geometry{
				HeightChannel:   2.0,
				LengthInlet:     37.0,
				LengthExpansion: 110.0,
				LengthOutlet:    50.0,
				WidthInlet:      25.0,
				WidthOutlet:     63.2,
				MinCellSize:     0.37 * 2.0,
			},
		},
	}
}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
	} else {
		// Search for defaults
		defaults := []string{"flame_speed.yaml", "flame_speed.yml", "flame_speed.toml"}
		found := false
		for _, name := range defaults {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name // record which file we loaded
				found = true
				break
			}
		}
		if !found {
			applyEnv(cfg)
			return cfg, nil
		}
	}

	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv applies FLAME_* overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FLAME_EVALUATOR_URL"); v != "" {
		cfg.EvaluatorURL = v
	}
	if v := os.Getenv("FLAME_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("FLAME_MECHANISM"); v != "" {
		cfg.Mechanism.Path = v
	}
	if v := os.Getenv("FLAME_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("FLAME_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Reduction.Tolerance = f
		}
	}
	if v := os.Getenv("BUILD_WORKSPACE_DIRECTORY"); v != "" && cfg.Case.TemplateDir == "" {
		cfg.Case.TemplateDir = filepath.Join(v, "canal_base")
	}
}

// RequireEnv returns the value of a required environment variable.
func RequireEnv(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, name)
	}
	return v, nil
}

// Validate checks the values the engine relies on.
func (c *Config) Validate() error {
	switch {
	case c.EvaluatorURL == "":
		return fmt.Errorf("evaluator_url is required")
	case c.OutputDir == "":
		return fmt.Errorf("output_dir is required")
	case c.Mechanism.Path == "":
		return fmt.Errorf("mechanism.path is required")
	case c.Mechanism.Reduced == "":
		return fmt.Errorf("mechanism.reduced is required")
	case c.Flame.Temperature <= 0:
		return fmt.Errorf("flame.temperature must be positive, got %g", c.Flame.Temperature)
	case c.Flame.Pressure <= 0:
		return fmt.Errorf("flame.pressure must be positive, got %g", c.Flame.Pressure)
	case c.Flame.InletVelocity <= 0:
		return fmt.Errorf("flame.inlet_velocity must be positive, got %g", c.Flame.InletVelocity)
	case c.Flame.Fuel == "" || c.Flame.Oxidizer == "":
		return fmt.Errorf("flame.fuel and flame.oxidizer are required")
	case c.Reduction.Tolerance < 0:
		return fmt.Errorf("reduction.tolerance must not be negative, got %g", c.Reduction.Tolerance)
	case c.Sweep.Step <= 0:
		return fmt.Errorf("sweep.step must be positive, got %g", c.Sweep.Step)
	case c.Sweep.Stop < c.Sweep.Start:
		return fmt.Errorf("sweep.stop (%g) is below sweep.start (%g)", c.Sweep.Stop, c.Sweep.Start)
	}
	return nil
}
