// Package config provides unified configuration loading for arccheck.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/evogel/arccheck/internal/criteria"
	"github.com/evogel/arccheck/internal/models"
	"github.com/evogel/arccheck/internal/tiering"
)

// ConfigFileName is the per-project config file looked up under the root.
const ConfigFileName = "arccheck.yaml"

// Config contains all arccheck configuration settings.
type Config struct {
	// Corners are the process/voltage/temperature conditions to validate.
	Corners []string `json:"corners" yaml:"corners"`

	// Types are the timing tables to validate (delay, slew, hold).
	Types []string `json:"types" yaml:"types"`

	// OutputDir receives verdict CSVs, trace logs, and the run database.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Logging contains settings for operational and verdict logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Criteria lists per-(type, parameter) threshold overrides applied on
	// top of the shipped table.
	Criteria []CriteriaOverride `json:"criteria,omitempty" yaml:"criteria,omitempty"`

	// Waivers configures the second (direction-based) waiver.
	Waivers WaiverConfig `json:"waivers" yaml:"waivers"`

	// Margin configures the margin projection sweep.
	Margin MarginConfig `json:"margin" yaml:"margin"`

	// Workers caps the per-file evaluation fan-out. 0 means one worker
	// per CPU.
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// LoggingConfig configures arccheck's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables verdict tracing to <output_dir>/verdicts.jsonl.
	// "trace" additionally traces passing rows.
	Level string `json:"level" yaml:"level"`
}

// CriteriaOverride replaces the thresholds of one criteria-table cell.
type CriteriaOverride struct {
	Type      string        `json:"type" yaml:"type"`
	Parameter string        `json:"parameter" yaml:"parameter"`
	Spec      criteria.Spec `json:"spec" yaml:"spec"`
}

// WaiverConfig configures waiver 2. The safe error direction is a
// sign-off decision: it is read from here, never inferred from data.
type WaiverConfig struct {
	// Enabled turns the direction waiver on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// SafeDirections lists (type, parameter, direction) entries. When
	// Enabled is true and the list is empty, the shipped default policy
	// applies (pessimistic-safe for late sigma).
	SafeDirections []SafeDirection `json:"safe_directions,omitempty" yaml:"safe_directions,omitempty"`
}

// SafeDirection marks one (type, parameter) as waivable in a direction.
type SafeDirection struct {
	Type      string `json:"type" yaml:"type"`
	Parameter string `json:"parameter" yaml:"parameter"`
	Direction string `json:"direction" yaml:"direction"`
}

// MarginConfig configures the margin projection.
type MarginConfig struct {
	// LadderMV are the margin thresholds swept by the margin report.
	LadderMV []float64 `json:"ladder_mv" yaml:"ladder_mv"`

	// TargetPassPct drives the required-margin projection.
	TargetPassPct float64 `json:"target_pass_pct" yaml:"target_pass_pct"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Types:     []string{"delay", "slew", "hold"},
		OutputDir: "arccheck-out",
		Logging:   LoggingConfig{Level: "info"},
		Waivers:   WaiverConfig{Enabled: true},
		Margin: MarginConfig{
			LadderMV:      []float64{5, 10, 15, 20, 25},
			TargetPassPct: 95,
		},
	}
}

// Load loads configuration for a project root.
// Order: defaults -> <root>/arccheck.yaml -> environment variables.
func Load(root string) (*Config, error) {
	config := Default()

	path := filepath.Join(root, ConfigFileName)
	if _, statErr := os.Stat(path); statErr == nil {
		fileConfig, loadErr := LoadFromFile(path)
		if loadErr != nil {
			return nil, fmt.Errorf("loading config file: %w", loadErr)
		}
		config = fileConfig
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	for _, t := range c.Types {
		if !models.TimingType(t).Valid() {
			return fmt.Errorf("invalid timing type: %s (valid: delay, slew, hold)", t)
		}
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	for _, o := range c.Criteria {
		if !models.TimingType(o.Type).Valid() {
			return fmt.Errorf("criteria override: invalid type %q", o.Type)
		}
		if !models.Parameter(o.Parameter).Valid() {
			return fmt.Errorf("criteria override: invalid parameter %q", o.Parameter)
		}
	}

	for _, s := range c.Waivers.SafeDirections {
		if !models.TimingType(s.Type).Valid() {
			return fmt.Errorf("safe direction: invalid type %q", s.Type)
		}
		if !models.Parameter(s.Parameter).Valid() {
			return fmt.Errorf("safe direction: invalid parameter %q", s.Parameter)
		}
		if !models.ErrorDirection(s.Direction).Valid() {
			return fmt.Errorf("safe direction: invalid direction %q (valid: optimistic, pessimistic)", s.Direction)
		}
	}

	if c.Margin.TargetPassPct < 0 || c.Margin.TargetPassPct > 100 {
		return fmt.Errorf("target_pass_pct must be between 0 and 100, got %g", c.Margin.TargetPassPct)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}

	return nil
}

// TimingTypes returns the configured types as typed values.
func (c *Config) TimingTypes() []models.TimingType {
	out := make([]models.TimingType, 0, len(c.Types))
	for _, t := range c.Types {
		out = append(out, models.TimingType(t))
	}
	return out
}

// BuildRegistry returns the shipped criteria table with the configured
// overrides applied.
func (c *Config) BuildRegistry() (*criteria.Registry, error) {
	reg := criteria.NewDefault()
	for _, o := range c.Criteria {
		if err := reg.Set(models.TimingType(o.Type), models.Parameter(o.Parameter), o.Spec); err != nil {
			return nil, fmt.Errorf("criteria override %s/%s: %w", o.Type, o.Parameter, err)
		}
	}
	return reg, nil
}

// BuildWaiverPolicy returns the waiver policy the config describes:
// nil when disabled, the shipped defaults when enabled with no explicit
// entries, otherwise exactly the configured table.
func (c *Config) BuildWaiverPolicy() *tiering.WaiverPolicy {
	if !c.Waivers.Enabled {
		return nil
	}
	if len(c.Waivers.SafeDirections) == 0 {
		return tiering.DefaultWaiverPolicy()
	}
	p := tiering.NewWaiverPolicy()
	for _, s := range c.Waivers.SafeDirections {
		p.SetSafeDirection(models.TimingType(s.Type), models.Parameter(s.Parameter),
			models.ErrorDirection(s.Direction))
	}
	return p
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("ARCCHECK_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("ARCCHECK_OUTPUT_DIR"); v != "" {
		config.OutputDir = v
	}
	if v := os.Getenv("ARCCHECK_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Workers = n
		}
	}
}
