// Package config loads the axelrod tool configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/experiment"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/logging"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/sims/axelrod"
)

// Config contains all axelrod tool settings.
type Config struct {
	Lattice  LatticeConfig  `json:"lattice" yaml:"lattice"`
	Sweep    SweepConfig    `json:"sweep" yaml:"sweep"`
	Snapshot SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	Output   OutputConfig   `json:"output" yaml:"output"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// LatticeConfig holds the parameters shared by every trial.
type LatticeConfig struct {
	// Size is the side length N of the N×N torus.
	Size int `json:"size" yaml:"size"`

	// FrozenThreshold is the number of consecutive unchanged micro-steps
	// after which a lattice counts as frozen.
	FrozenThreshold int `json:"frozen_threshold" yaml:"frozen_threshold"`
}

// TraitRange is a half-open arithmetic range of q values, [Start, Stop).
type TraitRange struct {
	Start int `json:"start" yaml:"start"`
	Stop  int `json:"stop" yaml:"stop"`
	Step  int `json:"step" yaml:"step"`
}

// Values expands the range. A non-positive step yields nothing.
func (r TraitRange) Values() []int {
	if r.Step <= 0 {
		return nil
	}
	var out []int
	for q := r.Start; q < r.Stop; q += r.Step {
		out = append(out, q)
	}
	return out
}

// Region is a closed interval of q values that receives critical trials.
type Region struct {
	Low  int `json:"low" yaml:"low"`
	High int `json:"high" yaml:"high"`
}

// SweepConfig describes which (F, q) points are simulated and how often.
type SweepConfig struct {
	Features []int `json:"features" yaml:"features"`

	// TraitRanges are concatenated in order to form the q values.
	TraitRanges []TraitRange `json:"trait_ranges" yaml:"trait_ranges"`

	// Traits, when non-empty, replaces TraitRanges.
	Traits []int `json:"traits,omitempty" yaml:"traits,omitempty"`

	TrialsBaseline int `json:"trials_baseline" yaml:"trials_baseline"`
	TrialsCritical int `json:"trials_critical" yaml:"trials_critical"`

	// CriticalRegions maps a feature count to its critical q interval.
	CriticalRegions map[int]Region `json:"critical_regions" yaml:"critical_regions"`

	// Workers bounds concurrent trials; 0 uses every CPU.
	Workers int `json:"workers" yaml:"workers"`

	// Seed roots all trial seeds; 0 draws one from entropy.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// SnapshotConfig drives the lattice snapshot tool.
type SnapshotConfig struct {
	Size     int    `json:"size" yaml:"size"`
	Features int    `json:"features" yaml:"features"`
	Traits   int    `json:"traits" yaml:"traits"`
	Sweeps   []int  `json:"sweeps" yaml:"sweeps"`
	Scale    int    `json:"scale" yaml:"scale"`
	Seed     uint64 `json:"seed" yaml:"seed"`
}

// OutputConfig names where results go.
type OutputConfig struct {
	// DB is the SQLite results database. Empty disables persistence.
	DB string `json:"db" yaml:"db"`

	// Plot is the PNG written after a sweep. Empty disables plotting.
	Plot string `json:"plot" yaml:"plot"`
}

// LoggingConfig configures operational logging.
type LoggingConfig struct {
	// Level sets the verbosity: "warn", "info" (default), "debug" or "trace".
	Level string `json:"level" yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `json:"format" yaml:"format"`
}

// Default returns the configuration of the classic phase-transition study:
// a 20×20 lattice, F in {5, 10, 15} and q from 10 to 105.
func Default() *Config {
	return &Config{
		Lattice: LatticeConfig{
			Size:            20,
			FrozenThreshold: 20 * 20,
		},
		Sweep: SweepConfig{
			Features: []int{5, 10, 15},
			TraitRanges: []TraitRange{
				{Start: 10, Stop: 30, Step: 5},
				{Start: 30, Stop: 70, Step: 2},
				{Start: 70, Stop: 110, Step: 5},
			},
			TrialsBaseline: 30,
			TrialsCritical: 200,
			CriticalRegions: map[int]Region{
				5:  {Low: 20, High: 40},
				10: {Low: 40, High: 60},
				15: {Low: 48, High: 80},
			},
		},
		Snapshot: SnapshotConfig{
			Size:     100,
			Features: 2,
			Traits:   2,
			Sweeps:   []int{0, 100, 500, 1300},
			Scale:    4,
		},
		Output: OutputConfig{
			DB: "axelrod.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the defaults, overlaid with path when it is non-empty, then
// with environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// Lists in the file replace the default lists rather than extending them.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	// Maps merge key by key in yaml.v3, so a file listing one region would
	// otherwise inherit the other defaults.
	var probe struct {
		Sweep struct {
			CriticalRegions yaml.Node `yaml:"critical_regions"`
		} `yaml:"sweep"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if !probe.Sweep.CriticalRegions.IsZero() {
		cfg.Sweep.CriticalRegions = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// TraitValues returns the q values to sweep, in order.
func (c *Config) TraitValues() []int {
	if len(c.Sweep.Traits) > 0 {
		return slices.Clone(c.Sweep.Traits)
	}
	var out []int
	for _, r := range c.Sweep.TraitRanges {
		out = append(out, r.Values()...)
	}
	return out
}

// Validate checks the settings that the sweep machinery does not check
// itself. Plan().Validate() covers the rest.
func (c *Config) Validate() error {
	for i, r := range c.Sweep.TraitRanges {
		if r.Step <= 0 {
			return fmt.Errorf("trait_ranges[%d]: step must be positive, got %d", i, r.Step)
		}
		if r.Stop <= r.Start {
			return fmt.Errorf("trait_ranges[%d]: empty range [%d, %d)", i, r.Start, r.Stop)
		}
	}
	for f, r := range c.Sweep.CriticalRegions {
		if r.Low > r.High {
			return fmt.Errorf("critical_regions[%d]: low %d above high %d", f, r.Low, r.High)
		}
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: warn, info, debug, trace, or empty for default)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (valid: text, json)", c.Logging.Format)
	}
	if err := c.Plan().Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateSnapshot checks the snapshot section.
func (c *Config) ValidateSnapshot() error {
	s := c.Snapshot
	if len(s.Sweeps) == 0 {
		return fmt.Errorf("snapshot: no sweep counts given")
	}
	for i, n := range s.Sweeps {
		if n < 0 {
			return fmt.Errorf("snapshot: sweeps[%d] is negative", i)
		}
	}
	if s.Scale < 1 {
		return fmt.Errorf("snapshot: scale must be >= 1, got %d", s.Scale)
	}
	return c.SnapshotModel().Validate()
}

// Plan converts the sweep section into an experiment plan.
func (c *Config) Plan() experiment.Plan {
	plan := experiment.Plan{
		Size:            c.Lattice.Size,
		Features:        slices.Clone(c.Sweep.Features),
		Traits:          c.TraitValues(),
		TrialsBaseline:  c.Sweep.TrialsBaseline,
		TrialsCritical:  c.Sweep.TrialsCritical,
		FrozenThreshold: c.Lattice.FrozenThreshold,
		Workers:         c.Sweep.Workers,
		Seed:            c.Sweep.Seed,
	}
	if len(c.Sweep.CriticalRegions) > 0 {
		plan.CriticalRanges = make(map[int]experiment.CriticalRange, len(c.Sweep.CriticalRegions))
		for f, r := range c.Sweep.CriticalRegions {
			plan.CriticalRanges[f] = experiment.CriticalRange{Low: r.Low, High: r.High}
		}
	}
	return plan
}

// SnapshotModel returns the model configuration for the snapshot tool. The
// lattice frozen threshold is scaled by site count, so the snapshot lattice
// must stay unchanged for the same number of sweeps before it counts as
// frozen.
func (c *Config) SnapshotModel() axelrod.Config {
	threshold := c.Lattice.FrozenThreshold
	if n := c.Lattice.Size; n > 0 {
		threshold = max(1, threshold*c.Snapshot.Size*c.Snapshot.Size/(n*n))
	}
	return axelrod.Config{
		Size: c.Snapshot.Size,
		Seed: c.Snapshot.Seed,
		Params: axelrod.Params{
			Features:        c.Snapshot.Features,
			Traits:          c.Snapshot.Traits,
			FrozenThreshold: threshold,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("AXELROD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AXELROD_DB"); v != "" {
		cfg.Output.DB = v
	}
	if v := os.Getenv("AXELROD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AXELROD_WORKERS: %w", err)
		}
		cfg.Sweep.Workers = n
	}
	if v := os.Getenv("AXELROD_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("AXELROD_SEED: %w", err)
		}
		cfg.Sweep.Seed = n
	}
	return nil
}
