// Package experiment runs Axelrod parameter sweeps: for every trait count q
// it fans a batch of independent trials out over a worker pool and reduces
// the largest-cluster fractions to a mean and standard error.
package experiment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/sims/axelrod"
)

// ErrInvalidConfig reports a sweep that cannot start.
var ErrInvalidConfig = errors.New("invalid sweep config")

// CriticalRange is a closed interval of q values near the phase transition.
type CriticalRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Contains reports whether q lies in [Low, High].
func (r CriticalRange) Contains(q int) bool {
	return q >= r.Low && q <= r.High
}

func (r CriticalRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Low, r.High)
}

// Config describes a sweep over q for a fixed feature count F.
type Config struct {
	Size     int
	Features int
	Traits   []int

	TrialsBaseline int
	TrialsCritical int
	// Critical selects the q values that receive TrialsCritical trials. Nil
	// means every q uses TrialsBaseline.
	Critical *CriticalRange

	FrozenThreshold int

	// Workers bounds the number of concurrent trials; zero uses every CPU.
	Workers int
	// Seed roots the trial seed sequence; zero draws one from entropy.
	Seed uint64
}

// Validate checks the sweep before any trial is dispatched.
func (c Config) Validate() error {
	if c.Size < 2 {
		return fmt.Errorf("%w: lattice size must be >= 2, got %d", ErrInvalidConfig, c.Size)
	}
	if len(c.Traits) == 0 {
		return fmt.Errorf("%w: no q values to sweep", ErrInvalidConfig)
	}
	seen := make(map[int]int, len(c.Traits))
	for i, q := range c.Traits {
		p := axelrod.Params{Features: c.Features, Traits: q, FrozenThreshold: c.FrozenThreshold}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: q[%d]=%d: %w", ErrInvalidConfig, i, q, err)
		}
		// Points are keyed by q downstream.
		if j, dup := seen[q]; dup {
			return fmt.Errorf("%w: q=%d listed at positions %d and %d", ErrInvalidConfig, q, j, i)
		}
		seen[q] = i
	}
	if c.TrialsBaseline < 1 {
		return fmt.Errorf("%w: baseline trials must be >= 1, got %d", ErrInvalidConfig, c.TrialsBaseline)
	}
	if c.Critical != nil {
		if c.Critical.Low > c.Critical.High {
			return fmt.Errorf("%w: critical range %s is empty", ErrInvalidConfig, c.Critical)
		}
		if c.TrialsCritical < 1 {
			return fmt.Errorf("%w: critical trials must be >= 1, got %d", ErrInvalidConfig, c.TrialsCritical)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// TrialsFor returns the number of trials dispatched for q.
func (c Config) TrialsFor(q int) int {
	if c.Critical != nil && c.Critical.Contains(q) {
		return c.TrialsCritical
	}
	return c.TrialsBaseline
}

// Plan sweeps the same q values for several feature counts, each with its
// own critical range.
type Plan struct {
	Size     int   `json:"size"`
	Features []int `json:"features"`
	Traits   []int `json:"traits"`

	TrialsBaseline int `json:"trials_baseline"`
	TrialsCritical int `json:"trials_critical"`
	// CriticalRanges maps F to its critical q range. Feature counts without
	// an entry use TrialsBaseline everywhere.
	CriticalRanges map[int]CriticalRange `json:"critical_ranges,omitempty"`

	FrozenThreshold int    `json:"frozen_threshold"`
	Workers         int    `json:"workers"`
	Seed            uint64 `json:"seed"`
}

// Sweep returns the single-F sweep configuration for features.
func (p Plan) Sweep(features int) Config {
	cfg := Config{
		Size:            p.Size,
		Features:        features,
		Traits:          append([]int(nil), p.Traits...),
		TrialsBaseline:  p.TrialsBaseline,
		TrialsCritical:  p.TrialsCritical,
		FrozenThreshold: p.FrozenThreshold,
		Workers:         p.Workers,
		Seed:            p.Seed,
	}
	if r, ok := p.CriticalRanges[features]; ok {
		cfg.Critical = &r
	}
	return cfg
}

// Validate checks every per-F sweep of the plan.
func (p Plan) Validate() error {
	if len(p.Features) == 0 {
		return fmt.Errorf("%w: no feature counts to sweep", ErrInvalidConfig)
	}
	for _, f := range p.Features {
		if err := p.Sweep(f).Validate(); err != nil {
			return fmt.Errorf("F=%d: %w", f, err)
		}
	}
	return nil
}

// TotalTrials counts the trials the plan dispatches.
func (p Plan) TotalTrials() int {
	total := 0
	for _, f := range p.Features {
		cfg := p.Sweep(f)
		for _, q := range cfg.Traits {
			total += cfg.TrialsFor(q)
		}
	}
	return total
}

// CriticalFeatures returns the feature counts that have a critical range, sorted.
func (p Plan) CriticalFeatures() []int {
	out := make([]int, 0, len(p.CriticalRanges))
	for f := range p.CriticalRanges {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}
