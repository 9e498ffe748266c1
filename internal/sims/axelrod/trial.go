package axelrod

import (
	pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"
)

// TrialResult is one independent sample of the largest-cluster fraction.
type TrialResult struct {
	Seed     uint64
	Fraction float64
	Stats
}

// Evolve builds a lattice seeded from cfg.Seed and runs it to freeze-out.
func Evolve(cfg Config) (*Lattice, Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, err
	}
	rng := pcore.NewTrialRNG(cfg.Seed)

	lattice := NewLattice(cfg.Size, cfg.Params.Features, cfg.Params.Traits)
	lattice.Initialize(rng)

	stats := NewDynamics(lattice, rng, cfg.Params.FrozenThreshold).Run()
	return lattice, stats, nil
}

// RunTrial evolves a freshly initialised lattice to freeze-out and measures
// its largest-cluster fraction. The trial seeds its own RNG from cfg.Seed and
// shares no state with other trials, so equal configs give equal results.
func RunTrial(cfg Config) (TrialResult, error) {
	lattice, stats, err := Evolve(cfg)
	if err != nil {
		return TrialResult{}, err
	}
	return TrialResult{
		Seed:     cfg.Seed,
		Fraction: LargestClusterFraction(lattice),
		Stats:    stats,
	}, nil
}

// Fraction runs a trial and returns only the measured fraction.
func Fraction(cfg Config) (float64, error) {
	res, err := RunTrial(cfg)
	if err != nil {
		return 0, err
	}
	return res.Fraction, nil
}
