package axelrod

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/core"
)

// ErrInvalidConfig reports parameters the model cannot run with.
var ErrInvalidConfig = errors.New("invalid axelrod config")

// Params holds the cultural and convergence parameters of the model.
type Params struct {
	// Features is F, the length of every culture vector.
	Features int
	// Traits is q, the number of values each feature can take.
	Traits int
	// FrozenThreshold is the number of consecutive micro-steps without a
	// cultural change after which the lattice is declared frozen.
	FrozenThreshold int
}

// Config controls the lattice dimensions and seeding of one trial.
type Config struct {
	// Size is the lattice side N.
	Size int

	Seed uint64

	Params Params
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() Config {
	return Config{
		Size: 20,
		Seed: 1337,
		Params: Params{
			Features:        5,
			Traits:          10,
			FrozenThreshold: 400,
		},
	}
}

// FromMap applies flag-style key/value overrides to base. Keys are the ones
// Parameters reports: n, seed, f, q and frozen_threshold. Range checks are
// left to Validate.
func FromMap(base Config, kv map[string]string) (Config, error) {
	c := base
	for key, v := range kv {
		var err error
		switch key {
		case "n":
			c.Size, err = strconv.Atoi(v)
		case "seed":
			c.Seed, err = strconv.ParseUint(v, 10, 64)
		case "f":
			c.Params.Features, err = strconv.Atoi(v)
		case "q":
			c.Params.Traits, err = strconv.Atoi(v)
		case "frozen_threshold":
			c.Params.FrozenThreshold, err = strconv.Atoi(v)
		default:
			return base, fmt.Errorf("%w: unknown parameter %q", ErrInvalidConfig, key)
		}
		if err != nil {
			return base, fmt.Errorf("%w: %s=%q: %w", ErrInvalidConfig, key, v, err)
		}
	}
	return c, nil
}

// Validate checks the configuration against the model's domain.
func (c Config) Validate() error {
	if c.Size < 2 {
		return fmt.Errorf("%w: lattice size must be >= 2, got %d", ErrInvalidConfig, c.Size)
	}
	return c.Params.Validate()
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.Features < 1 {
		return fmt.Errorf("%w: features must be >= 1, got %d", ErrInvalidConfig, p.Features)
	}
	if p.Traits < 2 {
		return fmt.Errorf("%w: traits must be >= 2, got %d", ErrInvalidConfig, p.Traits)
	}
	if p.Traits > MaxTraits {
		return fmt.Errorf("%w: traits must be <= %d, got %d", ErrInvalidConfig, MaxTraits, p.Traits)
	}
	if p.FrozenThreshold < 1 {
		return fmt.Errorf("%w: frozen threshold must be >= 1, got %d", ErrInvalidConfig, p.FrozenThreshold)
	}
	return nil
}

// Parameters describes the configuration for logging and run records.
func (c Config) Parameters() core.ParameterSnapshot {
	return core.ParameterSnapshot{Groups: []core.ParameterGroup{
		{
			Name: "Lattice",
			Params: []core.Parameter{
				core.IntParam("n", "Side length", c.Size),
				core.Uint64Param("seed", "Seed", c.Seed),
			},
		},
		{
			Name: "Culture",
			Params: []core.Parameter{
				core.IntParam("f", "Features", c.Params.Features),
				core.IntParam("q", "Traits per feature", c.Params.Traits),
			},
		},
		{
			Name: "Convergence",
			Params: []core.Parameter{
				core.IntParam("frozen_threshold", "Frozen threshold", c.Params.FrozenThreshold),
			},
			Summary: "consecutive micro-steps without change before freeze-out",
		},
	}}
}
