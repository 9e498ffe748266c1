package axelrod

import (
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/core"
	pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"
)

// Model drives a single lattice sweep by sweep so its domain formation can
// be rendered. One Step is one Monte Carlo sweep of N² micro-steps.
type Model struct {
	cfg      Config
	lattice  *Lattice
	dynamics *Dynamics
	rng      *pcore.RNG
	sweeps   int
}

var _ core.Sim = (*Model)(nil)

// NewModel returns a Model for cfg with its lattice initialised from cfg.Seed.
func NewModel(cfg Config) *Model {
	m := &Model{cfg: cfg}
	m.Reset(int64(cfg.Seed))
	return m
}

// Name returns the simulation identifier.
func (m *Model) Name() string { return "axelrod" }

// Size reports the grid dimensions.
func (m *Model) Size() core.Size { return core.Size{W: m.cfg.Size, H: m.cfg.Size} }

// Lattice exposes the current lattice.
func (m *Model) Lattice() *Lattice { return m.lattice }

// Sweeps returns the number of Monte Carlo sweeps performed since Reset.
func (m *Model) Sweeps() int { return m.sweeps }

// Frozen reports whether the dynamics have reached freeze-out.
func (m *Model) Frozen() bool { return m.dynamics.Frozen() }

// Stats returns the dynamics counters since Reset.
func (m *Model) Stats() Stats { return m.dynamics.Stats() }

// Reset prepares a new random lattice. A zero seed falls back to the
// configured one.
func (m *Model) Reset(seed int64) {
	effective := uint64(seed)
	if effective == 0 {
		effective = m.cfg.Seed
	}
	m.rng = pcore.NewTrialRNG(effective)
	m.lattice = NewLattice(m.cfg.Size, m.cfg.Params.Features, m.cfg.Params.Traits)
	m.lattice.Initialize(m.rng)
	m.dynamics = NewDynamics(m.lattice, m.rng, m.cfg.Params.FrozenThreshold)
	m.sweeps = 0
}

// Step advances the lattice by one Monte Carlo sweep. The micro-steps keep
// running after freeze-out, they simply change nothing.
func (m *Model) Step() {
	for i := 0; i < m.lattice.Sites(); i++ {
		m.dynamics.Step()
	}
	m.sweeps++
}

// Shade maps the culture at (x, y) to a unique value in [0, 1), reading the
// vector as the digits of a base-q fraction.
func (m *Model) Shade(x, y int) float64 {
	return CultureShade(m.lattice.Culture(y, x), m.lattice.q)
}

// Levels returns the number of distinct cultures q^F, or 0 when that
// exceeds maxLevels.
func (m *Model) Levels(maxLevels int) int {
	levels := 1
	for range m.cfg.Params.Features {
		levels *= m.cfg.Params.Traits
		if levels > maxLevels || levels <= 0 {
			return 0
		}
	}
	return levels
}

// CultureShade returns 0.c₀c₁…c_{F-1} in base q. Distinct vectors map to
// distinct values up to float64 precision; the first feature dominates.
func CultureShade(culture []Trait, q int) float64 {
	if q <= 1 {
		return 0
	}
	shade := 0.0
	scale := 1.0 / float64(q)
	for _, v := range culture {
		shade += float64(v) * scale
		scale /= float64(q)
	}
	return shade
}
