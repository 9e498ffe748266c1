package axelrod

import pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"

// Stats records the work done by a Dynamics run.
type Stats struct {
	// Steps counts attempted micro-steps.
	Steps uint64
	// Interactions counts micro-steps that changed a culture vector.
	Interactions uint64
}

// Dynamics applies the Axelrod interaction rule to a lattice until it
// freezes. A Dynamics owns its lattice for the duration of the run.
type Dynamics struct {
	lattice   *Lattice
	rng       *pcore.RNG
	threshold int
	idle      int
	stats     Stats
	diff      []int
}

// NewDynamics prepares the interaction loop for l. frozenThreshold is the
// number of consecutive unchanged micro-steps that declares freeze-out.
func NewDynamics(l *Lattice, rng *pcore.RNG, frozenThreshold int) *Dynamics {
	if frozenThreshold < 1 {
		frozenThreshold = 1
	}
	return &Dynamics{
		lattice:   l,
		rng:       rng,
		threshold: frozenThreshold,
		diff:      make([]int, 0, l.f),
	}
}

// Stats returns the counters accumulated so far.
func (d *Dynamics) Stats() Stats { return d.stats }

// Frozen reports whether the no-change counter has reached the threshold.
func (d *Dynamics) Frozen() bool { return d.idle >= d.threshold }

// Step performs one micro-step and reports whether a culture changed.
func (d *Dynamics) Step() bool {
	l := d.lattice
	d.stats.Steps++

	row := d.rng.IntN(l.n)
	col := d.rng.IntN(l.n)
	nb := l.torus.Neighbors(row, col)[d.rng.IntN(4)]

	site := l.Culture(row, col)
	other := l.Culture(nb.Row, nb.Col)

	same := matches(site, other)
	if same == 0 || same == l.f {
		d.idle++
		return false
	}
	if d.rng.Float64() >= float64(same)/float64(l.f) {
		d.idle++
		return false
	}

	d.diff = d.diff[:0]
	for k := range site {
		if site[k] != other[k] {
			d.diff = append(d.diff, k)
		}
	}
	k := d.diff[d.rng.IntN(len(d.diff))]
	l.CopyFeature(row, col, nb.Row, nb.Col, k)

	d.idle = 0
	d.stats.Interactions++
	return true
}

// Run steps until the lattice is frozen and returns the accumulated stats.
func (d *Dynamics) Run() Stats {
	for !d.Frozen() {
		d.Step()
	}
	return d.stats
}
