package axelrod

import (
	"fmt"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/core"
	pcore "github.com/Bigbadasianboy2/Complex-system-playground/pkg/core"
)

// Trait is a single feature value of a culture vector.
type Trait = uint16

// MaxTraits is the largest q a Trait can represent.
const MaxTraits = 1 << 16

// Lattice stores an N×N periodic grid of culture vectors in one contiguous
// buffer with stride F: the value of feature k at (row, col) lives at
// (row*N+col)*F + k.
type Lattice struct {
	n, f, q int
	torus   core.Torus
	cells   []Trait
}

// NewLattice allocates a lattice with side n, f features and q traits. All
// cells start with trait 0 until Initialize is called.
func NewLattice(n, f, q int) *Lattice {
	if n < 1 {
		n = 1
	}
	if f < 1 {
		f = 1
	}
	if q < 1 {
		q = 1
	}
	if q > MaxTraits {
		q = MaxTraits
	}
	return &Lattice{
		n:     n,
		f:     f,
		q:     q,
		torus: core.NewTorus(n),
		cells: make([]Trait, n*n*f),
	}
}

// Initialize fills every cell with F independent uniform traits in [0, q).
func (l *Lattice) Initialize(rng *pcore.RNG) {
	pcore.FillUniform(rng, l.cells, l.q)
}

// Side returns N.
func (l *Lattice) Side() int { return l.n }

// Features returns F.
func (l *Lattice) Features() int { return l.f }

// Traits returns q.
func (l *Lattice) Traits() int { return l.q }

// Sites returns N².
func (l *Lattice) Sites() int { return l.torus.Len() }

// Neighbors returns the four periodic neighbours of (row, col).
func (l *Lattice) Neighbors(row, col int) [4]core.Cell {
	return l.torus.Neighbors(row, col)
}

// Culture returns the culture vector at (row, col). The slice aliases the
// lattice storage and must be treated as read-only.
func (l *Lattice) Culture(row, col int) []Trait {
	return l.site(l.torus.Index(row, col))
}

func (l *Lattice) site(idx int) []Trait {
	base := idx * l.f
	return l.cells[base : base+l.f : base+l.f]
}

// CopyFeature overwrites feature k of (row, col) with the same feature of
// (srcRow, srcCol).
func (l *Lattice) CopyFeature(row, col, srcRow, srcCol, k int) {
	dst := l.torus.Index(row, col)*l.f + k
	src := l.torus.Index(srcRow, srcCol)*l.f + k
	l.cells[dst] = l.cells[src]
}

// SetCulture replaces the culture vector at (row, col).
func (l *Lattice) SetCulture(row, col int, culture []Trait) error {
	if len(culture) != l.f {
		return fmt.Errorf("culture has %d features, lattice expects %d", len(culture), l.f)
	}
	for k, v := range culture {
		if int(v) >= l.q {
			return fmt.Errorf("feature %d value %d outside [0, %d)", k, v, l.q)
		}
	}
	copy(l.site(l.torus.Index(row, col)), culture)
	return nil
}

// Similarity returns the fraction of feature positions where a and b agree.
func Similarity(a, b []Trait) float64 {
	if len(a) == 0 {
		return 0
	}
	return float64(matches(a, b)) / float64(len(a))
}

func matches(a, b []Trait) int {
	same := 0
	for k := range a {
		if a[k] == b[k] {
			same++
		}
	}
	return same
}

func equalCulture(a, b []Trait) bool {
	for k := range a {
		if a[k] != b[k] {
			return false
		}
	}
	return true
}
