package core

import (
	"math/rand/v2"
	"sync/atomic"
)

// RNG is a thin convenience wrapper around math/rand/v2 for deterministic seeding.
type RNG struct {
	r *rand.Rand
}

// NewTrialRNG creates a deterministic RNG from a 64-bit trial seed. The
// second PCG word is derived from the seed so neighbouring seeds do not
// produce correlated streams.
func NewTrialRNG(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, splitMix64(seed)))}
}

// IntN returns a random int in [0, n).
func (r *RNG) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}

// Float64 returns a random float64 in [0, 1).
func (r *RNG) Float64() float64 {
	return r.r.Float64()
}

// FillUniform fills the buffer with values in [0, n) using the RNG.
func FillUniform(r *RNG, buf []uint16, n int) {
	if n <= 1 {
		for i := range buf {
			buf[i] = 0
		}
		return
	}
	for i := range buf {
		buf[i] = uint16(r.IntN(n))
	}
}

// SeedSequence hands out distinct 64-bit seeds derived from a base seed.
// It is safe for concurrent use.
type SeedSequence struct {
	base    uint64
	counter atomic.Uint64
}

// NewSeedSequence returns a sequence rooted at base. A zero base draws the
// root from process entropy.
func NewSeedSequence(base uint64) *SeedSequence {
	if base == 0 {
		base = rand.Uint64() | 1
	}
	return &SeedSequence{base: base}
}

// Base reports the root seed of the sequence.
func (s *SeedSequence) Base() uint64 { return s.base }

// Next returns the next seed. Seeds never repeat within 2^64 calls because
// the finaliser is a bijection of the counter.
func (s *SeedSequence) Next() uint64 {
	n := s.counter.Add(1)
	return splitMix64(s.base + n*0x9e3779b97f4a7c15)
}

func splitMix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
