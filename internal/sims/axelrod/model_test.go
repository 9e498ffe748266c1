package axelrod

import (
	"slices"
	"testing"
)

func TestModelResetDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Size = 8

	m := NewModel(cfg)
	initial := append([]Trait(nil), m.Lattice().cells...)

	m.Step()
	m.Step()
	if m.Sweeps() != 2 {
		t.Fatalf("sweeps = %d, want 2", m.Sweeps())
	}
	if m.Stats().Steps != 2*64 {
		t.Fatalf("one sweep is N² micro-steps, got %d steps", m.Stats().Steps)
	}

	m.Reset(0)
	if !slices.Equal(initial, m.Lattice().cells) {
		t.Fatal("Reset with config seed not deterministic")
	}
	if m.Sweeps() != 0 {
		t.Fatal("Reset must clear the sweep counter")
	}

	m.Reset(99)
	if slices.Equal(initial, m.Lattice().cells) {
		t.Fatal("different seeds should produce different lattices")
	}
}

func TestCultureShadeOrdering(t *testing.T) {
	if got := CultureShade([]Trait{0, 0}, 4); got != 0 {
		t.Fatalf("zero culture shade = %v", got)
	}
	if got := CultureShade([]Trait{1, 2}, 4); got != 0.25+2.0/16 {
		t.Fatalf("shade = %v, want %v", got, 0.25+2.0/16)
	}
	top := CultureShade([]Trait{3, 3, 3}, 4)
	if top >= 1 {
		t.Fatalf("shade must stay below 1, got %v", top)
	}
	if CultureShade([]Trait{1, 0}, 4) <= CultureShade([]Trait{0, 3}, 4) {
		t.Fatal("first feature should dominate the ordering")
	}
}

func TestModelShadeReadsLattice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Size = 3
	cfg.Params.Features = 2
	cfg.Params.Traits = 4
	m := NewModel(cfg)
	if err := m.Lattice().SetCulture(2, 1, []Trait{3, 1}); err != nil {
		t.Fatal(err)
	}
	if got, want := m.Shade(1, 2), CultureShade([]Trait{3, 1}, 4); got != want {
		t.Fatalf("Shade(x=1,y=2) = %v, want %v", got, want)
	}
}

func TestModelLevels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Size = 2
	cfg.Params.Features = 2
	cfg.Params.Traits = 3
	m := NewModel(cfg)
	if got := m.Levels(256); got != 9 {
		t.Fatalf("Levels = %d, want 9", got)
	}
	if got := m.Levels(8); got != 0 {
		t.Fatalf("Levels above the cap = %d, want 0", got)
	}
}
