package core

// Size describes the dimensions of a simulation grid.
type Size struct {
	W int
	H int
}

// Sim defines the minimal contract a lattice model must implement to be
// stepped and rendered frame by frame.
type Sim interface {
	Name() string
	Size() Size
	Reset(seed int64)
	Step()
	// Shade maps the state at (x, y) to a value in [0, 1) for colouring.
	Shade(x, y int) float64
}
