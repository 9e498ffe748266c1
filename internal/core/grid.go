package core

// Cell addresses a single lattice site by row and column.
type Cell struct {
	Row, Col int
}

// Torus describes a W×H grid with periodic wraparound on both axes. Rows run
// along H and columns along W.
type Torus struct {
	W, H int
}

// NewTorus returns a square torus with side n.
func NewTorus(n int) Torus {
	if n <= 0 {
		n = 1
	}
	return Torus{W: n, H: n}
}

// Len returns the number of sites.
func (t Torus) Len() int { return t.W * t.H }

// Index returns the linear slice index for (row, col).
func (t Torus) Index(row, col int) int { return row*t.W + col }

// At converts a linear index back to coordinates.
func (t Torus) At(idx int) Cell { return Cell{Row: idx / t.W, Col: idx % t.W} }

// Wrap applies toroidal wrapping to the provided coordinates.
func (t Torus) Wrap(row, col int) (int, int) {
	row = (row%t.H + t.H) % t.H
	col = (col%t.W + t.W) % t.W
	return row, col
}

// Neighbors returns the four periodic neighbours of (row, col) in the order
// up, down, left, right.
func (t Torus) Neighbors(row, col int) [4]Cell {
	up, _ := t.Wrap(row-1, col)
	down, _ := t.Wrap(row+1, col)
	_, left := t.Wrap(row, col-1)
	_, right := t.Wrap(row, col+1)
	return [4]Cell{
		{Row: up, Col: col},
		{Row: down, Col: col},
		{Row: row, Col: left},
		{Row: row, Col: right},
	}
}

// NeighborIndices is Neighbors expressed as linear indices.
func (t Torus) NeighborIndices(idx int) [4]int {
	c := t.At(idx)
	nb := t.Neighbors(c.Row, c.Col)
	return [4]int{
		t.Index(nb[0].Row, nb[0].Col),
		t.Index(nb[1].Row, nb[1].Col),
		t.Index(nb[2].Row, nb[2].Col),
		t.Index(nb[3].Row, nb[3].Col),
	}
}
