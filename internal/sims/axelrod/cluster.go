package axelrod

// ComponentSizes labels the maximal connected regions of identical culture
// vectors (periodic 4-adjacency) and returns their sizes in discovery order.
// The sizes always sum to N².
func ComponentSizes(l *Lattice) []int {
	total := l.Sites()
	visited := make([]bool, total)
	queue := make([]int, 0, total)
	var sizes []int

	for seed := 0; seed < total; seed++ {
		if visited[seed] {
			continue
		}
		target := l.site(seed)
		visited[seed] = true
		queue = append(queue[:0], seed)
		size := 0
		for head := 0; head < len(queue); head++ {
			idx := queue[head]
			size++
			for _, nIdx := range l.torus.NeighborIndices(idx) {
				if visited[nIdx] || !equalCulture(target, l.site(nIdx)) {
					continue
				}
				visited[nIdx] = true
				queue = append(queue, nIdx)
			}
		}
		sizes = append(sizes, size)
	}
	return sizes
}

// LargestClusterFraction returns the fraction of sites in the largest
// connected homogeneous cluster. The result lies in (0, 1].
func LargestClusterFraction(l *Lattice) float64 {
	largest := 0
	for _, size := range ComponentSizes(l) {
		if size > largest {
			largest = size
		}
	}
	return float64(largest) / float64(l.Sites())
}
