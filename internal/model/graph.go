package model

// ContactGraph is the derived contact structure over the herd. It is
// recomputed from current pen/bunk assignments, never stored independently.
//
// Weights is symmetric with zero diagonal, and its row/column order matches
// CowIDs exactly; consumers correlate by index, not by cow ID.
type ContactGraph struct {
	CowIDs  []int
	Weights [][]float64
}

// Binary returns the unweighted adjacency matrix (1 where any edge exists).
func (g *ContactGraph) Binary() [][]int {
	out := make([][]int, len(g.Weights))
	for i, row := range g.Weights {
		out[i] = make([]int, len(row))
		for j, w := range row {
			if w > 0 {
				out[i][j] = 1
			}
		}
	}
	return out
}

// TopEdgeFor returns the strongest edge incident on the given cow, or nil
// if the cow is isolated or unknown.
func (g *ContactGraph) TopEdgeFor(cowID int) *TopEdge {
	idx := -1
	for i, id := range g.CowIDs {
		if id == cowID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}

	best := -1
	var bestWeight float64
	for j, w := range g.Weights[idx] {
		if j != idx && w > bestWeight {
			best = j
			bestWeight = w
		}
	}
	if best < 0 {
		return nil
	}
	return &TopEdge{From: cowID, To: g.CowIDs[best], Weight: bestWeight}
}
