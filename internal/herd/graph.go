package herd

import "github.com/tauron-farm/tauron/internal/model"

// Edge weights: pen-mates are the strongest contact; sharing only a feeding
// station is a weaker tie. When both apply the pen weight wins.
const (
	penEdgeWeight  = 1.0
	bunkEdgeWeight = 0.5
)

// buildGraph derives the contact graph from current placements. The matrix
// is symmetric with a zero diagonal and indexes in the order of the cows
// slice, the same canonical order Snapshot returns.
func buildGraph(cows []model.Cow) *model.ContactGraph {
	n := len(cows)
	g := &model.ContactGraph{
		CowIDs:  make([]int, n),
		Weights: make([][]float64, n),
	}
	for i := range cows {
		g.CowIDs[i] = cows[i].ID
		g.Weights[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			w := edgeWeight(&cows[i], &cows[j])
			if w > 0 {
				g.Weights[i][j] = w
				g.Weights[j][i] = w
			}
		}
	}
	return g
}

func edgeWeight(a, b *model.Cow) float64 {
	if a.Pen != "" && a.Pen == b.Pen {
		return penEdgeWeight
	}
	if a.Bunk != "" && a.Bunk == b.Bunk {
		return bunkEdgeWeight
	}
	return 0
}
