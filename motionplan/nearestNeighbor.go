package motionplan

import (
	"math"

	"github.com/golang/geo/r3"
)

// nearestNeighbor scans every node and returns the index of the one closest to seed and its distance.
// Ties go to the earliest node.
func nearestNeighbor(t *Tree, seed r3.Vector) (int, float64) {
	best := 0
	bestDist := math.Inf(1)
	for i, n := range t.nodes {
		dist := n.Position.Distance(seed)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}
	return best, bestDist
}
