package motionplan

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestNearestNeighbor(t *testing.T) {
	tree := NewTree(r3.Vector{})
	for i := 1; i < 110; i++ {
		_, err := tree.Add(i-1, r3.Vector{X: float64(i)})
		test.That(t, err, test.ShouldBeNil)
	}

	seed := r3.Vector{X: 23.1, Y: 0.3}
	idx, dist := nearestNeighbor(tree, seed)
	test.That(t, idx, test.ShouldEqual, 23)
	test.That(t, dist, test.ShouldAlmostEqual, seed.Distance(r3.Vector{X: 23}))

	idx, dist = nearestNeighbor(tree, r3.Vector{X: -5})
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, dist, test.ShouldAlmostEqual, 5)
}
