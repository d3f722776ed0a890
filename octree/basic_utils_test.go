package octree

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func createNewNode(center r3.Vector, side float64, depth int) *basicOctree {
	return &basicOctree{node: newLeafNodeEmpty(), center: center, sideLength: side, depth: depth}
}

// Test creation of empty leaf node, filled leaf node and internal node.
func TestNodeCreation(t *testing.T) {
	t.Run("Create empty leaf node", func(t *testing.T) {
		node := newLeafNodeEmpty()

		test.That(t, node.nodeType, test.ShouldResemble, LeafNodeEmpty)
		test.That(t, node.logOdds, test.ShouldEqual, 0)
		test.That(t, node.children, test.ShouldBeNil)
	})

	t.Run("Create filled leaf node", func(t *testing.T) {
		node := newLeafNodeFilled(0.85)

		test.That(t, node.nodeType, test.ShouldResemble, LeafNodeFilled)
		test.That(t, node.logOdds, test.ShouldEqual, 0.85)
		test.That(t, node.children, test.ShouldBeNil)
	})

	t.Run("Create internal node", func(t *testing.T) {
		var children []*basicOctree
		node := newInternalNode(children)

		test.That(t, node.nodeType, test.ShouldResemble, InternalNode)
		test.That(t, node.children, test.ShouldResemble, children)
	})
}

// Tests that splitting an empty node results in eight empty children laid out by childIndex, and that
// every other kind of node refuses to split.
func TestSplitIntoOctants(t *testing.T) {
	center := r3.Vector{X: 0, Y: 0, Z: 0}
	side := 1.0

	t.Run("Splitting empty node into octants", func(t *testing.T) {
		node := createNewNode(center, side, 2)
		test.That(t, node.splitIntoOctants(), test.ShouldBeNil)
		test.That(t, len(node.node.children), test.ShouldEqual, 8)
		test.That(t, node.node.nodeType, test.ShouldResemble, InternalNode)

		for i, child := range node.node.children {
			test.That(t, child.node.nodeType, test.ShouldResemble, LeafNodeEmpty)
			test.That(t, child.depth, test.ShouldEqual, 1)
			test.That(t, child.sideLength, test.ShouldEqual, 0.5)
			test.That(t, node.childIndex(child.center), test.ShouldEqual, i)
			test.That(t, node.checkPointPlacement(child.center), test.ShouldBeTrue)
		}
		validateBasicOctree(t, node, center, side)
	})

	t.Run("Splitting internal node", func(t *testing.T) {
		node := createNewNode(center, side, 2)
		test.That(t, node.splitIntoOctants(), test.ShouldBeNil)
		err := node.splitIntoOctants()
		test.That(t, err, test.ShouldBeError, errors.New("error attempted to split internal node"))
	})

	t.Run("Splitting filled leaf node", func(t *testing.T) {
		node := createNewNode(center, side, 2)
		node.node = newLeafNodeFilled(1)
		err := node.splitIntoOctants()
		test.That(t, err, test.ShouldBeError, errors.New("error attempted to split filled leaf node"))
	})

	t.Run("Splitting voxel level node", func(t *testing.T) {
		node := createNewNode(center, side, 0)
		err := node.splitIntoOctants()
		test.That(t, err, test.ShouldBeError, errors.New("error attempted to split a voxel level node"))
	})
}

// Test the function responsible for checking if the specified point will fit in the node given its center and side.
func TestCheckPointPlacement(t *testing.T) {
	node := createNewNode(r3.Vector{X: 0, Y: 0, Z: 0}, 2.0, 1)

	test.That(t, node.checkPointPlacement(r3.Vector{X: 0, Y: 0, Z: 0}), test.ShouldBeTrue)
	test.That(t, node.checkPointPlacement(r3.Vector{X: .25, Y: .25, Z: .25}), test.ShouldBeTrue)
	test.That(t, node.checkPointPlacement(r3.Vector{X: -1, Y: -1, Z: -1}), test.ShouldBeTrue)
	test.That(t, node.checkPointPlacement(r3.Vector{X: 0.99, Y: 0.99, Z: 0.99}), test.ShouldBeTrue)
	test.That(t, node.checkPointPlacement(r3.Vector{X: 1.00, Y: 0, Z: 0}), test.ShouldBeFalse)
	test.That(t, node.checkPointPlacement(r3.Vector{X: 0, Y: 1.01, Z: 0}), test.ShouldBeFalse)
	test.That(t, node.checkPointPlacement(r3.Vector{X: 0.99, Y: 0, Z: -1.01}), test.ShouldBeFalse)
	test.That(t, node.checkPointPlacement(r3.Vector{X: -1000, Y: 0, Z: 0}), test.ShouldBeFalse)

	node = createNewNode(r3.Vector{X: 1000, Y: -1000, Z: 10}, 24.0, 3)
	test.That(t, node.checkPointPlacement(r3.Vector{X: 1000, Y: -1000, Z: 5}), test.ShouldBeTrue)
	test.That(t, node.checkPointPlacement(r3.Vector{X: 1000, Y: -994, Z: .5}), test.ShouldBeTrue)
	test.That(t, node.checkPointPlacement(r3.Vector{X: -1000, Y: 0, Z: 0}), test.ShouldBeFalse)
}

func TestLeafForAndClone(t *testing.T) {
	node := createNewNode(r3.Vector{X: 0.5, Y: 0.5, Z: 0.5}, 1, 2)
	p := r3.Vector{X: 0.1, Y: 0.6, Z: 0.9}

	test.That(t, node.leafFor(p, false), test.ShouldBeNil)
	leaf := node.leafFor(p, true)
	test.That(t, leaf, test.ShouldNotBeNil)
	test.That(t, leaf.depth, test.ShouldEqual, 0)
	test.That(t, leaf.sideLength, test.ShouldEqual, 0.25)
	test.That(t, leaf.checkPointPlacement(p), test.ShouldBeTrue)
	leaf.node = newLeafNodeFilled(2)
	test.That(t, node.leafFor(p, false), test.ShouldEqual, leaf)

	cp := node.clone()
	cp.leafFor(p, false).node.logOdds = -1
	test.That(t, leaf.node.logOdds, test.ShouldEqual, 2)

	count := 0
	node.iterate(func(l *basicOctree) bool {
		count++
		return true
	})
	test.That(t, count, test.ShouldEqual, 1)
	test.That(t, validateBasicOctree(t, node, node.center, node.sideLength), test.ShouldEqual, 1)
}

// Helper function that recursively checks a node's structure and returns the number of filled leaves.
func validateBasicOctree(t *testing.T, bOct *basicOctree, center r3.Vector, sideLength float64) int {
	t.Helper()

	test.That(t, sideLength, test.ShouldAlmostEqual, bOct.sideLength)
	test.That(t, center.Distance(bOct.center), test.ShouldBeLessThan, 1e-9)

	size := 0
	switch bOct.node.nodeType {
	case InternalNode:
		test.That(t, len(bOct.node.children), test.ShouldEqual, 8)
		for c, child := range bOct.node.children {
			i, j, k := -1.0, -1.0, -1.0
			if c&4 != 0 {
				i = 1
			}
			if c&2 != 0 {
				j = 1
			}
			if c&1 != 0 {
				k = 1
			}
			test.That(t, child.depth, test.ShouldEqual, bOct.depth-1)
			size += validateBasicOctree(t, child, r3.Vector{
				X: center.X + i*sideLength/4.,
				Y: center.Y + j*sideLength/4.,
				Z: center.Z + k*sideLength/4.,
			}, sideLength/2.)
		}
	case LeafNodeFilled:
		test.That(t, len(bOct.node.children), test.ShouldEqual, 0)
		test.That(t, bOct.depth, test.ShouldEqual, 0)
		size = 1
	case LeafNodeEmpty:
		test.That(t, len(bOct.node.children), test.ShouldEqual, 0)
	}
	return size
}
