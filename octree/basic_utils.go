package octree

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// basicOctree is a node of the tree: a cube given by its center and side length, depth levels above
// the voxel level.
type basicOctree struct {
	node       basicOctreeNode
	center     r3.Vector
	sideLength float64
	depth      int
}

// basicOctreeNode is comprised of the type of node, children nodes (should they exist) and, for
// filled leaves, the log-odds of occupancy.
type basicOctreeNode struct {
	nodeType NodeType
	children []*basicOctree
	logOdds  float64
}

// Creates an empty leaf node.
func newLeafNodeEmpty() basicOctreeNode {
	return basicOctreeNode{nodeType: LeafNodeEmpty}
}

// Creates an observed leaf node with the given log-odds.
func newLeafNodeFilled(l float64) basicOctreeNode {
	return basicOctreeNode{nodeType: LeafNodeFilled, logOdds: l}
}

// Creates an internal node with the given children.
func newInternalNode(children []*basicOctree) basicOctreeNode {
	return basicOctreeNode{nodeType: InternalNode, children: children}
}

// splitIntoOctants turns an empty leaf above voxel level into an internal node with eight empty
// children. Child i covers the half space above the center on x when i&4 is set, on y for i&2 and on
// z for i&1.
func (octree *basicOctree) splitIntoOctants() error {
	switch {
	case octree.depth == 0:
		return errors.New("error attempted to split a voxel level node")
	case octree.node.nodeType == InternalNode:
		return errors.New("error attempted to split internal node")
	case octree.node.nodeType == LeafNodeFilled:
		return errors.New("error attempted to split filled leaf node")
	}

	children := make([]*basicOctree, 0, 8)
	quarter := octree.sideLength / 4
	for _, i := range []float64{-1, 1} {
		for _, j := range []float64{-1, 1} {
			for _, k := range []float64{-1, 1} {
				children = append(children, &basicOctree{
					node:       newLeafNodeEmpty(),
					center:     octree.center.Add(r3.Vector{X: i * quarter, Y: j * quarter, Z: k * quarter}),
					sideLength: octree.sideLength / 2,
					depth:      octree.depth - 1,
				})
			}
		}
	}
	octree.node = newInternalNode(children)
	return nil
}

// checkPointPlacement reports whether p lies in the half open cube [center-side/2, center+side/2).
func (octree *basicOctree) checkPointPlacement(p r3.Vector) bool {
	half := octree.sideLength / 2
	return p.X >= octree.center.X-half && p.X < octree.center.X+half &&
		p.Y >= octree.center.Y-half && p.Y < octree.center.Y+half &&
		p.Z >= octree.center.Z-half && p.Z < octree.center.Z+half
}

func (octree *basicOctree) childIndex(p r3.Vector) int {
	idx := 0
	if p.X >= octree.center.X {
		idx |= 4
	}
	if p.Y >= octree.center.Y {
		idx |= 2
	}
	if p.Z >= octree.center.Z {
		idx |= 1
	}
	return idx
}

// leafFor descends to the voxel level node containing p, which must be inside the receiver. With
// create unset it returns nil when the path has not been built.
func (octree *basicOctree) leafFor(p r3.Vector, create bool) *basicOctree {
	node := octree
	for node.depth > 0 {
		if node.node.nodeType != InternalNode {
			if !create {
				return nil
			}
			if err := node.splitIntoOctants(); err != nil {
				return nil
			}
		}
		node = node.node.children[node.childIndex(p)]
	}
	return node
}

func (octree *basicOctree) clone() *basicOctree {
	cp := *octree
	if octree.node.children != nil {
		cp.node.children = make([]*basicOctree, len(octree.node.children))
		for i, child := range octree.node.children {
			cp.node.children[i] = child.clone()
		}
	}
	return &cp
}

// iterate visits filled leaves depth first in child order. It returns false once fn has asked to stop.
func (octree *basicOctree) iterate(fn func(leaf *basicOctree) bool) bool {
	switch octree.node.nodeType {
	case InternalNode:
		for _, child := range octree.node.children {
			if !child.iterate(fn) {
				return false
			}
		}
	case LeafNodeFilled:
		return fn(octree)
	case LeafNodeEmpty:
	}
	return true
}
