package motionplan

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/spatialmath"
)

// NoParent is the parent index of the root.
const NoParent = -1

// Node is a pose in the tree. Children are not tracked.
type Node struct {
	Position r3.Vector
	// Orientation is only set for nodes that carry a viewing direction.
	Orientation spatialmath.Orientation
	Parent      int
	// Cost is the path length from the root.
	Cost float64
}

// Waypoints are points in root to target order.
type Waypoints []r3.Vector

// Length returns the summed length of every segment.
func (w Waypoints) Length() float64 {
	total := 0.
	for i := 1; i < len(w); i++ {
		total += w[i-1].Distance(w[i])
	}
	return total
}

// SegmentLengths returns the length of every segment in order.
func (w Waypoints) SegmentLengths() []float64 {
	if len(w) < 2 {
		return nil
	}
	lengths := make([]float64, 0, len(w)-1)
	for i := 1; i < len(w); i++ {
		lengths = append(lengths, w[i-1].Distance(w[i]))
	}
	return lengths
}

// Tree is an arena of nodes addressed by index. The root is at index 0 and every other node's parent
// has a lower index than the node itself, so the tree cannot hold a cycle.
type Tree struct {
	nodes  []Node
	newest int
}

// NewTree returns a tree holding only the root.
func NewTree(root r3.Vector) *Tree {
	return &Tree{nodes: []Node{{Position: root, Parent: NoParent}}}
}

// Len returns the number of nodes including the root.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the root node.
func (t *Tree) Root() Node {
	return t.nodes[0]
}

// Newest returns the index of the most recently added node.
func (t *Tree) Newest() int {
	return t.newest
}

// Node returns the node at index i.
func (t *Tree) Node(i int) (Node, bool) {
	if i < 0 || i >= len(t.nodes) {
		return Node{}, false
	}
	return t.nodes[i], true
}

// Nodes returns a copy of every node in insertion order.
func (t *Tree) Nodes() []Node {
	return append([]Node(nil), t.nodes...)
}

// Add appends a node under parent and returns its index.
func (t *Tree) Add(parent int, position r3.Vector) (int, error) {
	if parent < 0 || parent >= len(t.nodes) {
		return 0, errors.Errorf("parent index %d is not in a tree of %d nodes", parent, len(t.nodes))
	}
	p := t.nodes[parent]
	t.nodes = append(t.nodes, Node{
		Position: position,
		Parent:   parent,
		Cost:     p.Cost + p.Position.Distance(position),
	})
	t.newest = len(t.nodes) - 1
	return t.newest, nil
}

func (t *Tree) setOrientation(i int, o spatialmath.Orientation) {
	t.nodes[i].Orientation = o
}

// Backtrack follows parents from node i to the root and returns the positions in root to node order.
func (t *Tree) Backtrack(i int) (Waypoints, error) {
	if i < 0 || i >= len(t.nodes) {
		return nil, errors.Errorf("cannot backtrack from node %d in a tree of %d nodes", i, len(t.nodes))
	}

	// extract the path to the root
	path := make(Waypoints, 0)
	for cur := i; cur != NoParent; cur = t.nodes[cur].Parent {
		if len(path) == len(t.nodes) {
			return nil, errors.Errorf("cycle detected while backtracking from node %d", i)
		}
		path = append(path, t.nodes[cur].Position)
	}

	// reverse the slice
	for a, b := 0, len(path)-1; a < b; a, b = a+1, b-1 {
		path[a], path[b] = path[b], path[a]
	}
	return path, nil
}
