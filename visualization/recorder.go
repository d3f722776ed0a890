// Package visualization records planner activity through the observer hooks and renders it offline.
package visualization

import (
	"sync"

	"github.com/golang/geo/r3"

	"github.com/mdi-inspection/mdi/motionplan"
)

// Segment is a straight line between two points.
type Segment struct {
	From r3.Vector
	To   r3.Vector
}

// Raycast is one collision check and its outcome.
type Raycast struct {
	Segment
	Free bool
}

// Recorder is a motionplan.Observer that keeps every event in memory. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	edges    []Segment
	raycasts []Raycast
	before   []Segment
	after    []Segment
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

var _ motionplan.Observer = (*Recorder)(nil)

// NodeCreated records the new tree edge.
func (r *Recorder) NodeCreated(parent, node motionplan.Node, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = append(r.edges, Segment{From: parent.Position, To: node.Position})
}

// Raycast records a collision check.
func (r *Recorder) Raycast(from, to r3.Vector, free bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raycasts = append(r.raycasts, Raycast{Segment: Segment{From: from, To: to}, Free: free})
}

// BeforeWaypointOptimization records a segment of the path before shortcutting.
func (r *Recorder) BeforeWaypointOptimization(from, to r3.Vector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.before = append(r.before, Segment{From: from, To: to})
}

// AfterWaypointOptimization records a segment of the shortened path.
func (r *Recorder) AfterWaypointOptimization(from, to r3.Vector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.after = append(r.after, Segment{From: from, To: to})
}

// Edges returns the tree edges in creation order.
func (r *Recorder) Edges() []Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Segment(nil), r.edges...)
}

// Raycasts returns every recorded collision check.
func (r *Recorder) Raycasts() []Raycast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Raycast(nil), r.raycasts...)
}

// Optimization returns the path segments before and after shortcutting.
func (r *Recorder) Optimization() (before, after []Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Segment(nil), r.before...), append([]Segment(nil), r.after...)
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = nil
	r.raycasts = nil
	r.before = nil
	r.after = nil
}
