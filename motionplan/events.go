package motionplan

import "github.com/golang/geo/r3"

// Observer receives notifications while a planner runs. Observers must not modify the planner.
type Observer interface {
	// NodeCreated is called after node index was added under parent.
	NodeCreated(parent, node Node, index int)
	// Raycast is called after every segment collision check.
	Raycast(from, to r3.Vector, free bool)
	// BeforeWaypointOptimization is called for every segment of a path about to be shortened.
	BeforeWaypointOptimization(from, to r3.Vector)
	// AfterWaypointOptimization is called for every segment of the shortened path.
	AfterWaypointOptimization(from, to r3.Vector)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnNodeCreated                func(parent, node Node, index int)
	OnRaycast                    func(from, to r3.Vector, free bool)
	OnBeforeWaypointOptimization func(from, to r3.Vector)
	OnAfterWaypointOptimization  func(from, to r3.Vector)
}

// NodeCreated calls OnNodeCreated.
func (o ObserverFuncs) NodeCreated(parent, node Node, index int) {
	if o.OnNodeCreated != nil {
		o.OnNodeCreated(parent, node, index)
	}
}

// Raycast calls OnRaycast.
func (o ObserverFuncs) Raycast(from, to r3.Vector, free bool) {
	if o.OnRaycast != nil {
		o.OnRaycast(from, to, free)
	}
}

// BeforeWaypointOptimization calls OnBeforeWaypointOptimization.
func (o ObserverFuncs) BeforeWaypointOptimization(from, to r3.Vector) {
	if o.OnBeforeWaypointOptimization != nil {
		o.OnBeforeWaypointOptimization(from, to)
	}
}

// AfterWaypointOptimization calls OnAfterWaypointOptimization.
func (o ObserverFuncs) AfterWaypointOptimization(from, to r3.Vector) {
	if o.OnAfterWaypointOptimization != nil {
		o.OnAfterWaypointOptimization(from, to)
	}
}
