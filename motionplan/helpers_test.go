package motionplan

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// uniformMap answers the same state everywhere.
type uniformMap struct {
	state octree.Occupancy
}

func (m uniformMap) Resolution() float64 { return 0.1 }

func (m uniformMap) Query(p r3.Vector) (octree.Occupancy, error) {
	return m.state, nil
}

func (m uniformMap) Bounds() (spatialmath.BoundingBox, bool) {
	return spatialmath.BoundingBox{}, false
}

// wallMap is free except for a slab at x = 5 spanning |y| < 3.
type wallMap struct{}

func (wallMap) Resolution() float64 { return 0.1 }

func (wallMap) Query(p r3.Vector) (octree.Occupancy, error) {
	if p.X > 4.8 && p.X < 5.2 && math.Abs(p.Y) < 3 {
		return octree.Occupied, nil
	}
	return octree.Free, nil
}

func (wallMap) Bounds() (spatialmath.BoundingBox, bool) {
	return spatialmath.BoundingBox{}, false
}

type brokenMap struct{}

func (brokenMap) Resolution() float64 { return 0.1 }

func (brokenMap) Query(p r3.Vector) (octree.Occupancy, error) {
	return octree.Unknown, errors.New("map server went away")
}

func (brokenMap) Bounds() (spatialmath.BoundingBox, bool) {
	return spatialmath.BoundingBox{}, false
}
