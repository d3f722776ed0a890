package octree

import (
	"github.com/golang/geo/r3"

	"github.com/mdi-inspection/mdi/spatialmath"
)

type unavailableMap struct{}

// Unavailable returns the map used when no occupancy data could be obtained. Every query answers
// occupied so nothing is planned through space that was never checked.
func Unavailable() Map {
	return unavailableMap{}
}

// IsUnavailable reports whether m is nil or the unavailable map.
func IsUnavailable(m Map) bool {
	if m == nil {
		return true
	}
	_, ok := m.(unavailableMap)
	return ok
}

func (unavailableMap) Resolution() float64 {
	return DefaultResolution
}

func (unavailableMap) Query(r3.Vector) (Occupancy, error) {
	return Occupied, nil
}

func (unavailableMap) Bounds() (spatialmath.BoundingBox, bool) {
	return spatialmath.BoundingBox{}, false
}
