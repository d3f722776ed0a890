package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/spatialmath"
)

// SegmentCheck is the outcome of sampling a segment against a map.
type SegmentCheck struct {
	Free    bool
	Samples int
	// Blocked is the first sample that was not free and BlockedBy its classification. Only set
	// when Free is false.
	Blocked   r3.Vector
	BlockedBy Occupancy
}

// CheckSegment samples the segment from..to at half the map resolution, endpoints included, and
// reports whether every sample is free. Unknown samples block unless unknownIsFree is set. A
// nil map is treated as unavailable. A query error blocks the segment as occupied and is returned.
func CheckSegment(m Map, from, to r3.Vector, unknownIsFree bool) (SegmentCheck, error) {
	if m == nil {
		m = Unavailable()
	}
	if !spatialmath.IsFiniteVector(from) || !spatialmath.IsFiniteVector(to) {
		return SegmentCheck{BlockedBy: Occupied}, errors.Errorf("cannot check non-finite segment %v -> %v", from, to)
	}
	step := m.Resolution() / 2
	length := from.Distance(to)
	n := 0
	if length > 0 {
		n = int(math.Ceil(length / step))
	}

	result := SegmentCheck{Free: true}
	for i := 0; i <= n; i++ {
		p := from
		if n > 0 {
			p = from.Add(to.Sub(from).Mul(float64(i) / float64(n)))
		}
		result.Samples++
		occ, err := m.Query(p)
		if err != nil {
			result.Free = false
			result.Blocked = p
			result.BlockedBy = Occupied
			return result, err
		}
		if occ == Occupied || (occ == Unknown && !unknownIsFree) {
			result.Free = false
			result.Blocked = p
			result.BlockedBy = occ
			return result, nil
		}
	}
	return result, nil
}
