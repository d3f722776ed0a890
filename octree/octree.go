// Package octree implements a log-odds occupancy octree and the occupancy queries the planners and
// the gain scorer consume. Space is classified as free, occupied or unknown on a grid whose cells
// are axis aligned cubes of side Resolution, with cell (i, j, k) spanning [i*res, (i+1)*res).
package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/pointcloud"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// Each node in the octree is either an internal node which links to other nodes, an empty leaf that
// has never been observed, or a filled leaf at voxel resolution holding the log-odds of occupancy.
const (
	InternalNode = NodeType(iota)
	LeafNodeEmpty
	LeafNodeFilled
)

// NodeType represents the possible types of nodes in an octree.
type NodeType uint8

// DefaultResolution is the voxel side length in metres used when none is given.
const DefaultResolution = 0.1

// Occupancy is the classification of a point in space.
type Occupancy uint8

const (
	// Unknown space has never been observed.
	Unknown Occupancy = iota
	// Free space was observed empty.
	Free
	// Occupied space was observed to hold an obstacle.
	Occupied
)

func (o Occupancy) String() string {
	switch o {
	case Unknown:
		return "unknown"
	case Free:
		return "free"
	case Occupied:
		return "occupied"
	}
	return "invalid"
}

// Map is the read-only view of an occupancy map.
type Map interface {
	// Resolution is the side length of one voxel in metres.
	Resolution() float64

	// Query classifies the voxel containing p.
	Query(p r3.Vector) (Occupancy, error)

	// Bounds returns the extent of observed space. ok is false when nothing has been observed.
	Bounds() (box spatialmath.BoundingBox, ok bool)
}

// Octree is a mutable occupancy map.
type Octree interface {
	Map

	// Size returns the number of observed voxels.
	Size() int

	// Update integrates a single hit or miss observation for the voxel containing p.
	Update(p r3.Vector, occupied bool) error

	// InsertRay marks the voxels between origin and end as free and the voxel holding end as
	// occupied. Rays longer than maxRange are truncated and record no hit. maxRange <= 0 means no limit.
	InsertRay(origin, end r3.Vector, maxRange float64) error

	// InsertPointCloud inserts a ray from the cloud viewpoint to every point.
	InsertPointCloud(cloud pointcloud.PointCloud, maxRange float64) error

	// ClearRegion sets every voxel whose centre lies in box to free and returns how many changed.
	ClearRegion(box spatialmath.BoundingBox) int

	// Reset forgets every observation.
	Reset()

	// Clone returns a deep copy that shares no state with the receiver.
	Clone() Octree

	// Iterate calls fn for every observed voxel in a fixed order until fn returns false.
	Iterate(fn func(v Voxel) bool)
}

// Voxel is an observed cell of an octree.
type Voxel struct {
	Key       VoxelKey
	Center    r3.Vector
	LogOdds   float64
	Occupancy Occupancy
}

// SensorModel holds the probabilities used to integrate observations.
type SensorModel struct {
	ProbHit            float64 `json:"prob_hit"`
	ProbMiss           float64 `json:"prob_miss"`
	ClampMin           float64 `json:"clamp_min"`
	ClampMax           float64 `json:"clamp_max"`
	OccupancyThreshold float64 `json:"occupancy_threshold"`
}

// DefaultSensorModel returns the usual probabilities for a depth sensor.
func DefaultSensorModel() SensorModel {
	return SensorModel{
		ProbHit:            0.7,
		ProbMiss:           0.4,
		ClampMin:           0.1192,
		ClampMax:           0.971,
		OccupancyThreshold: 0.5,
	}
}

// Validate checks that every probability is in (0, 1) and consistently ordered.
func (m SensorModel) Validate() error {
	for name, p := range map[string]float64{
		"prob_hit":            m.ProbHit,
		"prob_miss":           m.ProbMiss,
		"clamp_min":           m.ClampMin,
		"clamp_max":           m.ClampMax,
		"occupancy_threshold": m.OccupancyThreshold,
	} {
		if !(p > 0 && p < 1) {
			return errors.Errorf("%s must be in (0, 1), got %v", name, p)
		}
	}
	if m.ProbHit <= m.OccupancyThreshold {
		return errors.New("prob_hit must exceed the occupancy threshold")
	}
	if m.ProbMiss >= m.OccupancyThreshold {
		return errors.New("prob_miss must be below the occupancy threshold")
	}
	if m.ClampMin >= m.ClampMax {
		return errors.New("clamp_min must be below clamp_max")
	}
	return nil
}

func logOdds(p float64) float64 {
	return math.Log(p / (1 - p))
}

// Probability converts a log-odds value back to a probability.
func Probability(l float64) float64 {
	return 1 - 1/(1+math.Exp(l))
}
