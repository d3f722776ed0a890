// Package gain scores candidate viewpoints against an occupancy map. The score of a field of view is
// a weighted mix of the free, occupied and unknown fractions of the voxels it sees plus a bonus for
// being close to the target, passed through a reshaping function.
package gain

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/floats"

	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// maxVoxels bounds how many grid cells a single evaluation may enumerate.
const maxVoxels = 1 << 24

// Weights are the per-class and distance weights of the score. All weights are non-negative.
type Weights struct {
	Free             float64
	Occupied         float64
	Unknown          float64
	DistanceToTarget float64
	// Reshape is applied to the raw score. nil means Identity.
	Reshape ReshapeFunc
}

// Validate returns every invalid weight.
func (w Weights) Validate() error {
	var errs error
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"free", w.Free},
		{"occupied", w.Occupied},
		{"unknown", w.Unknown},
		{"distance_to_target", w.DistanceToTarget},
	} {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) || f.val < 0 {
			errs = multierr.Append(errs, errors.Errorf("weight %s must be finite and non-negative, got %v", f.name, f.val))
		}
	}
	return errs
}

// Result is the breakdown of one evaluation.
type Result struct {
	Gain float64
	Raw  float64

	Voxels   int
	Free     int
	Occupied int
	Unknown  int
	// QueryErrors counts voxels whose query failed. They are included in Occupied.
	QueryErrors int

	// DistanceToTarget is the distance from the camera to the target, or NaN without a target.
	DistanceToTarget float64
}

// Evaluate scores fov against m. Voxel centres on the map grid inside the frustum are classified;
// the class fractions are zero when no centre falls inside. The map is only read. A nil map is
// treated as unavailable.
func Evaluate(fov *spatialmath.FieldOfView, m octree.Map, w Weights) (Result, error) {
	if fov == nil {
		return Result{}, errors.New("cannot evaluate gain without a field of view")
	}
	if err := w.Validate(); err != nil {
		return Result{}, err
	}
	if m == nil {
		m = octree.Unavailable()
	}
	reshape := w.Reshape
	if reshape == nil {
		reshape = Identity
	}

	res := m.Resolution()
	box := fov.BoundingBox()
	lo := octree.KeyFor(box.Min, res)
	hi := octree.KeyFor(box.Max, res)
	cells := float64(hi.I-lo.I+1) * float64(hi.J-lo.J+1) * float64(hi.K-lo.K+1)
	if cells > maxVoxels {
		return Result{}, errors.Errorf("field of view spans %.0f voxels, more than the limit of %d", cells, maxVoxels)
	}

	result := Result{DistanceToTarget: math.NaN()}
	for i := lo.I; i <= hi.I; i++ {
		for j := lo.J; j <= hi.J; j++ {
			for k := lo.K; k <= hi.K; k++ {
				c := octree.CenterOf(octree.VoxelKey{I: i, J: j, K: k}, res)
				if !fov.Contains(c) {
					continue
				}
				result.Voxels++
				occ, err := m.Query(c)
				if err != nil {
					result.QueryErrors++
					result.Occupied++
					continue
				}
				switch occ {
				case octree.Free:
					result.Free++
				case octree.Occupied:
					result.Occupied++
				default:
					result.Unknown++
				}
			}
		}
	}

	fractions := make([]float64, 3)
	if result.Voxels > 0 {
		fractions[0] = float64(result.Free) / float64(result.Voxels)
		fractions[1] = float64(result.Occupied) / float64(result.Voxels)
		fractions[2] = float64(result.Unknown) / float64(result.Voxels)
	}
	result.Raw = floats.Dot([]float64{w.Free, w.Occupied, w.Unknown}, fractions)
	if target, ok := fov.Target(); ok {
		result.DistanceToTarget = fov.Pose().Point().Distance(target)
		result.Raw += w.DistanceToTarget / (1 + result.DistanceToTarget)
	}

	result.Gain = reshape(result.Raw)
	if math.IsNaN(result.Gain) || math.IsInf(result.Gain, 0) {
		return result, errors.Errorf("gain is not finite (raw %v, reshaped %v)", result.Raw, result.Gain)
	}
	return result, nil
}

// Score returns only the gain of Evaluate.
func Score(fov *spatialmath.FieldOfView, m octree.Map, w Weights) (float64, error) {
	result, err := Evaluate(fov, m, w)
	if err != nil {
		return 0, err
	}
	return result.Gain, nil
}

// Scorer binds a set of weights so candidate views can be scored one after another.
type Scorer struct {
	weights Weights
}

// NewScorer validates the weights and returns a Scorer.
func NewScorer(w Weights) (*Scorer, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{weights: w}, nil
}

// Weights returns the weights the scorer was built with.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Evaluate scores fov against m with the bound weights.
func (s *Scorer) Evaluate(fov *spatialmath.FieldOfView, m octree.Map) (Result, error) {
	return Evaluate(fov, m, s.weights)
}
