package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// DepthRange is the [Min, Max] distance band a camera resolves, in metres.
type DepthRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FieldOfView is the viewing frustum of a camera at a pose. The camera looks along the local +X
// axis with +Y to the left and +Z up; depth is measured along the optical axis.
type FieldOfView struct {
	pose       Pose
	horizontal Angle
	vertical   Angle
	depth      DepthRange
	target     *r3.Vector
}

// NewFieldOfView validates the angular extents and depth range and returns the frustum. target is
// the optional point of interest the camera is aimed at.
func NewFieldOfView(pose Pose, horizontal, vertical Angle, depth DepthRange, target *r3.Vector) (*FieldOfView, error) {
	if pose == nil {
		return nil, errors.New("field of view requires a pose")
	}
	if h := horizontal.Radians(); !(h > 0 && h < math.Pi) {
		return nil, errors.Errorf("horizontal angle must be in (0, 180) degrees, got %.2f", horizontal.Degrees())
	}
	if v := vertical.Radians(); !(v > 0 && v < math.Pi) {
		return nil, errors.Errorf("vertical angle must be in (0, 180) degrees, got %.2f", vertical.Degrees())
	}
	if !(depth.Min >= 0 && depth.Max > depth.Min) || math.IsInf(depth.Max, 0) {
		return nil, errors.Errorf("depth range must satisfy 0 <= min < max < inf, got [%.3f, %.3f]", depth.Min, depth.Max)
	}
	fov := &FieldOfView{pose: pose, horizontal: horizontal, vertical: vertical, depth: depth}
	if target != nil {
		t := *target
		fov.target = &t
	}
	return fov, nil
}

// Pose returns the camera pose.
func (fov *FieldOfView) Pose() Pose {
	return fov.pose
}

// Horizontal returns the full horizontal opening angle.
func (fov *FieldOfView) Horizontal() Angle {
	return fov.horizontal
}

// Vertical returns the full vertical opening angle.
func (fov *FieldOfView) Vertical() Angle {
	return fov.vertical
}

// DepthRange returns the depth band.
func (fov *FieldOfView) DepthRange() DepthRange {
	return fov.depth
}

// Target returns the point of interest, if any.
func (fov *FieldOfView) Target() (r3.Vector, bool) {
	if fov.target == nil {
		return r3.Vector{}, false
	}
	return *fov.target, true
}

// Contains reports whether a world frame point is inside the frustum.
func (fov *FieldOfView) Contains(p r3.Vector) bool {
	const eps = 1e-9
	local := InverseTransformPoint(fov.pose, p)
	if local.X < fov.depth.Min-eps || local.X > fov.depth.Max+eps {
		return false
	}
	halfW := local.X * math.Tan(fov.horizontal.Radians()/2)
	halfH := local.X * math.Tan(fov.vertical.Radians()/2)
	return math.Abs(local.Y) <= halfW+eps && math.Abs(local.Z) <= halfH+eps
}

// Corners returns the eight world frame corners of the frustum, near plane first.
func (fov *FieldOfView) Corners() [8]r3.Vector {
	var corners [8]r3.Vector
	tanH := math.Tan(fov.horizontal.Radians() / 2)
	tanV := math.Tan(fov.vertical.Radians() / 2)
	i := 0
	for _, d := range []float64{fov.depth.Min, fov.depth.Max} {
		for _, sy := range []float64{1, -1} {
			for _, sz := range []float64{1, -1} {
				local := r3.Vector{X: d, Y: sy * d * tanH, Z: sz * d * tanV}
				corners[i] = TransformPoint(fov.pose, local)
				i++
			}
		}
	}
	return corners
}

// BoundingBox returns the axis aligned box around the frustum. The frustum is the convex hull of
// its corners, so the box of the corners contains it.
func (fov *FieldOfView) BoundingBox() BoundingBox {
	corners := fov.Corners()
	return BoundingBoxFromPoints(corners[:]...)
}
