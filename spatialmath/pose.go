package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof position and orientation of the drone or its camera in the world frame.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

type pose struct {
	point       r3.Vector
	orientation Orientation
}

// NewPose returns a pose at point with orientation o. A nil orientation means no rotation.
func NewPose(point r3.Vector, o Orientation) Pose {
	if o == nil {
		o = NewZeroOrientation()
	}
	return &pose{point: point, orientation: NewQuaternion(o.Quaternion())}
}

// NewPoseFromPoint returns a pose at point with no rotation.
func NewPoseFromPoint(point r3.Vector) Pose {
	return NewPose(point, nil)
}

func (p *pose) Point() r3.Vector {
	return p.point
}

func (p *pose) Orientation() Orientation {
	return p.orientation
}

func (p *pose) String() string {
	q := p.orientation.Quaternion()
	return fmt.Sprintf("{X:%.3f Y:%.3f Z:%.3f Q:[%.4f %.4f %.4f %.4f]}", p.point.X, p.point.Y, p.point.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag)
}

// TransformPoint maps a point expressed in the pose's local frame into the world frame.
func TransformPoint(p Pose, local r3.Vector) r3.Vector {
	return RotateVector(p.Orientation(), local).Add(p.Point())
}

// InverseTransformPoint maps a world frame point into the pose's local frame.
func InverseTransformPoint(p Pose, world r3.Vector) r3.Vector {
	inv := quaternion(quat.Conj(p.Orientation().Quaternion()))
	return RotateVector(&inv, world.Sub(p.Point()))
}

// PoseAlmostEqual returns whether two poses have approximately the same point and orientation.
func PoseAlmostEqual(a, b Pose) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), 1e-8) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}
