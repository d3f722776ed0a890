// Package spatialmath defines the geometry shared by the planner and the gain scorer: orientations,
// poses, bounding boxes and camera fields of view. Vectors are github.com/golang/geo/r3 and
// quaternions are gonum num/quat numbers.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
type Orientation interface {
	AxisAngles() *R4AA
	Quaternion() quat.Number
	EulerAngles() *EulerAngles
}

// NewZeroOrientation returns an orientatation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{1, 0, 0, 0}
}

// OrientationAlmostEqual will return a bool describing whether 2 poses have approximately the same orientation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationBetween returns the orientation representing the difference between the two given Orientations.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}

// RotateVector rotates v by the orientation.
func RotateVector(o Orientation, v r3.Vector) r3.Vector {
	q := o.Quaternion()
	r := quat.Mul(quat.Mul(q, quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// NewOrientationFromYawPitch returns the rotation of yaw about +Z followed by pitch about the rotated +Y,
// which is how a gimbal camera on the drone is pointed.
func NewOrientationFromYawPitch(yaw, pitch Angle) Orientation {
	return &EulerAngles{Roll: 0, Pitch: pitch.Radians(), Yaw: yaw.Radians()}
}
