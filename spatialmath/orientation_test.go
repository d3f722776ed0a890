package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

// represent a 45 degree rotation around the x axis in all the representations
var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
	ea45x = &EulerAngles{Roll: th, Pitch: 0, Yaw: 0}
)

func TestZeroOrientation(t *testing.T) {
	zero := NewZeroOrientation()
	test.That(t, zero.AxisAngles(), test.ShouldResemble, NewR4AA())
	test.That(t, zero.Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
	test.That(t, zero.EulerAngles(), test.ShouldResemble, NewEulerAngles())

	v := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, RotateVector(zero, v), test.ShouldResemble, v)
}

func TestQuaternions(t *testing.T) {
	qq45x := quaternion(q45x)
	test.That(t, qq45x.AxisAngles().Theta, test.ShouldAlmostEqual, aa45x.Theta)
	test.That(t, qq45x.AxisAngles().RX, test.ShouldAlmostEqual, aa45x.RX)
	test.That(t, qq45x.AxisAngles().RY, test.ShouldAlmostEqual, aa45x.RY)
	test.That(t, qq45x.AxisAngles().RZ, test.ShouldAlmostEqual, aa45x.RZ)
	test.That(t, qq45x.EulerAngles().Roll, test.ShouldAlmostEqual, ea45x.Roll)
	test.That(t, qq45x.EulerAngles().Pitch, test.ShouldAlmostEqual, ea45x.Pitch)
	test.That(t, qq45x.EulerAngles().Yaw, test.ShouldAlmostEqual, ea45x.Yaw)
}

func TestEulerAngles(t *testing.T) {
	test.That(t, QuaternionAlmostEqual(ea45x.Quaternion(), q45x, 1e-9), test.ShouldBeTrue)
	test.That(t, ea45x.AxisAngles().Theta, test.ShouldAlmostEqual, aa45x.Theta)

	ea := &EulerAngles{Roll: 0.1, Pitch: -0.4, Yaw: 2.5}
	back := QuatToEulerAngles(ea.Quaternion())
	test.That(t, back.Roll, test.ShouldAlmostEqual, ea.Roll)
	test.That(t, back.Pitch, test.ShouldAlmostEqual, ea.Pitch)
	test.That(t, back.Yaw, test.ShouldAlmostEqual, ea.Yaw)
}

func TestAxisAngles(t *testing.T) {
	test.That(t, QuaternionAlmostEqual(aa45x.Quaternion(), q45x, 1e-9), test.ShouldBeTrue)
	test.That(t, aa45x.EulerAngles().Roll, test.ShouldAlmostEqual, th)

	r4 := R3ToR4(aa45x.ToR3())
	test.That(t, r4.Theta, test.ShouldAlmostEqual, th)
	test.That(t, r4.RX, test.ShouldAlmostEqual, 1.)
	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())

	zeroAxis := &R4AA{Theta: 1}
	zeroAxis.Normalize()
	test.That(t, zeroAxis.RZ, test.ShouldEqual, 1.)
}

func TestYawPitch(t *testing.T) {
	x := r3.Vector{X: 1}

	yawed := NewOrientationFromYawPitch(AngleFromDegrees(90), 0)
	test.That(t, R3VectorAlmostEqual(RotateVector(yawed, x), r3.Vector{Y: 1}, 1e-9), test.ShouldBeTrue)

	pitched := NewOrientationFromYawPitch(0, AngleFromDegrees(90))
	test.That(t, R3VectorAlmostEqual(RotateVector(pitched, x), r3.Vector{Z: -1}, 1e-9), test.ShouldBeTrue)

	both := NewOrientationFromYawPitch(AngleFromDegrees(180), AngleFromDegrees(-45))
	got := RotateVector(both, x)
	test.That(t, got.X, test.ShouldAlmostEqual, -math.Sqrt2/2)
	test.That(t, got.Y, test.ShouldAlmostEqual, 0.)
	test.That(t, got.Z, test.ShouldAlmostEqual, math.Sqrt2/2)
}

func TestOrientationBetween(t *testing.T) {
	a := NewOrientationFromYawPitch(AngleFromDegrees(30), 0)
	b := NewOrientationFromYawPitch(AngleFromDegrees(75), 0)
	diff := OrientationBetween(a, b)
	test.That(t, diff.EulerAngles().Yaw, test.ShouldAlmostEqual, DegToRad(45))
	test.That(t, OrientationAlmostEqual(a, a), test.ShouldBeTrue)
	test.That(t, OrientationAlmostEqual(a, b), test.ShouldBeFalse)
}

func TestPoseTransforms(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: 1, Z: 1}, NewOrientationFromYawPitch(AngleFromDegrees(90), 0))
	world := TransformPoint(p, r3.Vector{X: 2})
	test.That(t, R3VectorAlmostEqual(world, r3.Vector{X: 1, Y: 3, Z: 1}, 1e-9), test.ShouldBeTrue)
	local := InverseTransformPoint(p, world)
	test.That(t, R3VectorAlmostEqual(local, r3.Vector{X: 2}, 1e-9), test.ShouldBeTrue)

	test.That(t, PoseAlmostEqual(NewPoseFromPoint(r3.Vector{X: 1}), NewPose(r3.Vector{X: 1}, nil)), test.ShouldBeTrue)
	test.That(t, NewQuaternion(quat.Number{}).Quaternion(), test.ShouldResemble, quat.Number{Real: 1})
}
