package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

// Angle is an angle stored in radians.
type Angle float64

// AngleFromDegrees converts degrees to an Angle.
func AngleFromDegrees(deg float64) Angle {
	return Angle(DegToRad(deg))
}

// AngleFromRadians wraps radians as an Angle.
func AngleFromRadians(rad float64) Angle {
	return Angle(rad)
}

// Radians returns the angle in radians.
func (a Angle) Radians() float64 {
	return float64(a)
}

// Degrees returns the angle in degrees.
func (a Angle) Degrees() float64 {
	return RadToDeg(float64(a))
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

// IsFiniteVector reports whether no component of v is NaN or infinite.
func IsFiniteVector(v r3.Vector) bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
