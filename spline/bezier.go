// Package spline turns an ordered list of waypoints into a single Bezier curve that can be addressed
// by normalized time or by arc length.
package spline

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/mdi-inspection/mdi/spatialmath"
)

// maxControlPoints keeps every binomial coefficient finite in float64.
const maxControlPoints = 1024

// maxResampleFactor bounds Resample to this many points per sample interval.
const maxResampleFactor = 16

// DefaultResolution is the number of sample intervals used when callers have no preference.
const DefaultResolution = 100

// Builder builds splines and keeps the binomial row of the last control point count, so building
// many splines of the same size computes it once. A Builder is not safe for concurrent use.
type Builder struct {
	binomial []float64
}

// NewBuilder returns a Builder with no cached coefficients.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build is a shorthand for NewBuilder().Build.
func Build(points []r3.Vector, resolution int) (*BezierSpline, error) {
	return NewBuilder().Build(points, resolution)
}

// pascalRow returns the binomial coefficients C(n, k) for k = 0..n.
func pascalRow(n int) []float64 {
	row := make([]float64, n+1)
	row[0] = 1
	for i := 1; i <= n; i++ {
		// walk backwards so row[k-1] still holds the previous row
		for k := i; k > 0; k-- {
			row[k] += row[k-1]
		}
	}
	return row
}

// Build samples the Bezier curve through the control points at resolution+1 evenly spaced times and
// tabulates the cumulative arc length. The points are copied.
func (b *Builder) Build(points []r3.Vector, resolution int) (*BezierSpline, error) {
	if len(points) == 0 {
		return nil, errors.New("cannot build a spline without control points")
	}
	if len(points) > maxControlPoints {
		return nil, errors.Errorf("cannot build a spline of %d control points, the limit is %d", len(points), maxControlPoints)
	}
	if resolution < 1 {
		return nil, errors.Errorf("spline resolution must be positive, got %d", resolution)
	}
	for i, p := range points {
		if !spatialmath.IsFiniteVector(p) {
			return nil, errors.Errorf("control point %d is not finite: %v", i, p)
		}
	}

	if len(b.binomial) != len(points) {
		b.binomial = pascalRow(len(points) - 1)
	}

	s := &BezierSpline{
		controlPoints: append([]r3.Vector(nil), points...),
		binomial:      append([]float64(nil), b.binomial...),
		resolution:    resolution,
	}
	s.samples = make([]r3.Vector, resolution+1)
	for i := range s.samples {
		s.samples[i] = s.bernstein(float64(i) / float64(resolution))
	}

	s.distanceLUT = make([]float64, resolution+1)
	for i := 1; i <= resolution; i++ {
		s.distanceLUT[i] = s.samples[i-1].Distance(s.samples[i])
	}
	floats.CumSum(s.distanceLUT, s.distanceLUT)
	return s, nil
}

// BezierSpline is an immutable sampled Bezier curve. All queries are read only, so a built spline may
// be shared between goroutines.
type BezierSpline struct {
	controlPoints []r3.Vector
	binomial      []float64
	resolution    int
	samples       []r3.Vector
	distanceLUT   []float64
}

func (s *BezierSpline) built() bool {
	return s != nil && len(s.samples) > 0
}

// bernstein evaluates sum C(n,i) t^i (1-t)^(n-i) P_i for degree n = len(points)-1.
func (s *BezierSpline) bernstein(t float64) r3.Vector {
	n := len(s.controlPoints) - 1
	var p r3.Vector
	for i, cp := range s.controlPoints {
		w := s.binomial[i] * math.Pow(t, float64(i)) * math.Pow(1-t, float64(n-i))
		p = p.Add(cp.Mul(w))
	}
	return p
}

// Resolution returns the number of sample intervals.
func (s *BezierSpline) Resolution() int {
	if s == nil {
		return 0
	}
	return s.resolution
}

// ControlPoints returns a copy of the control points.
func (s *BezierSpline) ControlPoints() []r3.Vector {
	if s == nil {
		return nil
	}
	return append([]r3.Vector(nil), s.controlPoints...)
}

// Binomial returns a copy of the binomial coefficients, one per control point.
func (s *BezierSpline) Binomial() []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s.binomial...)
}

// Points returns a copy of the resolution+1 sampled points.
func (s *BezierSpline) Points() []r3.Vector {
	if s == nil {
		return nil
	}
	return append([]r3.Vector(nil), s.samples...)
}

// DistanceLUT returns a copy of the cumulative arc length at every sample. The first entry is zero.
func (s *BezierSpline) DistanceLUT() []float64 {
	if s == nil {
		return nil
	}
	return append([]float64(nil), s.distanceLUT...)
}

// ArcLength returns the length of the sampled polyline.
func (s *BezierSpline) ArcLength() float64 {
	if !s.built() {
		return 0
	}
	return s.distanceLUT[len(s.distanceLUT)-1]
}

func checkTime(op string, t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return newQueryDomainError(op, t, "time must be in [0, 1]")
	}
	return nil
}

// PointAtTime returns the precomputed sample nearest to time t. The result is only as precise as the
// resolution; use Eval for an exact point.
func (s *BezierSpline) PointAtTime(t float64) (r3.Vector, error) {
	if !s.built() {
		return r3.Vector{}, newQueryDomainError("PointAtTime", t, "spline has not been built")
	}
	if err := checkTime("PointAtTime", t); err != nil {
		return r3.Vector{}, err
	}
	return s.samples[int(math.Round(float64(s.resolution)*t))], nil
}

// Eval evaluates the curve at time t.
func (s *BezierSpline) Eval(t float64) (r3.Vector, error) {
	if !s.built() {
		return r3.Vector{}, newQueryDomainError("Eval", t, "spline has not been built")
	}
	if err := checkTime("Eval", t); err != nil {
		return r3.Vector{}, err
	}
	return s.bernstein(t), nil
}

// PointAtDistance returns the point at arc length d from the start. Distances outside the curve clamp
// to its first and last samples. The bracketing samples are found by a linear scan, so a query costs
// O(resolution).
func (s *BezierSpline) PointAtDistance(d float64) (r3.Vector, error) {
	if !s.built() {
		return r3.Vector{}, newQueryDomainError("PointAtDistance", d, "spline has not been built")
	}
	if math.IsNaN(d) {
		return r3.Vector{}, newQueryDomainError("PointAtDistance", d, "distance must be a number")
	}
	if d <= 0 {
		return s.samples[0], nil
	}
	if d >= s.ArcLength() {
		return s.samples[s.resolution], nil
	}

	idx := s.timeIndex(d)
	span := s.distanceLUT[idx+1] - s.distanceLUT[idx]
	frac := 0.
	if span > 0 {
		frac = (d - s.distanceLUT[idx]) / span
	}
	return s.bernstein((float64(idx) + frac) / float64(s.resolution)), nil
}

// timeIndex returns the last sample index whose arc length does not exceed d, for 0 < d < ArcLength.
func (s *BezierSpline) timeIndex(d float64) int {
	idx := 0
	for i := 1; i < s.resolution; i++ {
		if s.distanceLUT[i] > d {
			break
		}
		idx = i
	}
	return idx
}

// Resample returns points spaced spacing apart along the curve, starting at the first sample and
// always ending at the last. A spacing that would yield more than maxResampleFactor points per sample
// interval is a *QueryDomainError.
func (s *BezierSpline) Resample(spacing float64) ([]r3.Vector, error) {
	if !s.built() {
		return nil, newQueryDomainError("Resample", spacing, "spline has not been built")
	}
	if !(spacing > 0) || math.IsInf(spacing, 0) {
		return nil, newQueryDomainError("Resample", spacing, "spacing must be positive and finite")
	}

	total := s.ArcLength()
	if limit := float64(maxResampleFactor * s.resolution); total/spacing > limit {
		return nil, newQueryDomainError("Resample", spacing,
			fmt.Sprintf("spacing yields more than %d points for a curve of length %.3f", int(limit), total))
	}
	out := make([]r3.Vector, 0, int(total/spacing)+2)
	for d := 0.; d < total; d += spacing {
		p, err := s.PointAtDistance(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return append(out, s.samples[s.resolution]), nil
}
