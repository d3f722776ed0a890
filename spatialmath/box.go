package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// BoundingBox is an axis aligned box given by its minimum and maximum corners.
type BoundingBox struct {
	Min r3.Vector `json:"min"`
	Max r3.Vector `json:"max"`
}

// NewBoundingBox returns the box spanned by two opposite corners given in any order.
func NewBoundingBox(a, b r3.Vector) BoundingBox {
	return BoundingBox{
		Min: r3.Vector{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y), Z: math.Min(a.Z, b.Z)},
		Max: r3.Vector{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y), Z: math.Max(a.Z, b.Z)},
	}
}

// BoundingBoxFromPoints returns the smallest box containing every point. It panics on an empty slice.
func BoundingBoxFromPoints(pts ...r3.Vector) BoundingBox {
	box := BoundingBox{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		box = box.ExpandToInclude(p)
	}
	return box
}

// IsZero reports whether the box is the zero value, which callers use as "not configured".
func (b BoundingBox) IsZero() bool {
	return b.Min == (r3.Vector{}) && b.Max == (r3.Vector{})
}

// Valid reports whether Min <= Max on every axis and all components are finite.
func (b BoundingBox) Valid() bool {
	return IsFiniteVector(b.Min) && IsFiniteVector(b.Max) &&
		b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Contains reports whether p lies inside the box, boundary included.
func (b BoundingBox) Contains(p r3.Vector) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersects reports whether the two boxes overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// ExpandToInclude returns the smallest box containing b and p.
func (b BoundingBox) ExpandToInclude(p r3.Vector) BoundingBox {
	return BoundingBox{
		Min: r3.Vector{X: math.Min(b.Min.X, p.X), Y: math.Min(b.Min.Y, p.Y), Z: math.Min(b.Min.Z, p.Z)},
		Max: r3.Vector{X: math.Max(b.Max.X, p.X), Y: math.Max(b.Max.Y, p.Y), Z: math.Max(b.Max.Z, p.Z)},
	}
}

// Union returns the smallest box containing both boxes.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return b.ExpandToInclude(o.Min).ExpandToInclude(o.Max)
}

// Pad grows the box by margin on every side.
func (b BoundingBox) Pad(margin float64) BoundingBox {
	m := r3.Vector{X: margin, Y: margin, Z: margin}
	return BoundingBox{Min: b.Min.Sub(m), Max: b.Max.Add(m)}
}

// Center returns the centre of the box.
func (b BoundingBox) Center() r3.Vector {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the edge lengths of the box.
func (b BoundingBox) Size() r3.Vector {
	return b.Max.Sub(b.Min)
}

// Volume returns the volume of the box.
func (b BoundingBox) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("[%v .. %v]", b.Min, b.Max)
}
