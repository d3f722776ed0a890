// Package pointcloud defines a point cloud container and PCD file support. Scans loaded here are
// inserted into occupancy octrees to build the map snapshots the planners query.
package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/mdi-inspection/mdi/spatialmath"
)

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64
}

// NewMetaData returns meta data that contains no points.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge grows the extents to include v.
func (meta *MetaData) Merge(v r3.Vector) {
	meta.MaxX = math.Max(meta.MaxX, v.X)
	meta.MaxY = math.Max(meta.MaxY, v.Y)
	meta.MaxZ = math.Max(meta.MaxZ, v.Z)
	meta.MinX = math.Min(meta.MinX, v.X)
	meta.MinY = math.Min(meta.MinY, v.Y)
	meta.MinZ = math.Min(meta.MinZ, v.Z)
}

// BoundingBox returns the extents as a box. The result is not Valid for an empty cloud.
func (meta MetaData) BoundingBox() spatialmath.BoundingBox {
	return spatialmath.BoundingBox{
		Min: r3.Vector{X: meta.MinX, Y: meta.MinY, Z: meta.MinZ},
		Max: r3.Vector{X: meta.MaxX, Y: meta.MaxY, Z: meta.MaxZ},
	}
}

// PointCloud is a general purpose container of points in metres.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data
	MetaData() MetaData

	// Viewpoint is the pose of the sensor that captured the cloud.
	Viewpoint() spatialmath.Pose

	// Set places the given point in the cloud.
	Set(p r3.Vector) error

	// Unset removes a point from the cloud exists at the given position.
	// If the point does not exist, this does nothing.
	Unset(x, y, z float64)

	// At returns whether a point exists at the given position.
	At(x, y, z float64) bool

	// Iterate iterates over all points in insertion order and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	// numBatches lets you divide up he work. 0 means don't divide
	// myBatch is used iff numBatches > 0 and is which batch you want
	Iterate(numBatches, myBatch int, fn func(p r3.Vector) bool)
}
