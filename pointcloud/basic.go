package pointcloud

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/spatialmath"
)

// basicPointCloud is the basic implementation of the PointCloud interface backed by
// a slice of points and an index keyed by position.
type basicPointCloud struct {
	points    []r3.Vector
	indexMap  map[r3.Vector]int
	meta      MetaData
	viewpoint spatialmath.Pose
}

// New returns an empty PointCloud backed by a basicPointCloud.
func New() PointCloud {
	return NewWithPrealloc(0)
}

// NewWithPrealloc returns an empty, preallocated PointCloud backed by a basicPointCloud.
func NewWithPrealloc(size int) PointCloud {
	return &basicPointCloud{
		points:    make([]r3.Vector, 0, size),
		indexMap:  make(map[r3.Vector]int, size),
		meta:      NewMetaData(),
		viewpoint: spatialmath.NewPoseFromPoint(r3.Vector{}),
	}
}

// NewFromPoints returns a cloud holding the given points.
func NewFromPoints(viewpoint spatialmath.Pose, pts ...r3.Vector) (PointCloud, error) {
	cloud := NewWithPrealloc(len(pts)).(*basicPointCloud)
	if viewpoint != nil {
		cloud.viewpoint = viewpoint
	}
	for _, p := range pts {
		if err := cloud.Set(p); err != nil {
			return nil, err
		}
	}
	return cloud, nil
}

func (cloud *basicPointCloud) Size() int {
	return len(cloud.points)
}

func (cloud *basicPointCloud) MetaData() MetaData {
	return cloud.meta
}

func (cloud *basicPointCloud) Viewpoint() spatialmath.Pose {
	return cloud.viewpoint
}

func (cloud *basicPointCloud) At(x, y, z float64) bool {
	_, ok := cloud.indexMap[r3.Vector{X: x, Y: y, Z: z}]
	return ok
}

// Set validates that the point is finite before storing it. Duplicates are ignored.
func (cloud *basicPointCloud) Set(p r3.Vector) error {
	if !spatialmath.IsFiniteVector(p) {
		return errors.Errorf("cannot store non-finite point %v", p)
	}
	if _, ok := cloud.indexMap[p]; ok {
		return nil
	}
	cloud.indexMap[p] = len(cloud.points)
	cloud.points = append(cloud.points, p)
	cloud.meta.Merge(p)
	return nil
}

// Unset removes the point and keeps the remaining insertion order. Extents are not shrunk.
func (cloud *basicPointCloud) Unset(x, y, z float64) {
	p := r3.Vector{X: x, Y: y, Z: z}
	idx, ok := cloud.indexMap[p]
	if !ok {
		return
	}
	delete(cloud.indexMap, p)
	cloud.points = append(cloud.points[:idx], cloud.points[idx+1:]...)
	for i := idx; i < len(cloud.points); i++ {
		cloud.indexMap[cloud.points[i]] = i
	}
}

func (cloud *basicPointCloud) Iterate(numBatches, myBatch int, fn func(p r3.Vector) bool) {
	lowerBound := 0
	upperBound := len(cloud.points)
	if numBatches > 0 {
		batchSize := (len(cloud.points) + numBatches - 1) / numBatches
		lowerBound = myBatch * batchSize
		upperBound = (myBatch + 1) * batchSize
	}
	if upperBound > len(cloud.points) {
		upperBound = len(cloud.points)
	}
	for i := lowerBound; i < upperBound; i++ {
		if !fn(cloud.points[i]) {
			return
		}
	}
}
