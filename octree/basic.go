package octree

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/pointcloud"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// maxDepth bounds the number of levels above the voxel level.
const maxDepth = 20

// occupancyOctree is the Octree implementation. The root cube is aligned to the voxel grid and its
// side is resolution * 2^depth.
type occupancyOctree struct {
	logger     logging.Logger
	root       *basicOctree
	resolution float64
	model      SensorModel

	hit, miss          float64
	clampMin, clampMax float64
	threshold          float64

	size      int
	bounds    spatialmath.BoundingBox
	hasBounds bool
}

// Option configures an octree.
type Option func(*occupancyOctree)

// WithSensorModel replaces the default sensor model.
func WithSensorModel(model SensorModel) Option {
	return func(o *occupancyOctree) {
		o.model = model
	}
}

// New creates an empty octree with voxels of side resolution that covers at least the cube of the
// given center and side length.
func New(center r3.Vector, sideLength, resolution float64, logger logging.Logger, opts ...Option) (Octree, error) {
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return nil, errors.Errorf("invalid resolution (%v) for octree", resolution)
	}
	if !(sideLength > 0) || math.IsInf(sideLength, 0) {
		return nil, errors.Errorf("invalid side length (%.2f) for octree", sideLength)
	}
	if !spatialmath.IsFiniteVector(center) {
		return nil, errors.Errorf("invalid center %v for octree", center)
	}
	if logger == nil {
		logger = logging.NewBlankLogger("octree")
	}

	half := r3.Vector{X: sideLength / 2, Y: sideLength / 2, Z: sideLength / 2}
	lo := KeyFor(center.Sub(half), resolution)
	hi := KeyFor(center.Add(half), resolution)
	cells := max(hi.I-lo.I, hi.J-lo.J, hi.K-lo.K) + 1
	depth := 0
	for int64(1)<<depth < cells {
		depth++
		if depth > maxDepth {
			return nil, errors.Errorf("octree of side %.2f at resolution %.3f is too deep", sideLength, resolution)
		}
	}
	side := math.Ldexp(resolution, depth)
	rootCenter := r3.Vector{
		X: float64(lo.I)*resolution + side/2,
		Y: float64(lo.J)*resolution + side/2,
		Z: float64(lo.K)*resolution + side/2,
	}

	octree := &occupancyOctree{
		logger: logger,
		root: &basicOctree{
			node:       newLeafNodeEmpty(),
			center:     rootCenter,
			sideLength: side,
			depth:      depth,
		},
		resolution: resolution,
		model:      DefaultSensorModel(),
	}
	for _, opt := range opts {
		opt(octree)
	}
	if err := octree.model.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid sensor model")
	}
	octree.hit = logOdds(octree.model.ProbHit)
	octree.miss = logOdds(octree.model.ProbMiss)
	octree.clampMin = logOdds(octree.model.ClampMin)
	octree.clampMax = logOdds(octree.model.ClampMax)
	octree.threshold = logOdds(octree.model.OccupancyThreshold)
	return octree, nil
}

// NewFromPointCloud builds an octree around a scan and its viewpoint and inserts the scan.
func NewFromPointCloud(
	cloud pointcloud.PointCloud,
	resolution, maxRange float64,
	logger logging.Logger,
	opts ...Option,
) (Octree, error) {
	origin := r3.Vector{}
	if vp := cloud.Viewpoint(); vp != nil {
		origin = vp.Point()
	}
	box := spatialmath.BoundingBoxFromPoints(origin)
	if cloud.Size() > 0 {
		box = box.Union(cloud.MetaData().BoundingBox())
	}
	box = box.Pad(resolution)
	size := box.Size()
	octree, err := New(box.Center(), max(size.X, size.Y, size.Z), resolution, logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := octree.InsertPointCloud(cloud, maxRange); err != nil {
		return nil, err
	}
	return octree, nil
}

func (octree *occupancyOctree) Resolution() float64 {
	return octree.resolution
}

func (octree *occupancyOctree) Size() int {
	return octree.size
}

func (octree *occupancyOctree) Bounds() (spatialmath.BoundingBox, bool) {
	return octree.bounds, octree.hasBounds
}

// Query snaps p to its voxel centre. Voxels outside the root are unknown.
func (octree *occupancyOctree) Query(p r3.Vector) (Occupancy, error) {
	if !spatialmath.IsFiniteVector(p) {
		return Unknown, errors.Errorf("cannot query non-finite point %v", p)
	}
	c := Snap(p, octree.resolution)
	if !octree.root.checkPointPlacement(c) {
		return Unknown, nil
	}
	leaf := octree.root.leafFor(c, false)
	if leaf == nil || leaf.node.nodeType != LeafNodeFilled {
		return Unknown, nil
	}
	return octree.classify(leaf.node.logOdds), nil
}

func (octree *occupancyOctree) classify(l float64) Occupancy {
	if l >= octree.threshold {
		return Occupied
	}
	return Free
}

func (octree *occupancyOctree) Update(p r3.Vector, occupied bool) error {
	if !spatialmath.IsFiniteVector(p) {
		return errors.Errorf("cannot update non-finite point %v", p)
	}
	delta := octree.miss
	if occupied {
		delta = octree.hit
	}
	return octree.integrate(KeyFor(p, octree.resolution), delta)
}

func (octree *occupancyOctree) integrate(key VoxelKey, delta float64) error {
	leaf, err := octree.observe(key)
	if err != nil {
		return err
	}
	leaf.node.logOdds = math.Min(math.Max(leaf.node.logOdds+delta, octree.clampMin), octree.clampMax)
	return nil
}

// observe returns the filled leaf for key, creating it at even odds when it was unknown.
func (octree *occupancyOctree) observe(key VoxelKey) (*basicOctree, error) {
	c := CenterOf(key, octree.resolution)
	if !octree.root.checkPointPlacement(c) {
		return nil, errors.Errorf("error voxel %v is outside the bounds of this octree", key)
	}
	leaf := octree.root.leafFor(c, true)
	if leaf.node.nodeType != LeafNodeFilled {
		leaf.node = newLeafNodeFilled(0)
		octree.size++
		half := r3.Vector{X: octree.resolution / 2, Y: octree.resolution / 2, Z: octree.resolution / 2}
		voxelBox := spatialmath.BoundingBox{Min: c.Sub(half), Max: c.Add(half)}
		if octree.hasBounds {
			octree.bounds = octree.bounds.Union(voxelBox)
		} else {
			octree.bounds = voxelBox
			octree.hasBounds = true
		}
	}
	return leaf, nil
}

func (octree *occupancyOctree) InsertRay(origin, end r3.Vector, maxRange float64) error {
	if !spatialmath.IsFiniteVector(origin) || !spatialmath.IsFiniteVector(end) {
		return errors.Errorf("cannot insert non-finite ray %v -> %v", origin, end)
	}
	freeKeys, hitKey, hit := octree.traceRay(origin, end, maxRange)
	for _, key := range freeKeys {
		if key == hitKey && hit {
			continue
		}
		if !octree.root.checkPointPlacement(CenterOf(key, octree.resolution)) {
			continue
		}
		if err := octree.integrate(key, octree.miss); err != nil {
			return err
		}
	}
	if hit {
		return octree.integrate(hitKey, octree.hit)
	}
	return nil
}

// traceRay returns the voxels a ray passes through and, when the ray is within range, the voxel it
// ends in.
func (octree *occupancyOctree) traceRay(origin, end r3.Vector, maxRange float64) ([]VoxelKey, VoxelKey, bool) {
	if maxRange > 0 && origin.Distance(end) > maxRange {
		truncated := origin.Add(end.Sub(origin).Normalize().Mul(maxRange))
		keys := rayKeys(origin, truncated, octree.resolution)
		keys = append(keys, KeyFor(truncated, octree.resolution))
		return keys, VoxelKey{}, false
	}
	return rayKeys(origin, end, octree.resolution), KeyFor(end, octree.resolution), true
}

// InsertPointCloud gathers the free and occupied voxels of the whole scan first so a voxel hit by any
// ray is never cleared by another ray of the same scan.
func (octree *occupancyOctree) InsertPointCloud(cloud pointcloud.PointCloud, maxRange float64) error {
	origin := r3.Vector{}
	if vp := cloud.Viewpoint(); vp != nil {
		origin = vp.Point()
	}

	var freeKeys, hitKeys []VoxelKey
	seenFree := map[VoxelKey]bool{}
	seenHit := map[VoxelKey]bool{}
	cloud.Iterate(0, 0, func(p r3.Vector) bool {
		keys, hitKey, hit := octree.traceRay(origin, p, maxRange)
		for _, key := range keys {
			if !seenFree[key] {
				seenFree[key] = true
				freeKeys = append(freeKeys, key)
			}
		}
		if hit && !seenHit[hitKey] {
			seenHit[hitKey] = true
			hitKeys = append(hitKeys, hitKey)
		}
		return true
	})

	for _, key := range freeKeys {
		if seenHit[key] || !octree.root.checkPointPlacement(CenterOf(key, octree.resolution)) {
			continue
		}
		if err := octree.integrate(key, octree.miss); err != nil {
			return err
		}
	}
	for _, key := range hitKeys {
		if err := octree.integrate(key, octree.hit); err != nil {
			return errors.Wrap(err, "inserting point cloud")
		}
	}
	octree.logger.Debugw("inserted point cloud", "points", cloud.Size(), "free", len(freeKeys), "occupied", len(hitKeys))
	return nil
}

func (octree *occupancyOctree) rootBox() spatialmath.BoundingBox {
	half := octree.root.sideLength / 2
	return spatialmath.BoundingBox{
		Min: octree.root.center.Sub(r3.Vector{X: half, Y: half, Z: half}),
		Max: octree.root.center.Add(r3.Vector{X: half, Y: half, Z: half}),
	}
}

func (octree *occupancyOctree) ClearRegion(box spatialmath.BoundingBox) int {
	if !box.Valid() {
		return 0
	}
	root := octree.rootBox()
	if !root.Intersects(box) {
		return 0
	}
	lo := KeyFor(r3.Vector{
		X: math.Max(box.Min.X, root.Min.X),
		Y: math.Max(box.Min.Y, root.Min.Y),
		Z: math.Max(box.Min.Z, root.Min.Z),
	}, octree.resolution)
	hi := KeyFor(r3.Vector{
		X: math.Min(box.Max.X, root.Max.X),
		Y: math.Min(box.Max.Y, root.Max.Y),
		Z: math.Min(box.Max.Z, root.Max.Z),
	}, octree.resolution)

	changed := 0
	for i := lo.I; i <= hi.I; i++ {
		for j := lo.J; j <= hi.J; j++ {
			for k := lo.K; k <= hi.K; k++ {
				key := VoxelKey{I: i, J: j, K: k}
				c := CenterOf(key, octree.resolution)
				if !box.Contains(c) || !octree.root.checkPointPlacement(c) {
					continue
				}
				prior, err := octree.Query(c)
				if err != nil {
					continue
				}
				leaf, err := octree.observe(key)
				if err != nil {
					continue
				}
				if prior != Free {
					changed++
				}
				leaf.node.logOdds = octree.clampMin
			}
		}
	}
	octree.logger.Debugw("cleared region", "box", box.String(), "changed", changed)
	return changed
}

func (octree *occupancyOctree) Reset() {
	octree.root.node = newLeafNodeEmpty()
	octree.size = 0
	octree.bounds = spatialmath.BoundingBox{}
	octree.hasBounds = false
	octree.logger.Debug("reset octree")
}

func (octree *occupancyOctree) Clone() Octree {
	cp := *octree
	cp.root = octree.root.clone()
	return &cp
}

func (octree *occupancyOctree) Iterate(fn func(v Voxel) bool) {
	octree.root.iterate(func(leaf *basicOctree) bool {
		key := KeyFor(leaf.center, octree.resolution)
		return fn(Voxel{
			Key:       key,
			Center:    CenterOf(key, octree.resolution),
			LogOdds:   leaf.node.logOdds,
			Occupancy: octree.classify(leaf.node.logOdds),
		})
	})
}
