package inspection

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mdi-inspection/mdi/logging"
	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/pointcloud"
	"github.com/mdi-inspection/mdi/spatialmath"
)

// MapProvider is the occupancy map collaborator. FetchMap returns a snapshot that the caller owns for
// the duration of one run; a nil map with a nil error means no map is available.
type MapProvider interface {
	FetchMap(ctx context.Context) (octree.Map, error)
	// ClearRegion marks every voxel in box as free and returns how many changed.
	ClearRegion(ctx context.Context, box spatialmath.BoundingBox) (int, error)
	// Reset forgets every observation.
	Reset(ctx context.Context) error
}

// MemoryMapProvider keeps the master octree in memory and hands out deep copies.
type MemoryMapProvider struct {
	mu     sync.RWMutex
	tree   octree.Octree
	logger logging.Logger
}

// NewMemoryMapProvider returns a provider over tree. A nil tree makes every fetch unavailable until
// one is set with SetMap.
func NewMemoryMapProvider(tree octree.Octree, logger logging.Logger) *MemoryMapProvider {
	if logger == nil {
		logger = logging.NewBlankLogger("maps")
	}
	return &MemoryMapProvider{tree: tree, logger: logger}
}

// SetMap replaces the master map.
func (p *MemoryMapProvider) SetMap(tree octree.Octree) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tree = tree
}

// FetchMap returns a clone of the master map.
func (p *MemoryMapProvider) FetchMap(ctx context.Context) (octree.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.tree == nil {
		return nil, nil
	}
	return p.tree.Clone(), nil
}

// InsertPointCloud integrates a scan taken from the cloud's viewpoint into the master map.
func (p *MemoryMapProvider) InsertPointCloud(ctx context.Context, cloud pointcloud.PointCloud, maxRange float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree == nil {
		return errors.New("no map to insert the scan into")
	}
	return p.tree.InsertPointCloud(cloud, maxRange)
}

// ClearRegion marks every voxel in box as free.
func (p *MemoryMapProvider) ClearRegion(ctx context.Context, box spatialmath.BoundingBox) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !box.Valid() {
		return 0, errors.Errorf("invalid region %v", box)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree == nil {
		return 0, errors.New("no map to clear")
	}
	n := p.tree.ClearRegion(box)
	p.logger.Infow("cleared region", "region", box.String(), "voxels", n)
	return n, nil
}

// Reset empties the master map.
func (p *MemoryMapProvider) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tree == nil {
		return errors.New("no map to reset")
	}
	p.tree.Reset()
	p.logger.Info("map reset")
	return nil
}
