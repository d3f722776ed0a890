package octree

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// VoxelKey is the integer grid coordinate of a voxel.
type VoxelKey struct {
	I, J, K int64
}

func (k VoxelKey) String() string {
	return fmt.Sprintf("(%d, %d, %d)", k.I, k.J, k.K)
}

// KeyFor returns the key of the voxel containing p.
func KeyFor(p r3.Vector, resolution float64) VoxelKey {
	return VoxelKey{
		I: int64(math.Floor(p.X / resolution)),
		J: int64(math.Floor(p.Y / resolution)),
		K: int64(math.Floor(p.Z / resolution)),
	}
}

// CenterOf returns the centre of the voxel with the given key.
func CenterOf(k VoxelKey, resolution float64) r3.Vector {
	return r3.Vector{
		X: (float64(k.I) + 0.5) * resolution,
		Y: (float64(k.J) + 0.5) * resolution,
		Z: (float64(k.K) + 0.5) * resolution,
	}
}

// Snap returns the centre of the voxel containing p.
func Snap(p r3.Vector, resolution float64) r3.Vector {
	return CenterOf(KeyFor(p, resolution), resolution)
}

// rayKeys walks the grid from origin to end and returns the keys of every traversed voxel, excluding
// the voxel holding end.
func rayKeys(origin, end r3.Vector, resolution float64) []VoxelKey {
	startKey := KeyFor(origin, resolution)
	endKey := KeyFor(end, resolution)
	if startKey == endKey {
		return nil
	}
	dir := end.Sub(origin)
	length := dir.Norm()
	dir = dir.Mul(1 / length)

	o := [3]float64{origin.X, origin.Y, origin.Z}
	d := [3]float64{dir.X, dir.Y, dir.Z}
	k := [3]int64{startKey.I, startKey.J, startKey.K}
	var step [3]int64
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		switch {
		case d[i] > 0:
			step[i] = 1
		case d[i] < 0:
			step[i] = -1
		}
		if step[i] == 0 {
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
			continue
		}
		border := float64(k[i]) * resolution
		if step[i] > 0 {
			border += resolution
		}
		tMax[i] = (border - o[i]) / d[i]
		tDelta[i] = resolution / math.Abs(d[i])
	}

	keys := []VoxelKey{startKey}
	for {
		dim := 0
		if tMax[1] < tMax[dim] {
			dim = 1
		}
		if tMax[2] < tMax[dim] {
			dim = 2
		}
		if tMax[dim] > length {
			break
		}
		k[dim] += step[dim]
		tMax[dim] += tDelta[dim]
		cur := VoxelKey{I: k[0], J: k[1], K: k[2]}
		if cur == endKey {
			break
		}
		keys = append(keys, cur)
	}
	return keys
}
