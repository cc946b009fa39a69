package spatial

import (
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// Voxel is the representative of one occupied voxel.
type Voxel struct {
	Key   CellKey
	Pos   pointcloud.Vec3 // position of the representative point
	Index int             // index of the representative point in the input
	Label int             // dominant label, -1 without labels
	Count int             // points in the voxel
}

type voxelAccum struct {
	sum       pointcloud.Vec3
	count     int
	bestIdx   int
	bestDist2 float64
	labels    map[int]int
}

// VoxelGrid downsamples pos onto cubic voxels of the given size. Each
// occupied voxel keeps the point closest to the voxel centroid and the most
// frequent label among its points (ties go to the smaller label). labels may
// be nil; otherwise it must match pos in length. Output is ordered by voxel
// key.
func VoxelGrid(pos []pointcloud.Vec3, labels []int, size float64) ([]Voxel, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, pointcloud.ConfigErrorf("voxel_size", "must be a positive finite number, got %v", size)
	}
	if labels != nil && len(labels) != len(pos) {
		return nil, fmt.Errorf("voxel grid: %d labels for %d points", len(labels), len(pos))
	}
	if len(pos) == 0 {
		return []Voxel{}, nil
	}

	voxels := make(map[CellKey]*voxelAccum, len(pos)/4+1)
	keys := make([]CellKey, len(pos))
	for i, p := range pos {
		key := CellOf(p, size)
		keys[i] = key
		acc, ok := voxels[key]
		if !ok {
			acc = &voxelAccum{bestIdx: i, bestDist2: math.MaxFloat64}
			if labels != nil {
				acc.labels = make(map[int]int)
			}
			voxels[key] = acc
		}
		for d := 0; d < 3; d++ {
			acc.sum[d] += p[d]
		}
		acc.count++
		if labels != nil {
			acc.labels[labels[i]]++
		}
	}

	for i, p := range pos {
		acc := voxels[keys[i]]
		n := float64(acc.count)
		c := pointcloud.Vec3{acc.sum[0] / n, acc.sum[1] / n, acc.sum[2] / n}
		if d2 := p.Dist2(c); d2 < acc.bestDist2 {
			acc.bestDist2 = d2
			acc.bestIdx = i
		}
	}

	out := make([]Voxel, 0, len(voxels))
	for key, acc := range voxels {
		out = append(out, Voxel{
			Key:   key,
			Pos:   pos[acc.bestIdx],
			Index: acc.bestIdx,
			Label: dominantLabel(acc.labels),
			Count: acc.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out, nil
}

func dominantLabel(counts map[int]int) int {
	if counts == nil {
		return -1
	}
	best, bestN := -1, 0
	for l, n := range counts {
		if n > bestN || (n == bestN && l < best) {
			best, bestN = l, n
		}
	}
	return best
}
