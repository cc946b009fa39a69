package sampling

import (
	"github.com/tidwall/btree"

	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/spatial"
)

// Center is a deterministic sphere centre produced by Partition.
type Center struct {
	Area  int
	Pos   pointcloud.Vec3
	Cell  spatial.CellKey
	Count int // points of the area in the cell
}

type gridCell struct {
	area  int
	key   spatial.CellKey
	sum   pointcloud.Vec3
	count int
}

func gridCellLess(a, b *gridCell) bool {
	if a.area != b.area {
		return a.area < b.area
	}
	return a.key.Less(b.key)
}

// Partition lays a grid of cell size gridSize over every scene and returns
// one centre per occupied cell. Each scene's grid starts at the low corner of
// its bounding box, so Center.Cell is relative to that corner and a rigid
// shift of a scene leaves its cells unchanged. The centre is the mean position of the
// cell's points, so it always lies inside its cell and every point of the
// cell is within the cell diagonal of it. Centres are ordered by area and
// then by cell key; the result depends only on the input.
//
// radius is the sphere radius the centres will be used with. It is only
// validated here.
func Partition(scenes []*pointcloud.Scene, radius, gridSize float64) ([]Center, error) {
	if radius <= 0 {
		return nil, pointcloud.ConfigErrorf("radius", "must be > 0, got %v", radius)
	}
	if gridSize <= 0 {
		return nil, pointcloud.ConfigErrorf("sample_res", "must be > 0, got %v", gridSize)
	}

	cells := btree.NewBTreeG[*gridCell](gridCellLess)
	for area, s := range scenes {
		lo, _, ok := s.Bounds()
		if !ok {
			continue
		}
		for _, p := range s.Pos {
			key := &gridCell{area: area, key: spatial.CellOf(p.Sub(lo), gridSize)}
			c, found := cells.Get(key)
			if !found {
				c = key
				cells.Set(c)
			}
			for d := 0; d < 3; d++ {
				c.sum[d] += p[d]
			}
			c.count++
		}
	}

	out := make([]Center, 0, cells.Len())
	cells.Scan(func(c *gridCell) bool {
		n := float64(c.count)
		out = append(out, Center{
			Area:  c.area,
			Pos:   pointcloud.Vec3{c.sum[0] / n, c.sum[1] / n, c.sum[2] / n},
			Cell:  c.key,
			Count: c.count,
		})
		return true
	})
	logging.Diagf("grid partition: %d centres over %d areas (cell=%.3f, radius=%.3f)", len(out), len(scenes), gridSize, radius)
	return out, nil
}
