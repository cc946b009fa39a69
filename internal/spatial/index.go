package spatial

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// point is a tree entry: a position plus its index in the source scene.
type point struct {
	pos pointcloud.Vec3
	idx int
}

func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.pos[d] - c.(point).pos[d]
}

func (p point) Dims() int { return 3 }

func (p point) Distance(c kdtree.Comparable) float64 {
	return p.pos.Dist2(c.(point).pos)
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

func (p points) Pivot(d kdtree.Dim) int {
	return plane{points: p, dim: d}.pivot()
}

// plane orders points along one axis. Ties fall back to the source index so
// the order is total and the tree shape depends only on the input.
type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	a, b := p.points[i], p.points[j]
	if a.pos[p.dim] != b.pos[p.dim] {
		return a.pos[p.dim] < b.pos[p.dim]
	}
	return a.idx < b.idx
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

func (p plane) pivot() int {
	sort.Sort(p)
	return p.Len() / 2
}

// Index answers radius and nearest-neighbour queries over a fixed set of
// positions. Results are expressed as indices into the slice passed to
// Build.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// Build indexes pos. The positions are copied, so later changes to pos do
// not affect the index. An empty input fails with pointcloud.ErrEmptyInput.
func Build(pos []pointcloud.Vec3) (*Index, error) {
	if len(pos) == 0 {
		return nil, fmt.Errorf("build spatial index: %w", pointcloud.ErrEmptyInput)
	}
	pts := make(points, len(pos))
	for i, p := range pos {
		pts[i] = point{pos: p, idx: i}
	}
	return &Index{tree: kdtree.New(pts, false), n: len(pos)}, nil
}

// BuildScene indexes the positions of s.
func BuildScene(s *pointcloud.Scene) (*Index, error) {
	if s == nil {
		return nil, fmt.Errorf("build spatial index: %w", pointcloud.ErrEmptyInput)
	}
	return Build(s.Pos)
}

// Len returns the number of indexed positions.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.n
}

// within returns every tree entry whose squared distance to center is at
// most r2.
func (x *Index) within(center pointcloud.Vec3, r2 float64) []point {
	// The keeper bound is widened by a few ulps; the exact test below decides.
	keeper := kdtree.NewDistKeeper(math.Nextafter(r2, math.Inf(1)))
	x.tree.NearestSet(keeper, point{pos: center})

	out := make([]point, 0, len(keeper.Heap))
	for _, cd := range keeper.Heap {
		if cd.Comparable == nil {
			continue
		}
		p := cd.Comparable.(point)
		if p.pos.Dist2(center) <= r2 {
			out = append(out, p)
		}
	}
	return out
}

// Radius returns, in ascending order, the indices of every position whose
// Euclidean distance to center is at most r.
func (x *Index) Radius(center pointcloud.Vec3, r float64) []int {
	if x == nil || r < 0 || math.IsNaN(r) {
		return []int{}
	}
	hits := x.within(center, r*r)
	out := make([]int, len(hits))
	for i, p := range hits {
		out[i] = p.idx
	}
	sort.Ints(out)
	return out
}

// Nearest returns the index of the position closest to q and its distance.
// When several positions are equally close the lowest index wins.
func (x *Index) Nearest(q pointcloud.Vec3) (int, float64) {
	if x == nil {
		return -1, math.Inf(1)
	}
	c, d2 := x.tree.Nearest(point{pos: q})
	if c == nil {
		return -1, math.Inf(1)
	}
	best := c.(point)
	for _, p := range x.within(q, d2) {
		if p.idx < best.idx {
			best = p
		}
	}
	return best.idx, math.Sqrt(d2)
}
