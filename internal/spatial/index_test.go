package spatial

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

func randomCloud(rng *rand.Rand, n int, extent float64) []pointcloud.Vec3 {
	pos := make([]pointcloud.Vec3, n)
	for i := range pos {
		pos[i] = pointcloud.Vec3{rng.Float64() * extent, rng.Float64() * extent, rng.Float64() * extent}
	}
	return pos
}

func bruteRadius(pos []pointcloud.Vec3, c pointcloud.Vec3, r float64) []int {
	out := []int{}
	for i, p := range pos {
		if p.Dist2(c) <= r*r {
			out = append(out, i)
		}
	}
	return out
}

func TestBuildEmpty(t *testing.T) {
	_, err := Build(nil)
	assert.True(t, errors.Is(err, pointcloud.ErrEmptyInput))

	_, err = BuildScene(&pointcloud.Scene{Pos: []pointcloud.Vec3{}})
	assert.True(t, errors.Is(err, pointcloud.ErrEmptyInput))
}

func TestRadiusMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	pos := randomCloud(rng, 2000, 10)
	idx, err := Build(pos)
	require.NoError(t, err)
	require.Equal(t, 2000, idx.Len())

	for trial := 0; trial < 200; trial++ {
		c := pointcloud.Vec3{rng.Float64()*14 - 2, rng.Float64()*14 - 2, rng.Float64()*14 - 2}
		r := rng.Float64() * 3
		got := idx.Radius(c, r)
		want := bruteRadius(pos, c, r)
		if !assert.Equal(t, want, got, "trial %d centre %v radius %v", trial, c, r) {
			return
		}
	}
}

func TestRadiusIncludesBoundary(t *testing.T) {
	pos := []pointcloud.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {0, 3, 0}}
	idx, err := Build(pos)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, idx.Radius(pointcloud.Vec3{0, 0, 0}, 1))
	assert.Equal(t, []int{0, 1, 2}, idx.Radius(pointcloud.Vec3{1, 0, 0}, 1))
	assert.Empty(t, idx.Radius(pointcloud.Vec3{50, 50, 50}, 1))
	assert.Empty(t, idx.Radius(pointcloud.Vec3{0, 0, 0}, -1))
}

func TestRadiusWithDuplicatePositions(t *testing.T) {
	pos := make([]pointcloud.Vec3, 10)
	idx, err := Build(pos)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, idx.Radius(pointcloud.Vec3{}, 0))
}

func TestBuildCopiesPositions(t *testing.T) {
	pos := []pointcloud.Vec3{{0, 0, 0}, {5, 5, 5}}
	idx, err := Build(pos)
	require.NoError(t, err)
	pos[1] = pointcloud.Vec3{0, 0, 0}
	assert.Equal(t, []int{0}, idx.Radius(pointcloud.Vec3{}, 1))
}

func TestNearest(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	pos := randomCloud(rng, 500, 5)
	idx, err := Build(pos)
	require.NoError(t, err)

	for trial := 0; trial < 50; trial++ {
		q := pointcloud.Vec3{rng.Float64() * 5, rng.Float64() * 5, rng.Float64() * 5}
		got, d := idx.Nearest(q)
		best := math.Inf(1)
		for _, p := range pos {
			best = math.Min(best, p.Dist2(q))
		}
		assert.InDelta(t, math.Sqrt(best), d, 1e-12)
		assert.InDelta(t, best, pos[got].Dist2(q), 1e-12)
	}
}

// tiedGrid lays out a regular lattice with every position repeated, so
// distances tie both along axes and between duplicates.
func tiedGrid(side, copies int) []pointcloud.Vec3 {
	var pos []pointcloud.Vec3
	for c := 0; c < copies; c++ {
		for i := 0; i < side; i++ {
			for j := 0; j < side; j++ {
				for k := 0; k < side; k++ {
					pos = append(pos, pointcloud.Vec3{float64(i), float64(j), float64(k)})
				}
			}
		}
	}
	return pos
}

func bruteNearest(pos []pointcloud.Vec3, q pointcloud.Vec3) int {
	best, bestD := -1, math.Inf(1)
	for i, p := range pos {
		if d := p.Dist2(q); d < bestD {
			best, bestD = i, d
		}
	}
	return best
}

func TestNearestPrefersLowestIndexOnTies(t *testing.T) {
	pos := []pointcloud.Vec3{{2, 0, 0}, {1, 0, 0}, {-1, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	idx, err := Build(pos)
	require.NoError(t, err)

	got, d := idx.Nearest(pointcloud.Vec3{})
	assert.Equal(t, 1, got)
	assert.Equal(t, 1.0, d)

	got, _ = idx.Nearest(pointcloud.Vec3{1, 0, 0})
	assert.Equal(t, 1, got, "duplicate at index 3 must lose to index 1")
}

func TestBuildIsDeterministicOnTiedInput(t *testing.T) {
	pos := tiedGrid(4, 3)
	first, err := Build(pos)
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(5, 8))
	queries := make([]pointcloud.Vec3, 200)
	for i := range queries {
		// Half-integer offsets land exactly between lattice points.
		queries[i] = pointcloud.Vec3{
			float64(rng.IntN(8)) / 2, float64(rng.IntN(8)) / 2, float64(rng.IntN(8)) / 2,
		}
	}

	for build := 0; build < 5; build++ {
		again, err := Build(pos)
		require.NoError(t, err)
		for _, q := range queries {
			a, da := first.Nearest(q)
			b, db := again.Nearest(q)
			if a != b || da != db {
				t.Fatalf("build %d: Nearest(%v) = (%d, %v), first build gave (%d, %v)", build, q, b, db, a, da)
			}
			if want := bruteNearest(pos, q); a != want {
				t.Fatalf("Nearest(%v) = %d, want lowest equidistant index %d", q, a, want)
			}
			assert.Equal(t, first.Radius(q, 1), again.Radius(q, 1))
		}
	}
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	assert.Zero(t, idx.Len())
	assert.Empty(t, idx.Radius(pointcloud.Vec3{}, 1))
	i, _ := idx.Nearest(pointcloud.Vec3{})
	assert.Equal(t, -1, i)
}
