package sampling

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/spatial"
)

func randomScene(rng *rand.Rand, n int, extent float64, labels int) *pointcloud.Scene {
	s := &pointcloud.Scene{Pos: make([]pointcloud.Vec3, n), Label: make([]int, n)}
	for i := range s.Pos {
		s.Pos[i] = pointcloud.Vec3{rng.Float64() * extent, rng.Float64() * extent, rng.Float64() * extent}
		s.Label[i] = i % labels
	}
	s.AssignOriginIDs()
	return s
}

func TestPartitionOneCentrePerOccupiedCell(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	scenes := []*pointcloud.Scene{randomScene(rng, 500, 6, 3), {Pos: []pointcloud.Vec3{}}, randomScene(rng, 200, 3, 2)}
	const size = 1.5

	centres, err := Partition(scenes, 2, size)
	require.NoError(t, err)

	occupied := map[int]map[spatial.CellKey]int{}
	origin := map[int]pointcloud.Vec3{}
	for area, s := range scenes {
		lo, _, _ := s.Bounds()
		origin[area] = lo
		for _, p := range s.Pos {
			if occupied[area] == nil {
				occupied[area] = map[spatial.CellKey]int{}
			}
			occupied[area][spatial.CellOf(p.Sub(lo), size)]++
		}
	}
	got := map[int]map[spatial.CellKey]int{}
	for _, c := range centres {
		if got[c.Area] == nil {
			got[c.Area] = map[spatial.CellKey]int{}
		}
		_, dup := got[c.Area][c.Cell]
		require.False(t, dup, "cell %v of area %d emitted twice", c.Cell, c.Area)
		got[c.Area][c.Cell] = c.Count
		assert.Equal(t, c.Cell, spatial.CellOf(c.Pos.Sub(origin[c.Area]), size), "centre outside its cell")
	}
	assert.Equal(t, occupied, got)
}

func TestPartitionCoversEveryPoint(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	scenes := []*pointcloud.Scene{randomScene(rng, 800, 8, 4), randomScene(rng, 300, 4, 2)}
	const size = 1.0
	radius := size * math.Sqrt(3)

	centres, err := Partition(scenes, radius, size)
	require.NoError(t, err)

	for area, s := range scenes {
		idx, err := spatial.BuildScene(s)
		require.NoError(t, err)
		covered := make([]bool, s.Len())
		for _, c := range centres {
			if c.Area != area {
				continue
			}
			_, sel, err := Extract(s, idx, c.Pos, radius)
			require.NoError(t, err)
			for _, i := range sel {
				covered[i] = true
			}
		}
		for i, ok := range covered {
			assert.True(t, ok, "area %d point %d not covered", area, i)
		}
	}
}

func TestPartitionReproducible(t *testing.T) {
	build := func() []*pointcloud.Scene {
		rng := rand.New(rand.NewPCG(4, 4))
		return []*pointcloud.Scene{randomScene(rng, 300, 5, 2), randomScene(rng, 300, 5, 2)}
	}
	first, err := Partition(build(), 1, 0.8)
	require.NoError(t, err)
	second, err := Partition(build(), 1, 0.8)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("partition not reproducible (-first +second):\n%s", diff)
	}

	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		ordered := a.Area < b.Area || (a.Area == b.Area && a.Cell.Less(b.Cell))
		assert.True(t, ordered, "centres %d and %d out of order", i-1, i)
	}
}

func TestPartitionAnchorsGridAtSceneBounds(t *testing.T) {
	// Dyadic coordinates keep every shift and subtraction exact.
	base := &pointcloud.Scene{}
	for i := 0; i < 24; i++ {
		base.Pos = append(base.Pos, pointcloud.Vec3{0.125 * float64(i), 0.25 * float64(i%5), 0.5 * float64(i%3)})
	}
	offset := pointcloud.Vec3{0.375, -2.625, 10.75}
	shifted := &pointcloud.Scene{Pos: make([]pointcloud.Vec3, len(base.Pos))}
	for i, p := range base.Pos {
		shifted.Pos[i] = pointcloud.Vec3{p[0] + offset[0], p[1] + offset[1], p[2] + offset[2]}
	}

	const size = 1.0
	want, err := Partition([]*pointcloud.Scene{base}, 1, size)
	require.NoError(t, err)
	got, err := Partition([]*pointcloud.Scene{shifted}, 1, size)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	// The first cell starts at the scene's low corner.
	assert.Equal(t, spatial.CellKey{}, want[0].Cell)
	for i := range want {
		assert.Equal(t, want[i].Cell, got[i].Cell, "centre %d", i)
		assert.Equal(t, want[i].Count, got[i].Count, "centre %d", i)
		for d := 0; d < 3; d++ {
			assert.InDelta(t, want[i].Pos[d]+offset[d], got[i].Pos[d], 1e-9, "centre %d axis %d", i, d)
		}
	}
}

func TestPartitionRejectsBadParameters(t *testing.T) {
	_, err := Partition(nil, 0, 1)
	assert.True(t, pointcloud.IsConfigurationError(err))
	_, err = Partition(nil, 1, -2)
	assert.True(t, pointcloud.IsConfigurationError(err))

	centres, err := Partition(nil, 1, 1)
	require.NoError(t, err)
	assert.Empty(t, centres)
}
