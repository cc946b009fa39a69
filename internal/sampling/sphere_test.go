package sampling

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/spatial"
)

// cubeScene is 100 points in a 10 m cube with two evenly split labels.
func cubeScene(rng *rand.Rand) (*pointcloud.Scene, *pointcloud.Mapping) {
	s := randomScene(rng, 100, 10, 2)
	m := &pointcloud.Mapping{}
	for p := 0; p < s.Len(); p++ {
		for img := 0; img < 1+p%3; img++ {
			m.Point = append(m.Point, p)
			m.Obs = append(m.Obs, pointcloud.Observation{ImageID: img, Pixel: [2]int{p, img}, Depth: float32(img)})
		}
	}
	return s, m
}

func TestExtractMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(10, 20))
	s := randomScene(rng, 1000, 10, 3)
	idx, err := spatial.BuildScene(s)
	require.NoError(t, err)

	for trial := 0; trial < 100; trial++ {
		c := pointcloud.Vec3{rng.Float64() * 10, rng.Float64() * 10, rng.Float64() * 10}
		r := 0.1 + rng.Float64()*3
		sub, sel, err := Extract(s, idx, c, r)
		require.NoError(t, err)

		var want []int
		for i, p := range s.Pos {
			if p.Dist2(c) <= r*r {
				want = append(want, i)
			}
		}
		require.Len(t, sel, len(want))
		if len(want) > 0 {
			assert.Equal(t, want, sel)
		}
		require.NoError(t, sub.Validate())
		for j, i := range sel {
			assert.Equal(t, s.Pos[i], sub.Pos[j])
			assert.Equal(t, s.Label[i], sub.Label[j])
			assert.Equal(t, i, sub.OriginID[j])
		}
	}
}

func TestExtractEmptySphere(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := randomScene(rng, 50, 1, 2)
	idx, err := spatial.BuildScene(s)
	require.NoError(t, err)

	sub, sel, err := Extract(s, idx, pointcloud.Vec3{100, 100, 100}, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Len())
	assert.Empty(t, sel)
	assert.NoError(t, sub.Validate())
}

func TestExtractErrors(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := randomScene(rng, 10, 1, 2)
	idx, err := spatial.BuildScene(s)
	require.NoError(t, err)

	_, _, err = Extract(&pointcloud.Scene{}, idx, pointcloud.Vec3{}, 1)
	assert.True(t, errors.Is(err, pointcloud.ErrEmptyInput))

	_, _, err = Extract(s, nil, pointcloud.Vec3{}, 1)
	assert.True(t, errors.Is(err, pointcloud.ErrEmptyInput))

	_, _, err = Extract(s, idx, pointcloud.Vec3{}, 0)
	assert.True(t, pointcloud.IsConfigurationError(err))

	other, err := spatial.Build([]pointcloud.Vec3{{0, 0, 0}})
	require.NoError(t, err)
	_, _, err = Extract(s, other, pointcloud.Vec3{}, 1)
	assert.Error(t, err)
}

func TestRandomSpheresOnCubeScene(t *testing.T) {
	rng := rand.New(rand.NewPCG(100, 1))
	s, m := cubeScene(rng)
	const radius = 2.0

	cands, err := BuildCandidates([]*pointcloud.Scene{s}, radius/10)
	require.NoError(t, err)
	sampler, err := NewRandomSampler(cands)
	require.NoError(t, err)
	assert.Len(t, sampler.Labels(), 2)

	idx, err := spatial.BuildScene(s)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		c, err := sampler.Sample(rng)
		require.NoError(t, err)
		require.Equal(t, 0, c.Area)

		sub, subMap, sel, err := ExtractWithMapping(s, idx, m, c.Pos, radius)
		require.NoError(t, err)
		require.GreaterOrEqual(t, sub.Len(), 1, "candidate centres are scene points")
		require.NoError(t, subMap.Validate(sub.Len()))
		for _, p := range subMap.Point {
			require.True(t, p >= 0 && p < sub.Len())
		}
		for _, orig := range sel {
			require.True(t, orig >= 0 && orig < s.Len())
		}
	}
}

func TestSphereMappingMatchesDirectLookup(t *testing.T) {
	rng := rand.New(rand.NewPCG(8, 8))
	s, m := cubeScene(rng)
	idx, err := spatial.BuildScene(s)
	require.NoError(t, err)

	sub, subMap, sel, err := ExtractWithMapping(s, idx, m, pointcloud.Vec3{5, 5, 5}, 3)
	require.NoError(t, err)

	type pair struct {
		Origin int
		Obs    pointcloud.Observation
	}
	var restricted []pair
	for k, p := range subMap.Point {
		restricted = append(restricted, pair{Origin: sub.OriginID[p], Obs: subMap.Obs[k]})
	}

	inSphere := map[int]bool{}
	for _, i := range sel {
		inSphere[i] = true
	}
	var direct []pair
	for _, i := range sel {
		for k, p := range m.Point {
			if p == i {
				direct = append(direct, pair{Origin: i, Obs: m.Obs[k]})
			}
		}
	}
	assert.Equal(t, direct, restricted)
	for k, p := range m.Point {
		if !inSphere[p] {
			assert.NotContains(t, restricted, pair{Origin: p, Obs: m.Obs[k]})
		}
	}
}
