package pointcloud

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testMapping gives every point p entries in images p%3 and, for even p,
// a second entry in image 7. Entries are deliberately interleaved so the
// input is not grouped by point.
func testMapping(n int) *Mapping {
	m := &Mapping{}
	for p := 0; p < n; p++ {
		m.Point = append(m.Point, p)
		m.Obs = append(m.Obs, Observation{ImageID: p % 3, Pixel: [2]int{p, 2 * p}, Depth: float32(p)})
	}
	for p := n - 1; p >= 0; p-- {
		if p%2 == 0 {
			m.Point = append(m.Point, p)
			m.Obs = append(m.Obs, Observation{ImageID: 7, Pixel: [2]int{p, 0}, Depth: float32(p) + 0.5})
		}
	}
	return m
}

type pair struct {
	Origin int
	Obs    Observation
}

// pairs expresses every entry by the origin id of its point so that
// mappings over different index spaces can be compared.
func pairs(s *Scene, m *Mapping) []pair {
	out := make([]pair, m.Len())
	for k, p := range m.Point {
		out[k] = pair{Origin: s.OriginID[p], Obs: m.Obs[k]}
	}
	return out
}

func assertAligned(t *testing.T, s *Scene, m *Mapping) {
	t.Helper()
	require.NoError(t, s.Validate())
	require.NoError(t, m.Validate(s.Len()))
}

func TestRestrictKeepsOnlySelectedEntries(t *testing.T) {
	s := testScene(6)
	m := testMapping(6)

	sub, subMap, err := Restrict(s, []int{4, 1}, m)
	require.NoError(t, err)
	assertAligned(t, sub, subMap)

	want := &Mapping{
		Point: []int{0, 0, 1},
		Obs: []Observation{
			{ImageID: 1, Pixel: [2]int{4, 8}, Depth: 4},
			{ImageID: 7, Pixel: [2]int{4, 0}, Depth: 4.5},
			{ImageID: 1, Pixel: [2]int{1, 2}, Depth: 1},
		},
	}
	if diff := cmp.Diff(want, subMap); diff != "" {
		t.Errorf("restricted mapping mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{4, 1}, sub.OriginID)
}

func TestRestrictEveryEntryExactlyOnce(t *testing.T) {
	s := testScene(50)
	m := testMapping(50)
	sel := []int{3, 10, 11, 12, 40, 49}

	sub, subMap, err := Restrict(s, sel, m)
	require.NoError(t, err)
	assertAligned(t, sub, subMap)

	selected := make(map[int]bool)
	for _, i := range sel {
		selected[i] = true
	}
	wantCount := 0
	for _, p := range m.Point {
		if selected[p] {
			wantCount++
		}
	}
	assert.Equal(t, wantCount, subMap.Len())

	counts := make(map[pair]int)
	for _, p := range pairs(sub, subMap) {
		counts[p]++
	}
	for k, p := range m.Point {
		key := pair{Origin: p, Obs: m.Obs[k]}
		if selected[p] {
			assert.Equal(t, 1, counts[key], "entry %d", k)
		} else {
			assert.Zero(t, counts[key], "entry %d", k)
		}
	}
}

func TestRestrictRejectsBadSelections(t *testing.T) {
	s := testScene(5)
	m := testMapping(5)

	_, _, err := Restrict(s, []int{0, 5}, m)
	assert.True(t, errors.Is(err, ErrSelection))

	_, _, err = Restrict(s, []int{-1}, m)
	assert.True(t, errors.Is(err, ErrSelection))

	_, _, err = Restrict(s, []int{2, 2}, m)
	assert.True(t, errors.Is(err, ErrSelection))

	_, _, err = RestrictMask(s, []bool{true}, m)
	assert.True(t, errors.Is(err, ErrSelection))
}

func TestRestrictRejectsMisalignedMapping(t *testing.T) {
	s := testScene(3)
	m := &Mapping{Point: []int{0, 3}, Obs: make([]Observation, 2)}
	_, _, err := Restrict(s, []int{0}, m)
	assert.True(t, errors.Is(err, ErrMisaligned))
}

func TestRestrictNilMapping(t *testing.T) {
	s := testScene(3)
	sub, subMap, err := Restrict(s, []int{2}, nil)
	require.NoError(t, err)
	assert.Nil(t, subMap)
	assert.Equal(t, 1, sub.Len())
}

func TestRestrictEmptySelection(t *testing.T) {
	s := testScene(8)
	sub, subMap, err := Restrict(s, nil, testMapping(8))
	require.NoError(t, err)
	assert.Equal(t, 0, sub.Len())
	assert.Equal(t, 0, subMap.Len())
	assertAligned(t, sub, subMap)
}

func TestRestrictComposes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.IntN(200)
		s := testScene(n)
		m := testMapping(n)

		s1 := randomSelection(rng, n)
		sub1, map1, err := Restrict(s, s1, m)
		require.NoError(t, err)

		s2 := randomSelection(rng, len(s1))
		sub2, map2, err := Restrict(sub1, s2, map1)
		require.NoError(t, err)

		composed, err := ComposeSelections(s1, s2)
		require.NoError(t, err)
		direct, directMap, err := Restrict(s, composed, m)
		require.NoError(t, err)

		if diff := cmp.Diff(direct, sub2); diff != "" {
			t.Fatalf("trial %d: scenes differ (-direct +twice):\n%s", trial, diff)
		}
		if diff := cmp.Diff(directMap, map2); diff != "" {
			t.Fatalf("trial %d: mappings differ (-direct +twice):\n%s", trial, diff)
		}
		assertAligned(t, sub2, map2)
	}
}

func TestRestrictByOriginMatchesRestrict(t *testing.T) {
	s := testScene(40)
	m := testMapping(40)

	mask := InvertMask(s.IsVal)
	sub := s.Select(MaskToIndices(mask))
	byOrigin, err := RestrictByOrigin(s, m, sub)
	require.NoError(t, err)

	_, direct, err := RestrictMask(s, mask, m)
	require.NoError(t, err)

	if diff := cmp.Diff(direct, byOrigin); diff != "" {
		t.Errorf("mapping mismatch (-restrict +byOrigin):\n%s", diff)
	}
}

func TestRestrictByOriginAfterTwoSelections(t *testing.T) {
	s := testScene(30)
	m := testMapping(30)

	first := s.Select([]int{1, 2, 4, 8, 16, 29})
	second := first.Select([]int{5, 0, 3})

	got, err := RestrictByOrigin(s, m, second)
	require.NoError(t, err)
	assertAligned(t, second, got)

	_, want, err := Restrict(s, []int{29, 1, 8}, m)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestrictByOriginErrors(t *testing.T) {
	s := testScene(4)
	m := testMapping(4)

	noOrigin := &Scene{Pos: []Vec3{{0, 0, 0}}}
	_, err := RestrictByOrigin(s, m, noOrigin)
	assert.True(t, errors.Is(err, ErrSelection))

	foreign := &Scene{Pos: []Vec3{{0, 0, 0}}, OriginID: []int{99}}
	_, err = RestrictByOrigin(s, m, foreign)
	assert.True(t, errors.Is(err, ErrSelection))
}

func TestComposeSelectionsOutOfRange(t *testing.T) {
	_, err := ComposeSelections([]int{1, 2}, []int{2})
	assert.True(t, errors.Is(err, ErrSelection))
}

func TestMappingPointsSeen(t *testing.T) {
	m := testMapping(6)
	assert.Equal(t, 6, m.PointsSeen())
	var nilMap *Mapping
	assert.Zero(t, nilMap.PointsSeen())
}

func randomSelection(rng *rand.Rand, n int) []int {
	perm := rng.Perm(n)
	k := rng.IntN(n + 1)
	return perm[:k]
}
