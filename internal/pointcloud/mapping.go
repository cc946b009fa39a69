package pointcloud

import (
	"fmt"
)

// Observation is one sighting of a point in a panoramic image.
type Observation struct {
	ImageID int     // index into the owning area's image list
	Pixel   [2]int  // x, y in the image reference size
	Depth   float32 // camera-to-point distance (m), used for visibility
}

// Mapping links point indices of one Scene to image observations. Entry k
// says point Point[k] is seen as Obs[k]. A point may have zero or many
// entries. Entries are grouped by point in ascending point order when
// produced by this package.
type Mapping struct {
	Point []int
	Obs   []Observation
}

// Len returns the number of mapping entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Point)
}

// Validate checks the mapping against a scene holding n points.
func (m *Mapping) Validate(n int) error {
	if m == nil {
		return nil
	}
	if len(m.Point) != len(m.Obs) {
		return fmt.Errorf("mapping has %d point indices but %d observations", len(m.Point), len(m.Obs))
	}
	for k, p := range m.Point {
		if p < 0 || p >= n {
			return fmt.Errorf("%w: entry %d references point %d of %d", ErrMisaligned, k, p, n)
		}
	}
	return nil
}

// Clone returns a deep copy of the mapping.
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return nil
	}
	return &Mapping{Point: cloneSlice(m.Point), Obs: cloneSlice(m.Obs)}
}

// PointsSeen returns the number of distinct points with at least one entry.
func (m *Mapping) PointsSeen() int {
	if m == nil {
		return 0
	}
	seen := make(map[int]struct{}, len(m.Point))
	for _, p := range m.Point {
		seen[p] = struct{}{}
	}
	return len(seen)
}

// Restrict carves the points at idx out of s and re-expresses m over the
// subset's contiguous 0-based index space. Entries of selected points are
// kept exactly once with their point index rewritten to the subset index;
// entries of excluded points are dropped. Output entries are grouped in
// subset order, keeping the input order within a point, so that
// Restrict(Restrict(s, a), b) equals Restrict(s, a∘b).
//
// idx must hold distinct indices in [0, s.Len()). A nil m yields a nil
// mapping.
func Restrict(s *Scene, idx []int, m *Mapping) (*Scene, *Mapping, error) {
	if s == nil {
		return nil, nil, fmt.Errorf("%w: nil scene", ErrSelection)
	}
	sub, err := remapMapping(idx, s.Len(), m)
	if err != nil {
		return nil, nil, err
	}
	return s.Select(idx), sub, nil
}

// RestrictMask is Restrict with a boolean selection of length s.Len().
func RestrictMask(s *Scene, mask []bool, m *Mapping) (*Scene, *Mapping, error) {
	if len(mask) != s.Len() {
		return nil, nil, fmt.Errorf("%w: mask has %d entries for %d points", ErrSelection, len(mask), s.Len())
	}
	return Restrict(s, MaskToIndices(mask), m)
}

// RestrictByOrigin derives the mapping of sub, a subset of full obtained by
// any sequence of selections, from the mapping of full. Points are matched
// through OriginID, which both scenes must carry.
func RestrictByOrigin(full *Scene, m *Mapping, sub *Scene) (*Mapping, error) {
	if full == nil || sub == nil {
		return nil, fmt.Errorf("%w: nil scene", ErrSelection)
	}
	if full.OriginID == nil || (sub.Len() > 0 && sub.OriginID == nil) {
		return nil, fmt.Errorf("%w: origin ids missing", ErrSelection)
	}
	byOrigin := make(map[int]int, len(full.OriginID))
	for i, id := range full.OriginID {
		if _, dup := byOrigin[id]; dup {
			return nil, fmt.Errorf("%w: duplicate origin id %d", ErrSelection, id)
		}
		byOrigin[id] = i
	}
	idx := make([]int, sub.Len())
	for j, id := range sub.OriginID {
		i, ok := byOrigin[id]
		if !ok {
			return nil, fmt.Errorf("%w: origin id %d not in source scene", ErrSelection, id)
		}
		idx[j] = i
	}
	return remapMapping(idx, full.Len(), m)
}

// ComposeSelections expresses b, a selection over the subset picked by a,
// as a selection over a's source.
func ComposeSelections(a, b []int) ([]int, error) {
	out := make([]int, len(b))
	for i, j := range b {
		if j < 0 || j >= len(a) {
			return nil, fmt.Errorf("%w: index %d outside selection of %d", ErrSelection, j, len(a))
		}
		out[i] = a[j]
	}
	return out, nil
}

// remapMapping keeps the entries of m whose point is in idx and renumbers
// them to positions in idx.
func remapMapping(idx []int, n int, m *Mapping) (*Mapping, error) {
	seen := make([]bool, n)
	for _, i := range idx {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: index %d outside [0, %d)", ErrSelection, i, n)
		}
		if seen[i] {
			return nil, fmt.Errorf("%w: index %d selected twice", ErrSelection, i)
		}
		seen[i] = true
	}
	if m == nil {
		return nil, nil
	}
	if err := m.Validate(n); err != nil {
		return nil, err
	}

	// Bucket entries by source point (CSR layout) so each selected point
	// emits its entries in input order.
	start := make([]int, n+1)
	for _, p := range m.Point {
		start[p+1]++
	}
	for i := 0; i < n; i++ {
		start[i+1] += start[i]
	}
	order := make([]int, len(m.Point))
	fill := make([]int, n)
	copy(fill, start[:n])
	for k, p := range m.Point {
		order[fill[p]] = k
		fill[p]++
	}

	total := 0
	for _, i := range idx {
		total += start[i+1] - start[i]
	}
	out := &Mapping{
		Point: make([]int, 0, total),
		Obs:   make([]Observation, 0, total),
	}
	for j, i := range idx {
		for _, k := range order[start[i]:start[i+1]] {
			out.Point = append(out.Point, j)
			out.Obs = append(out.Obs, m.Obs[k])
		}
	}
	return out, nil
}
