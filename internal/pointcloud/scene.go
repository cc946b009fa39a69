package pointcloud

import (
	"fmt"
	"math"
	"sort"
)

// Vec3 is a position in the scene frame (metres).
type Vec3 [3]float64

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 {
	return Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// Dist2 returns the squared Euclidean distance between a and b.
func (a Vec3) Dist2(b Vec3) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return dx*dx + dy*dy + dz*dz
}

// Scene is one area (or room) point cloud with its per-point attributes.
//
// Pos is mandatory. Every other non-nil attribute slice must have exactly
// Len() entries. IsVal only lives until split extraction; OriginID is
// assigned once during pre-collation and survives every later subset so a
// point can always be traced back to the full area.
type Scene struct {
	Pos      []Vec3
	RGB      [][3]float32 // normalised to [0, 1]
	Label    []int
	IsVal    []bool
	Instance []int
	OriginID []int

	// Extra holds format-specific per-point attributes.
	Extra map[string][]float64
}

// Len returns the number of points. A nil scene has zero points.
func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Pos)
}

// Validate checks that every attribute matches the point count.
func (s *Scene) Validate() error {
	if s == nil {
		return fmt.Errorf("nil scene")
	}
	n := len(s.Pos)
	check := func(name string, l int, present bool) error {
		if present && l != n {
			return fmt.Errorf("scene attribute %s has %d entries, want %d", name, l, n)
		}
		return nil
	}
	if err := check("rgb", len(s.RGB), s.RGB != nil); err != nil {
		return err
	}
	if err := check("label", len(s.Label), s.Label != nil); err != nil {
		return err
	}
	if err := check("is_val", len(s.IsVal), s.IsVal != nil); err != nil {
		return err
	}
	if err := check("instance", len(s.Instance), s.Instance != nil); err != nil {
		return err
	}
	if err := check("origin_id", len(s.OriginID), s.OriginID != nil); err != nil {
		return err
	}
	for _, k := range s.ExtraKeys() {
		if err := check("extra."+k, len(s.Extra[k]), true); err != nil {
			return err
		}
	}
	return nil
}

// ExtraKeys returns the Extra attribute names in sorted order.
func (s *Scene) ExtraKeys() []string {
	if s == nil || len(s.Extra) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	if s == nil {
		return nil
	}
	out := &Scene{
		Pos:      cloneSlice(s.Pos),
		RGB:      cloneSlice(s.RGB),
		Label:    cloneSlice(s.Label),
		IsVal:    cloneSlice(s.IsVal),
		Instance: cloneSlice(s.Instance),
		OriginID: cloneSlice(s.OriginID),
	}
	if s.Extra != nil {
		out.Extra = make(map[string][]float64, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = cloneSlice(v)
		}
	}
	return out
}

// Select returns a new scene holding the points at idx, in idx order, with
// every attribute carried along. Indices must be valid; use Restrict when
// the selection comes from an untrusted source or a mapping must follow.
func (s *Scene) Select(idx []int) *Scene {
	out := &Scene{
		Pos:      gather(s.Pos, idx),
		RGB:      gather(s.RGB, idx),
		Label:    gather(s.Label, idx),
		IsVal:    gather(s.IsVal, idx),
		Instance: gather(s.Instance, idx),
		OriginID: gather(s.OriginID, idx),
	}
	if out.Pos == nil {
		out.Pos = []Vec3{}
	}
	if s.Extra != nil {
		out.Extra = make(map[string][]float64, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = gather(v, idx)
		}
	}
	return out
}

// AssignOriginIDs numbers the points 0..Len()-1 in their current order.
func (s *Scene) AssignOriginIDs() {
	s.OriginID = make([]int, len(s.Pos))
	for i := range s.OriginID {
		s.OriginID[i] = i
	}
}

// Bounds returns the axis-aligned extent of the scene. ok is false for an
// empty scene.
func (s *Scene) Bounds() (lo, hi Vec3, ok bool) {
	if s.Len() == 0 {
		return lo, hi, false
	}
	lo = Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, p := range s.Pos {
		for d := 0; d < 3; d++ {
			lo[d] = math.Min(lo[d], p[d])
			hi[d] = math.Max(hi[d], p[d])
		}
	}
	return lo, hi, true
}

// MaskToIndices returns the ascending positions of true entries in mask.
func MaskToIndices(mask []bool) []int {
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return idx
}

// InvertMask returns the element-wise negation of mask.
func InvertMask(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, v := range mask {
		out[i] = !v
	}
	return out
}

func gather[T any](src []T, idx []int) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = src[j]
	}
	return out
}

func cloneSlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(src))
	copy(out, src)
	return out
}
