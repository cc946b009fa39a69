package pointcloud

import (
	"fmt"
	"sort"
)

// Fuse concatenates the room scenes of one area into a single scene, in
// room order. An optional attribute is kept only when every non-empty room
// carries it; a partially present attribute is an error because the fused
// scene could not satisfy Validate.
func Fuse(rooms []*Scene) (*Scene, error) {
	total := 0
	var parts []*Scene
	for i, r := range rooms {
		if r.Len() == 0 {
			continue
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("room %d: %w", i, err)
		}
		parts = append(parts, r)
		total += r.Len()
	}

	out := &Scene{Pos: make([]Vec3, 0, total)}
	if len(parts) == 0 {
		return out, nil
	}

	has := func(present func(*Scene) bool, name string) (bool, error) {
		n := 0
		for _, p := range parts {
			if present(p) {
				n++
			}
		}
		if n != 0 && n != len(parts) {
			return false, fmt.Errorf("attribute %s present in %d of %d rooms", name, n, len(parts))
		}
		return n == len(parts), nil
	}

	hasRGB, err := has(func(s *Scene) bool { return s.RGB != nil }, "rgb")
	if err != nil {
		return nil, err
	}
	hasLabel, err := has(func(s *Scene) bool { return s.Label != nil }, "label")
	if err != nil {
		return nil, err
	}
	hasVal, err := has(func(s *Scene) bool { return s.IsVal != nil }, "is_val")
	if err != nil {
		return nil, err
	}
	hasInst, err := has(func(s *Scene) bool { return s.Instance != nil }, "instance")
	if err != nil {
		return nil, err
	}
	hasOrigin, err := has(func(s *Scene) bool { return s.OriginID != nil }, "origin_id")
	if err != nil {
		return nil, err
	}
	keySet := make(map[string]struct{})
	for _, p := range parts {
		for _, k := range p.ExtraKeys() {
			keySet[k] = struct{}{}
		}
	}
	extraKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		if _, err := has(func(s *Scene) bool { _, ok := s.Extra[k]; return ok }, "extra."+k); err != nil {
			return nil, err
		}
	}

	if hasRGB {
		out.RGB = make([][3]float32, 0, total)
	}
	if hasLabel {
		out.Label = make([]int, 0, total)
	}
	if hasVal {
		out.IsVal = make([]bool, 0, total)
	}
	if hasInst {
		out.Instance = make([]int, 0, total)
	}
	if hasOrigin {
		out.OriginID = make([]int, 0, total)
	}
	if len(extraKeys) > 0 {
		out.Extra = make(map[string][]float64, len(extraKeys))
	}

	for _, p := range parts {
		out.Pos = append(out.Pos, p.Pos...)
		if hasRGB {
			out.RGB = append(out.RGB, p.RGB...)
		}
		if hasLabel {
			out.Label = append(out.Label, p.Label...)
		}
		if hasVal {
			out.IsVal = append(out.IsVal, p.IsVal...)
		}
		if hasInst {
			out.Instance = append(out.Instance, p.Instance...)
		}
		if hasOrigin {
			out.OriginID = append(out.OriginID, p.OriginID...)
		}
		for _, k := range extraKeys {
			out.Extra[k] = append(out.Extra[k], p.Extra[k]...)
		}
	}
	return out, nil
}

// FuseRooms is Fuse over named rooms.
func FuseRooms(rooms []Room) (*Scene, error) {
	scenes := make([]*Scene, len(rooms))
	for i, r := range rooms {
		scenes[i] = r.Scene
	}
	return Fuse(scenes)
}
