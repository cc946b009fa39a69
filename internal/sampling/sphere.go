package sampling

import (
	"fmt"

	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/spatial"
)

// Extract returns the points of s within radius of center, in their
// original relative order, together with their indices in s. A sphere with
// no points is a valid zero-length result. idx must have been built over s.
func Extract(s *pointcloud.Scene, idx *spatial.Index, center pointcloud.Vec3, radius float64) (*pointcloud.Scene, []int, error) {
	if err := checkExtract(s, idx, radius); err != nil {
		return nil, nil, err
	}
	sel := idx.Radius(center, radius)
	return s.Select(sel), sel, nil
}

// ExtractWithMapping extracts a sphere and restricts m to it.
func ExtractWithMapping(s *pointcloud.Scene, idx *spatial.Index, m *pointcloud.Mapping, center pointcloud.Vec3, radius float64) (*pointcloud.Scene, *pointcloud.Mapping, []int, error) {
	if err := checkExtract(s, idx, radius); err != nil {
		return nil, nil, nil, err
	}
	sel := idx.Radius(center, radius)
	sub, subMap, err := pointcloud.Restrict(s, sel, m)
	if err != nil {
		return nil, nil, nil, err
	}
	return sub, subMap, sel, nil
}

func checkExtract(s *pointcloud.Scene, idx *spatial.Index, radius float64) error {
	if s.Len() == 0 || idx == nil {
		return fmt.Errorf("extract sphere: %w", pointcloud.ErrEmptyInput)
	}
	if idx.Len() != s.Len() {
		return fmt.Errorf("extract sphere: index holds %d points, scene %d", idx.Len(), s.Len())
	}
	if radius <= 0 {
		return pointcloud.ConfigErrorf("radius", "must be > 0, got %v", radius)
	}
	return nil
}
