package sampling

import (
	"fmt"

	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/spatial"
)

// Candidate is a possible sphere centre for random sampling.
type Candidate struct {
	Pos   pointcloud.Vec3
	Area  int // index into the scene list the candidates were built from
	Label int // dominant label of the candidate's voxel
}

// BuildCandidates coarsens every scene onto voxels of size res and returns
// one candidate per occupied voxel, tagged with the scene's position in
// scenes. Empty scenes contribute nothing. Scenes must carry labels.
func BuildCandidates(scenes []*pointcloud.Scene, res float64) ([]Candidate, error) {
	if res <= 0 {
		return nil, pointcloud.ConfigErrorf("sample_res", "must be > 0, got %v", res)
	}
	var out []Candidate
	for area, s := range scenes {
		if s.Len() == 0 {
			continue
		}
		if s.Label == nil {
			return nil, fmt.Errorf("candidates for area %d: scene has no labels", area)
		}
		voxels, err := spatial.VoxelGrid(s.Pos, s.Label, res)
		if err != nil {
			return nil, fmt.Errorf("candidates for area %d: %w", area, err)
		}
		for _, v := range voxels {
			out = append(out, Candidate{Pos: v.Pos, Area: area, Label: v.Label})
		}
		logging.Diagf("area %d: %d points -> %d candidate centres (res=%.3f)", area, s.Len(), len(voxels), res)
	}
	return out, nil
}
