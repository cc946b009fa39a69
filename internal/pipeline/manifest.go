package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/security"
)

// ManifestName is the per-area image manifest read by
// ManifestImageExtractor.
const ManifestName = "images.json"

// manifestImage is one entry of an image manifest.
type manifestImage struct {
	Path     string     `json:"path"`
	Room     string     `json:"room"`
	Name     string     `json:"name"`
	Position [3]float64 `json:"position"`
	Rotation [3]float64 `json:"rotation"`
}

type manifest struct {
	Images []manifestImage `json:"images"`
}

// ManifestImageExtractor reads Area_<i>/images.json. Image pixels are
// never decoded; records carry the reference size the mapping is
// expressed in.
type ManifestImageExtractor struct {
	FS        fs.FS
	RefWidth  int
	RefHeight int
}

// Images returns the records of area in manifest order. IDs are assigned
// later, once the image list of the area is final.
func (e ManifestImageExtractor) Images(ctx context.Context, area int) ([]pointcloud.ImageRecord, error) {
	name := path.Join(AreaDir(area), ManifestName)
	data, err := fs.ReadFile(e.FS, name)
	if err != nil {
		return nil, fmt.Errorf("read image manifest of area %d: %w", area, err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	out := make([]pointcloud.ImageRecord, 0, len(m.Images))
	for i, img := range m.Images {
		if err := security.ValidateRelativePath(img.Path); err != nil {
			return nil, fmt.Errorf("%s: image %d: %w", name, i, err)
		}
		if img.Room == "" {
			return nil, fmt.Errorf("%s: image %d has no room", name, i)
		}
		if img.Name == "" {
			base := path.Base(img.Path)
			img.Name = strings.TrimSuffix(base, path.Ext(base))
		}
		out = append(out, pointcloud.ImageRecord{
			ID:       -1,
			Path:     img.Path,
			Area:     AreaDir(area),
			Room:     img.Room,
			Name:     img.Name,
			Position: pointcloud.Vec3(img.Position),
			Rotation: pointcloud.Vec3(img.Rotation),
			Width:    e.RefWidth,
			Height:   e.RefHeight,
		})
	}
	return out, nil
}
