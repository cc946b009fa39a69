package pointcloud

// ImageRecord describes one panoramic image and the pose it was taken from.
type ImageRecord struct {
	ID       int    // position in the owning area's image list
	Path     string // source file, never opened by this module
	Area     string
	Room     string
	Name     string
	Position Vec3
	Rotation Vec3 // omega, phi, kappa (radians)
	Width    int  // reference size the mapping pixels are expressed in
	Height   int
}

// Room is one room point cloud before the rooms of an area are fused.
type Room struct {
	Name  string
	Scene *Scene
}

// AreaData bundles everything known about one area: its points, the
// mapping of those points into its images, and the image records.
type AreaData struct {
	Area    int // 1-based area number in the source dataset
	Scene   *Scene
	Mapping *Mapping
	Images  []ImageRecord
}

// Clone deep-copies scene and mapping. Image records are values and are
// copied with the slice.
func (a AreaData) Clone() AreaData {
	out := AreaData{
		Area:    a.Area,
		Scene:   a.Scene.Clone(),
		Mapping: a.Mapping.Clone(),
	}
	if a.Images != nil {
		out.Images = make([]ImageRecord, len(a.Images))
		copy(out.Images, a.Images)
	}
	return out
}

// Split is the persisted (scene-list, mapping-list) pair of one of the
// train, val, test or trainval splits.
type Split struct {
	Name     string
	TestArea int
	Areas    []AreaData
}

// Split names.
const (
	SplitTrain    = "train"
	SplitVal      = "val"
	SplitTest     = "test"
	SplitTrainVal = "trainval"
)

// SplitNames lists the splits in the order they are persisted.
var SplitNames = []string{SplitTrain, SplitVal, SplitTest, SplitTrainVal}

// ValidSplit reports whether name is one of SplitNames.
func ValidSplit(name string) bool {
	for _, s := range SplitNames {
		if s == name {
			return true
		}
	}
	return false
}
