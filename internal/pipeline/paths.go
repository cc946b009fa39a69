package pipeline

import (
	"fmt"
	"path/filepath"
)

// Stage names of the multimodal preprocessing.
const (
	StagePreprocessed      = "preprocessed"
	StagePreCollate        = "pre_collate"
	StageImageData         = "image_data"
	StagePreTransformImage = "pre_transform_image"
	StageSplits            = "splits"
)

const artifactExt = ".gob.gz"

// ProcessedDir is where the stage artifacts of a dataset root live.
func ProcessedDir(root string) string {
	return filepath.Join(root, "processed")
}

// StageFile is the artifact file name of an intermediate stage.
func StageFile(stage string) string {
	return stage + artifactExt
}

// RawAreaFile is the file name of the raw fused scene of area i (0-based).
func RawAreaFile(i int) string {
	return fmt.Sprintf("raw_area_%d%s", i, artifactExt)
}

// SplitFile is the file name of split for the given test area.
func SplitFile(split string, testArea int) string {
	return fmt.Sprintf("%s_%d%s", split, testArea, artifactExt)
}

// ManifestFile is the artifact of the splits stage for the given test
// area.
func ManifestFile(testArea int) string {
	return fmt.Sprintf("splits_%d.json", testArea)
}
