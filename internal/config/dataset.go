// Package config loads the dataset configuration shared by the
// preprocessing pipeline and the sampling datasets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// DefaultConfigPath is the path to the canonical dataset defaults file.
const DefaultConfigPath = "config/dataset.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// SamplingMode selects how a dataset picks sphere centres.
type SamplingMode int

const (
	// ModeRandom draws class-balanced centres; the dataset length is the
	// number of samples per epoch.
	ModeRandom SamplingMode = iota
	// ModeGrid enumerates the centres of a regular grid.
	ModeGrid
)

func (m SamplingMode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeGrid:
		return "grid"
	default:
		return fmt.Sprintf("SamplingMode(%d)", int(m))
	}
}

// SamplingFormat is the neighbourhood shape served by a dataset.
type SamplingFormat string

// FormatSphere is the only supported format.
const FormatSphere SamplingFormat = "sphere"

// ParseSamplingFormat validates a sampling format name.
func ParseSamplingFormat(s string) (SamplingFormat, error) {
	switch SamplingFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatSphere:
		return FormatSphere, nil
	default:
		return "", pointcloud.ConfigErrorf("sampling_format", "unsupported format %q, only %q is available", s, FormatSphere)
	}
}

// DatasetConfig is the dataset configuration. Omitted fields fall back to
// the defaults returned by the Get* methods.
type DatasetConfig struct {
	Radius          *float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	SamplePerEpoch  *int     `json:"sample_per_epoch,omitempty" yaml:"sample_per_epoch,omitempty"`
	TrainSampleRes  *float64 `json:"train_sample_res,omitempty" yaml:"train_sample_res,omitempty"`
	EvalSampleRes   *float64 `json:"eval_sample_res,omitempty" yaml:"eval_sample_res,omitempty"`
	TestArea        *int     `json:"test_area,omitempty" yaml:"test_area,omitempty"`
	Areas           *int     `json:"areas,omitempty" yaml:"areas,omitempty"`
	SamplingFormat  *string  `json:"sampling_format,omitempty" yaml:"sampling_format,omitempty"`
	TrainIsTrainval *bool    `json:"train_is_trainval,omitempty" yaml:"train_is_trainval,omitempty"`
	KeepInstance    *bool    `json:"keep_instance,omitempty" yaml:"keep_instance,omitempty"`
	ImgRefSize      []int    `json:"img_ref_size,omitempty" yaml:"img_ref_size,omitempty"` // [width, height]
	MaxDepth        *float64 `json:"max_depth,omitempty" yaml:"max_depth,omitempty"`

	// Rooms whose points go to the val split instead of train.
	ValidationRooms []string `json:"validation_rooms,omitempty" yaml:"validation_rooms,omitempty"`
	// Image names (without extension) to drop because their camera lies
	// outside the scanned rooms.
	OutsideImages []string `json:"outside_images,omitempty" yaml:"outside_images,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }

// EmptyDatasetConfig returns a DatasetConfig with all fields unset.
func EmptyDatasetConfig() *DatasetConfig {
	return &DatasetConfig{}
}

// DefaultDatasetConfig returns a DatasetConfig with every field set to its
// default value.
func DefaultDatasetConfig() *DatasetConfig {
	c := EmptyDatasetConfig()
	w, h := c.GetImgRefSize()
	return &DatasetConfig{
		Radius:          ptrFloat64(c.GetRadius()),
		SamplePerEpoch:  ptrInt(c.GetSamplePerEpoch()),
		TrainSampleRes:  ptrFloat64(c.GetTrainSampleRes()),
		EvalSampleRes:   ptrFloat64(c.GetEvalSampleRes()),
		TestArea:        ptrInt(c.GetTestArea()),
		Areas:           ptrInt(c.GetAreas()),
		SamplingFormat:  ptrString(string(FormatSphere)),
		TrainIsTrainval: ptrBool(c.GetTrainIsTrainval()),
		KeepInstance:    ptrBool(c.GetKeepInstance()),
		ImgRefSize:      []int{w, h},
		MaxDepth:        ptrFloat64(c.GetMaxDepth()),
		ValidationRooms: c.GetValidationRooms(),
		OutsideImages:   c.GetOutsideImages(),
	}
}

// Load reads a DatasetConfig from a .json, .yaml or .yml file and
// validates it.
func Load(path string) (*DatasetConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDatasetConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", filepath.Base(cleanPath), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for test setup.
func MustLoadDefaultConfig() *DatasetConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/mmscene/
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are usable. Errors are
// *pointcloud.ConfigurationError.
func (c *DatasetConfig) Validate() error {
	if c.Radius != nil && !(*c.Radius > 0) {
		return pointcloud.ConfigErrorf("radius", "must be > 0, got %v", *c.Radius)
	}
	if c.TrainSampleRes != nil && !(*c.TrainSampleRes > 0) {
		return pointcloud.ConfigErrorf("train_sample_res", "must be > 0, got %v", *c.TrainSampleRes)
	}
	if c.EvalSampleRes != nil && !(*c.EvalSampleRes > 0) {
		return pointcloud.ConfigErrorf("eval_sample_res", "must be > 0, got %v", *c.EvalSampleRes)
	}
	if c.Areas != nil && *c.Areas < 2 {
		return pointcloud.ConfigErrorf("areas", "need at least 2 areas to hold one out, got %d", *c.Areas)
	}
	if ta := c.GetTestArea(); ta < 1 || ta > c.GetAreas() {
		return pointcloud.ConfigErrorf("test_area", "must be in [1, %d], got %d", c.GetAreas(), ta)
	}
	if c.SamplingFormat != nil {
		if _, err := ParseSamplingFormat(*c.SamplingFormat); err != nil {
			return err
		}
	}
	if c.ImgRefSize != nil {
		if len(c.ImgRefSize) != 2 || c.ImgRefSize[0] <= 0 || c.ImgRefSize[1] <= 0 {
			return pointcloud.ConfigErrorf("img_ref_size", "must be [width, height] with positive values, got %v", c.ImgRefSize)
		}
	}
	if c.MaxDepth != nil && !(*c.MaxDepth > 0) {
		return pointcloud.ConfigErrorf("max_depth", "must be > 0, got %v", *c.MaxDepth)
	}
	return nil
}

// GetRadius returns the sphere radius (m) or the default.
func (c *DatasetConfig) GetRadius() float64 {
	if c.Radius == nil {
		return 2
	}
	return *c.Radius
}

// GetSamplePerEpoch returns the number of random samples per training epoch
// or the default.
func (c *DatasetConfig) GetSamplePerEpoch() int {
	if c.SamplePerEpoch == nil {
		return 3000
	}
	return *c.SamplePerEpoch
}

// GetTrainSampleRes returns the candidate grid resolution for training, by
// default a tenth of the radius.
func (c *DatasetConfig) GetTrainSampleRes() float64 {
	if c.TrainSampleRes == nil {
		return c.GetRadius() / 10
	}
	return *c.TrainSampleRes
}

// GetEvalSampleRes returns the grid resolution for val and test, by default
// the radius.
func (c *DatasetConfig) GetEvalSampleRes() float64 {
	if c.EvalSampleRes == nil {
		return c.GetRadius()
	}
	return *c.EvalSampleRes
}

// GetTestArea returns the 1-based held-out area or the default.
func (c *DatasetConfig) GetTestArea() int {
	if c.TestArea == nil {
		return 6
	}
	return *c.TestArea
}

// GetAreas returns the number of areas in the raw dataset or the default.
func (c *DatasetConfig) GetAreas() int {
	if c.Areas == nil {
		return 6
	}
	return *c.Areas
}

// GetSamplingFormat returns the parsed sampling format. Validate rejects
// unknown formats, so an invalid value here falls back to FormatSphere.
func (c *DatasetConfig) GetSamplingFormat() SamplingFormat {
	if c.SamplingFormat == nil {
		return FormatSphere
	}
	f, err := ParseSamplingFormat(*c.SamplingFormat)
	if err != nil {
		return FormatSphere
	}
	return f
}

// GetTrainIsTrainval reports whether the training dataset reads the
// trainval split.
func (c *DatasetConfig) GetTrainIsTrainval() bool {
	if c.TrainIsTrainval == nil {
		return false
	}
	return *c.TrainIsTrainval
}

// GetKeepInstance reports whether instance labels are kept.
func (c *DatasetConfig) GetKeepInstance() bool {
	if c.KeepInstance == nil {
		return false
	}
	return *c.KeepInstance
}

// GetImgRefSize returns the image reference size mapping pixels are
// expressed in.
func (c *DatasetConfig) GetImgRefSize() (width, height int) {
	if len(c.ImgRefSize) != 2 {
		return 512, 256
	}
	return c.ImgRefSize[0], c.ImgRefSize[1]
}

// GetMaxDepth returns the maximum camera-to-point distance (m) considered
// by the default projector.
func (c *DatasetConfig) GetMaxDepth() float64 {
	if c.MaxDepth == nil {
		return 8
	}
	return *c.MaxDepth
}

// GetValidationRooms returns the validation room names.
func (c *DatasetConfig) GetValidationRooms() []string {
	if c.ValidationRooms == nil {
		return append([]string(nil), defaultValidationRooms...)
	}
	return c.ValidationRooms
}

// GetOutsideImages returns the image names to skip.
func (c *DatasetConfig) GetOutsideImages() []string {
	if c.OutsideImages == nil {
		return append([]string(nil), defaultOutsideImages...)
	}
	return c.OutsideImages
}

// TrainSplit returns the split read by the training dataset.
func (c *DatasetConfig) TrainSplit() string {
	if c.GetTrainIsTrainval() {
		return pointcloud.SplitTrainVal
	}
	return pointcloud.SplitTrain
}

// SplitOptions are the sampling parameters of one split's dataset.
type SplitOptions struct {
	Split          string
	Radius         float64
	SampleRes      float64
	SamplePerEpoch int
	Mode           SamplingMode
	Format         SamplingFormat
}

// ForSplit derives the sampling parameters for split. train and trainval
// sample randomly with the training resolution; val and test enumerate a
// grid at the evaluation resolution.
func (c *DatasetConfig) ForSplit(split string) (SplitOptions, error) {
	if !pointcloud.ValidSplit(split) {
		return SplitOptions{}, pointcloud.ConfigErrorf("split", "unknown split %q", split)
	}
	opts := SplitOptions{
		Split:  split,
		Radius: c.GetRadius(),
		Format: c.GetSamplingFormat(),
	}
	if split == pointcloud.SplitTrain || split == pointcloud.SplitTrainVal {
		opts.SampleRes = c.GetTrainSampleRes()
		opts.SamplePerEpoch = c.GetSamplePerEpoch()
	} else {
		opts.SampleRes = c.GetEvalSampleRes()
		opts.SamplePerEpoch = -1
	}
	opts.Mode = ModeOf(opts.SamplePerEpoch)
	return opts, nil
}

// ModeOf returns ModeRandom for a positive sample count and ModeGrid
// otherwise.
func ModeOf(samplePerEpoch int) SamplingMode {
	if samplePerEpoch > 0 {
		return ModeRandom
	}
	return ModeGrid
}
