// Package dataset serves sphere samples from one preprocessed split.
//
// A Dataset is built once and is read-only afterwards: scenes, mappings,
// spatial indexes and the sampling tables are shared by every caller. In
// random mode each call to Get draws a class-balanced centre with the
// caller's generator; in grid mode Get(i) returns the i-th deterministic
// centre, so evaluation visits every occupied grid cell once.
package dataset

import (
	"context"
	"fmt"
	"math/rand/v2"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/mmscene/internal/config"
	"github.com/banshee-data/mmscene/internal/fsutil"
	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/monitoring"
	"github.com/banshee-data/mmscene/internal/pipeline"
	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/sampling"
	"github.com/banshee-data/mmscene/internal/spatial"
)

// Sample is one extracted sphere. Area is carried beside the scene, never
// as a point attribute. Images is shared with the dataset and must not be
// modified.
type Sample struct {
	Area    int // 1-based area number
	Center  pointcloud.Vec3
	Scene   *pointcloud.Scene
	Mapping *pointcloud.Mapping
	Images  []pointcloud.ImageRecord
	Indices []int // positions of the sample's points in the area scene
}

// Dataset holds one split in memory.
type Dataset struct {
	opts    config.SplitOptions
	areas   []pointcloud.AreaData
	indexes []*spatial.Index

	sampler *sampling.RandomSampler // random mode
	centers []sampling.Center       // grid mode

	raw *pointcloud.Scene // test split only
}

// New builds a dataset over areas. Spatial indexes are built concurrently,
// one goroutine per area.
func New(ctx context.Context, areas []pointcloud.AreaData, opts config.SplitOptions) (*Dataset, error) {
	if opts.Radius <= 0 {
		return nil, pointcloud.ConfigErrorf("radius", "must be > 0, got %v", opts.Radius)
	}
	if opts.SampleRes <= 0 {
		return nil, pointcloud.ConfigErrorf("sample_res", "must be > 0, got %v", opts.SampleRes)
	}
	if opts.Format != "" && opts.Format != config.FormatSphere {
		return nil, pointcloud.ConfigErrorf("sampling_format", "unsupported format %q", opts.Format)
	}
	scenes := make([]*pointcloud.Scene, len(areas))
	for i, a := range areas {
		if err := a.Scene.Validate(); err != nil {
			return nil, fmt.Errorf("area %d: %w", a.Area, err)
		}
		if err := a.Mapping.Validate(a.Scene.Len()); err != nil {
			return nil, fmt.Errorf("area %d: %w", a.Area, err)
		}
		scenes[i] = a.Scene
	}

	d := &Dataset{opts: opts, areas: areas, indexes: make([]*spatial.Index, len(areas))}
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range scenes {
		if s.Len() == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx, err := spatial.BuildScene(s)
			if err != nil {
				return fmt.Errorf("index area %d: %w", areas[i].Area, err)
			}
			d.indexes[i] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var n int
	switch opts.Mode {
	case config.ModeRandom:
		cands, err := sampling.BuildCandidates(scenes, opts.SampleRes)
		if err != nil {
			return nil, err
		}
		if d.sampler, err = sampling.NewRandomSampler(cands); err != nil {
			return nil, err
		}
		n = len(cands)
		for _, l := range d.sampler.Labels() {
			logging.Diagf("%s: label %d: %d centres, weight %.4f", opts.Split, l, d.sampler.Counts()[l], d.sampler.Weights()[l])
		}
	case config.ModeGrid:
		centers, err := sampling.Partition(scenes, opts.Radius, opts.SampleRes)
		if err != nil {
			return nil, err
		}
		d.centers = centers
		n = len(centers)
	default:
		return nil, pointcloud.ConfigErrorf("mode", "unknown sampling mode %d", opts.Mode)
	}
	monitoring.DatasetCenters.WithLabelValues(opts.Split, opts.Mode.String()).Set(float64(n))
	logging.Opsf("dataset %s: %d areas, %d %s centres", opts.Split, len(areas), n, opts.Mode)
	return d, nil
}

// Open loads split from the processed directory under root and builds the
// dataset with the sampling parameters cfg derives for it. The test split
// also loads the raw scene of the test area.
func Open(ctx context.Context, fsys fsutil.FileSystem, root string, cfg *config.DatasetConfig, split string) (*Dataset, error) {
	opts, err := cfg.ForSplit(split)
	if err != nil {
		return nil, err
	}
	testArea := cfg.GetTestArea()
	dir := pipeline.ProcessedDir(root)

	data, err := fsys.ReadFile(filepath.Join(dir, pipeline.SplitFile(split, testArea)))
	if err != nil {
		return nil, fmt.Errorf("read split %s: %w", split, err)
	}
	sp, err := pointcloud.DecodeSplit(data)
	if err != nil {
		return nil, fmt.Errorf("decode split %s: %w", split, err)
	}
	if sp.Name != split || sp.TestArea != testArea {
		return nil, fmt.Errorf("split file holds %s for test area %d, want %s for test area %d", sp.Name, sp.TestArea, split, testArea)
	}

	d, err := New(ctx, sp.Areas, opts)
	if err != nil {
		return nil, err
	}
	if split == pointcloud.SplitTest {
		raw, err := fsys.ReadFile(filepath.Join(dir, pipeline.RawAreaFile(testArea-1)))
		if err != nil {
			return nil, fmt.Errorf("read raw test area: %w", err)
		}
		if d.raw, err = pointcloud.DecodeScene(raw); err != nil {
			return nil, fmt.Errorf("decode raw test area: %w", err)
		}
	}
	return d, nil
}

// Len is the number of samples per epoch in random mode and the number of
// grid centres in grid mode.
func (d *Dataset) Len() int {
	if d.opts.Mode == config.ModeRandom {
		return d.opts.SamplePerEpoch
	}
	return len(d.centers)
}

// Mode returns the sampling mode.
func (d *Dataset) Mode() config.SamplingMode { return d.opts.Mode }

// Options returns the sampling parameters.
func (d *Dataset) Options() config.SplitOptions { return d.opts }

// Areas returns the split's areas. They must not be modified.
func (d *Dataset) Areas() []pointcloud.AreaData { return d.areas }

// Centers returns the grid centres; nil in random mode.
func (d *Dataset) Centers() []sampling.Center { return d.centers }

// Get returns sample i. Random mode ignores i and draws with rng; grid mode
// ignores rng. Safe for concurrent use when callers do not share rng.
func (d *Dataset) Get(i int, rng *rand.Rand) (*Sample, error) {
	var (
		area   int
		center pointcloud.Vec3
	)
	if d.opts.Mode == config.ModeRandom {
		c, err := d.sampler.Sample(rng)
		if err != nil {
			return nil, err
		}
		area, center = c.Area, c.Pos
	} else {
		if i < 0 || i >= len(d.centers) {
			return nil, fmt.Errorf("sample %d out of range [0, %d)", i, len(d.centers))
		}
		area, center = d.centers[i].Area, d.centers[i].Pos
	}

	a := d.areas[area]
	sub, m, sel, err := sampling.ExtractWithMapping(a.Scene, d.indexes[area], a.Mapping, center, d.opts.Radius)
	if err != nil {
		return nil, fmt.Errorf("sample %d from area %d: %w", i, a.Area, err)
	}
	if logging.Enabled(logging.Trace) {
		logging.Tracef("%s sample %d: area %d centre (%.2f, %.2f, %.2f) %d points %d entries",
			d.opts.Split, i, a.Area, center[0], center[1], center[2], sub.Len(), m.Len())
	}
	return &Sample{Area: a.Area, Center: center, Scene: sub, Mapping: m, Images: a.Images, Indices: sel}, nil
}

// CenterLabels returns, for every grid centre, the label of the nearest
// point of its area, or -1 for unlabelled areas.
func (d *Dataset) CenterLabels() ([]int, error) {
	if d.opts.Mode != config.ModeGrid {
		return nil, fmt.Errorf("centre labels need grid sampling, dataset %s samples randomly", d.opts.Split)
	}
	out := make([]int, len(d.centers))
	for i, c := range d.centers {
		a := d.areas[c.Area]
		k, _ := d.indexes[c.Area].Nearest(c.Pos)
		if k < 0 || a.Scene.Label == nil {
			out[i] = -1
			continue
		}
		out[i] = a.Scene.Label[k]
	}
	return out, nil
}

// LabelWeights returns the class-balancing weights; nil in grid mode.
func (d *Dataset) LabelWeights() map[int]float64 {
	if d.sampler == nil {
		return nil
	}
	return d.sampler.Weights()
}

// LabelCounts returns the candidate count per label; nil in grid mode.
func (d *Dataset) LabelCounts() map[int]int {
	if d.sampler == nil {
		return nil
	}
	return d.sampler.Counts()
}

// RawTestArea returns the fused test area before any pre-transform. It is
// nil unless the dataset was opened on the test split.
func (d *Dataset) RawTestArea() *pointcloud.Scene { return d.raw }
