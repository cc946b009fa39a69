package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/banshee-data/mmscene/internal/config"
	"github.com/banshee-data/mmscene/internal/fsutil"
	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// Preprocessed is the output of the preprocessed stage: the rooms of every
// area after filtering and pre-transform. Raw holds the fused areas before
// the pre-transform and is only set when the stage was computed.
type Preprocessed struct {
	Rooms [][]pointcloud.Room
	Raw   []*pointcloud.Scene
}

// SplitSummary describes one persisted split.
type SplitSummary struct {
	File    string `json:"file"`
	Areas   []int  `json:"areas"`
	Points  int    `json:"points"`
	Entries int    `json:"entries"`
}

// SplitManifest is the artifact of the splits stage.
type SplitManifest struct {
	TestArea int                     `json:"test_area"`
	Splits   map[string]SplitSummary `json:"splits"`

	splits map[string]*pointcloud.Split
}

// Hooks customise the preprocessing. Every field is optional.
type Hooks struct {
	// RoomFix corrects a room in place right after it is read.
	RoomFix func(area int, room string, s *pointcloud.Scene)
	// PreFilter drops a room when it returns false.
	PreFilter func(area int, room string, s *pointcloud.Scene) bool
	// PreTransform replaces a room scene before it is persisted.
	PreTransform func(area int, room string, s *pointcloud.Scene) (*pointcloud.Scene, error)
	// PreCollate replaces a fused area scene after origin ids are assigned.
	PreCollate func(area int, s *pointcloud.Scene) (*pointcloud.Scene, error)
}

// Preprocessor assembles the multimodal preprocessing stages.
type Preprocessor struct {
	cfg       *config.DatasetConfig
	rooms     RoomReader
	images    ImageExtractor
	projector Projector
	hooks     Hooks
}

// NewPreprocessor validates cfg and returns a Preprocessor. A nil
// hooks.RoomFix defaults to FixRoomOrientation.
func NewPreprocessor(cfg *config.DatasetConfig, rooms RoomReader, images ImageExtractor, projector Projector, hooks Hooks) (*Preprocessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("preprocessor: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rooms == nil || images == nil || projector == nil {
		return nil, fmt.Errorf("preprocessor: room reader, image extractor and projector are required")
	}
	if hooks.RoomFix == nil {
		hooks.RoomFix = FixRoomOrientation
	}
	return &Preprocessor{cfg: cfg, rooms: rooms, images: images, projector: projector, hooks: hooks}, nil
}

// Stages returns the stages in execution order.
func (p *Preprocessor) Stages() []Stage {
	testArea := p.cfg.GetTestArea()
	areas := p.cfg.GetAreas()
	return []Stage{
		&TypedStage[any, *Preprocessed]{
			StageName: StagePreprocessed,
			File:      StageFile(StagePreprocessed),
			ComputeFn: func(ctx context.Context, _ any, _ Results) (*Preprocessed, error) {
				return p.readAreas(ctx)
			},
			EncodeFn: func(out *Preprocessed) ([]byte, error) { return pointcloud.EncodeRooms(out.Rooms) },
			DecodeFn: func(data []byte) (*Preprocessed, error) {
				rooms, err := pointcloud.DecodeRooms(data)
				if err != nil {
					return nil, err
				}
				return &Preprocessed{Rooms: rooms}, nil
			},
			SideFiles: func(dir string) []string {
				files := make([]string, areas)
				for i := range files {
					files[i] = filepath.Join(dir, RawAreaFile(i))
				}
				return files
			},
			WriteSideFn: writeRawAreas,
		},
		&TypedStage[*Preprocessed, []*pointcloud.Scene]{
			StageName: StagePreCollate,
			File:      StageFile(StagePreCollate),
			ComputeFn: p.preCollate,
			EncodeFn:  pointcloud.EncodeScenes,
			DecodeFn:  pointcloud.DecodeScenes,
		},
		&TypedStage[[]*pointcloud.Scene, [][]pointcloud.ImageRecord]{
			StageName: StageImageData,
			File:      StageFile(StageImageData),
			ComputeFn: p.imageData,
			EncodeFn:  pointcloud.EncodeImageSets,
			DecodeFn:  pointcloud.DecodeImageSets,
		},
		&TypedStage[[][]pointcloud.ImageRecord, []pointcloud.AreaData]{
			StageName: StagePreTransformImage,
			File:      StageFile(StagePreTransformImage),
			ComputeFn: p.mapImages,
			EncodeFn:  pointcloud.EncodeAreas,
			DecodeFn:  pointcloud.DecodeAreas,
		},
		&TypedStage[[]pointcloud.AreaData, *SplitManifest]{
			StageName: StageSplits,
			File:      ManifestFile(testArea),
			ComputeFn: func(_ context.Context, in []pointcloud.AreaData, _ Results) (*SplitManifest, error) {
				return buildManifest(in, testArea)
			},
			EncodeFn: func(m *SplitManifest) ([]byte, error) { return json.MarshalIndent(m, "", "  ") },
			DecodeFn: func(data []byte) (*SplitManifest, error) {
				var m SplitManifest
				if err := json.Unmarshal(data, &m); err != nil {
					return nil, err
				}
				return &m, nil
			},
			SideFiles: func(dir string) []string {
				files := make([]string, len(pointcloud.SplitNames))
				for i, name := range pointcloud.SplitNames {
					files[i] = filepath.Join(dir, SplitFile(name, testArea))
				}
				return files
			},
			WriteSideFn: writeSplits,
		},
	}
}

// Run preprocesses into the processed directory under root and returns the
// split manifest.
func (p *Preprocessor) Run(ctx context.Context, fsys fsutil.FileSystem, root string, opts ...Option) (*SplitManifest, error) {
	pl, err := New(fsys, ProcessedDir(root), p.Stages(), opts...)
	if err != nil {
		return nil, err
	}
	res, err := pl.Run(ctx, nil)
	if err != nil {
		return nil, err
	}
	return Output[*SplitManifest](res, StageSplits)
}

func (p *Preprocessor) readAreas(ctx context.Context) (*Preprocessed, error) {
	validation := make(map[string]bool)
	for _, r := range p.cfg.GetValidationRooms() {
		validation[r] = true
	}
	keepInstance := p.cfg.GetKeepInstance()

	n := p.cfg.GetAreas()
	out := &Preprocessed{Rooms: make([][]pointcloud.Room, n), Raw: make([]*pointcloud.Scene, n)}
	for i := 0; i < n; i++ {
		area := i + 1
		names, err := p.rooms.Rooms(ctx, area)
		if err != nil {
			return nil, err
		}
		var raw []*pointcloud.Scene
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			s, err := p.rooms.ReadRoom(ctx, area, name)
			if err != nil {
				return nil, err
			}
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("area %d room %s: %w", area, name, err)
			}
			p.hooks.RoomFix(area, name, s)
			s.IsVal = make([]bool, s.Len())
			if validation[name] {
				for k := range s.IsVal {
					s.IsVal[k] = true
				}
			}
			if !keepInstance {
				s.Instance = nil
			}
			if p.hooks.PreFilter != nil && !p.hooks.PreFilter(area, name, s) {
				logging.Diagf("area %d: room %s dropped by pre-filter", area, name)
				continue
			}
			raw = append(raw, s.Clone())
			if p.hooks.PreTransform != nil {
				if s, err = p.hooks.PreTransform(area, name, s); err != nil {
					return nil, fmt.Errorf("pre-transform area %d room %s: %w", area, name, err)
				}
			}
			out.Rooms[i] = append(out.Rooms[i], pointcloud.Room{Name: name, Scene: s})
		}
		fused, err := pointcloud.Fuse(raw)
		if err != nil {
			return nil, fmt.Errorf("fuse raw area %d: %w", area, err)
		}
		fused.IsVal = nil
		out.Raw[i] = fused
	}
	return out, nil
}

// roomKey is the name validation rooms are listed under.
func roomKey(area int, room string) string {
	return fmt.Sprintf("%s/%s", AreaDir(area), room)
}

func writeRawAreas(fsys fsutil.FileSystem, dir string, out *Preprocessed) error {
	for i, s := range out.Raw {
		data, err := pointcloud.EncodeScene(s)
		if err != nil {
			return fmt.Errorf("encode raw area %d: %w", i, err)
		}
		if err := fsutil.WriteFileAtomic(fsys, filepath.Join(dir, RawAreaFile(i)), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func (p *Preprocessor) preCollate(ctx context.Context, in *Preprocessed, _ Results) ([]*pointcloud.Scene, error) {
	if in == nil {
		return nil, fmt.Errorf("pre_collate: no preprocessed rooms")
	}
	out := make([]*pointcloud.Scene, len(in.Rooms))
	for i, rooms := range in.Rooms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := pointcloud.FuseRooms(rooms)
		if err != nil {
			return nil, fmt.Errorf("fuse area %d: %w", i+1, err)
		}
		s.AssignOriginIDs()
		if p.hooks.PreCollate != nil {
			if s, err = p.hooks.PreCollate(i+1, s); err != nil {
				return nil, fmt.Errorf("pre-collate area %d: %w", i+1, err)
			}
		}
		out[i] = s
	}
	return out, nil
}

func (p *Preprocessor) imageData(ctx context.Context, scenes []*pointcloud.Scene, _ Results) ([][]pointcloud.ImageRecord, error) {
	outside := make(map[string]bool)
	for _, name := range p.cfg.GetOutsideImages() {
		outside[name] = true
	}
	out := make([][]pointcloud.ImageRecord, len(scenes))
	for i := range scenes {
		area := i + 1
		rooms, err := p.rooms.Rooms(ctx, area)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(rooms))
		for _, r := range rooms {
			known[r] = true
		}
		imgs, err := p.images.Images(ctx, area)
		if err != nil {
			return nil, err
		}
		kept := make([]pointcloud.ImageRecord, 0, len(imgs))
		for _, img := range imgs {
			if outside[img.Name] || !known[img.Room] {
				continue
			}
			img.ID = len(kept)
			kept = append(kept, img)
		}
		logging.Diagf("Area %d - %d rooms - %d images", area, len(rooms), len(kept))
		out[i] = kept
	}
	return out, nil
}

func (p *Preprocessor) mapImages(ctx context.Context, images [][]pointcloud.ImageRecord, earlier Results) ([]pointcloud.AreaData, error) {
	scenes, err := Output[[]*pointcloud.Scene](earlier, StagePreCollate)
	if err != nil {
		return nil, err
	}
	if len(scenes) != len(images) {
		return nil, fmt.Errorf("%d areas but %d image sets", len(scenes), len(images))
	}
	mappings, err := p.projector.Project(ctx, scenes, images)
	if err != nil {
		return nil, err
	}
	if len(mappings) != len(scenes) {
		return nil, fmt.Errorf("projector returned %d mappings for %d areas", len(mappings), len(scenes))
	}
	out := make([]pointcloud.AreaData, len(scenes))
	for i := range scenes {
		if err := mappings[i].Validate(scenes[i].Len()); err != nil {
			return nil, fmt.Errorf("area %d: %w", i+1, err)
		}
		out[i] = pointcloud.AreaData{Area: i + 1, Scene: scenes[i], Mapping: mappings[i], Images: images[i]}
		logging.Diagf("area %d: %d points, %d images, %d mapping entries, %d points seen",
			i+1, scenes[i].Len(), len(images[i]), mappings[i].Len(), mappings[i].PointsSeen())
	}
	return out, nil
}

func buildManifest(areas []pointcloud.AreaData, testArea int) (*SplitManifest, error) {
	splits, err := BuildSplits(areas, testArea)
	if err != nil {
		return nil, err
	}
	m := &SplitManifest{TestArea: testArea, Splits: make(map[string]SplitSummary, len(splits)), splits: splits}
	for name, sp := range splits {
		sum := SplitSummary{File: SplitFile(name, testArea), Areas: []int{}}
		for _, a := range sp.Areas {
			sum.Areas = append(sum.Areas, a.Area)
			sum.Points += a.Scene.Len()
			sum.Entries += a.Mapping.Len()
		}
		sort.Ints(sum.Areas)
		m.Splits[name] = sum
	}
	return m, nil
}

func writeSplits(fsys fsutil.FileSystem, dir string, m *SplitManifest) error {
	for _, name := range pointcloud.SplitNames {
		sp, ok := m.splits[name]
		if !ok {
			return fmt.Errorf("split %s missing from manifest", name)
		}
		data, err := pointcloud.EncodeSplit(sp)
		if err != nil {
			return fmt.Errorf("encode split %s: %w", name, err)
		}
		if err := fsutil.WriteFileAtomic(fsys, filepath.Join(dir, SplitFile(name, m.TestArea)), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

// Rooms whose orientation is rotated by 180 degrees in the raw scans.
var misorientedRooms = map[string]bool{
	"Area_2/hallway_11": true,
	"Area_5/hallway_6":  true,
}

// FixRoomOrientation rotates the known misoriented rooms by 180 degrees
// about the vertical axis through their XY centre.
func FixRoomOrientation(area int, room string, s *pointcloud.Scene) {
	if !misorientedRooms[roomKey(area, room)] || s.Len() == 0 {
		return
	}
	lo, hi, _ := s.Bounds()
	cx := (lo[0] + hi[0]) / 2
	cy := (lo[1] + hi[1]) / 2
	for i, p := range s.Pos {
		s.Pos[i] = pointcloud.Vec3{2*cx - p[0], 2*cy - p[1], p[2]}
	}
}
