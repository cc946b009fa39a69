package pipeline

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/mmscene/internal/config"
	"github.com/banshee-data/mmscene/internal/fsutil"
	"github.com/banshee-data/mmscene/internal/pointcloud"
)

const root = "/data/s3dis"

func rawRooms() fstest.MapFS {
	return fstest.MapFS{
		"Area_1/office_1/office_1.txt": {Data: []byte(
			"0 0 0 255 0 0 0\n1 0 0 0 255 0 1\n0 1 0 0 0 255 2\n1 1 1 255 255 255 2\n")},
		"Area_1/hallway_2/hallway_2.txt": {Data: []byte(
			"5 5 0 10 10 10 1\n6 5 0 10 10 10 1\n5 6 0 10 10 10 3\n")},
		"Area_2/office_3/office_3.txt": {Data: []byte(
			"0 0 0 0 0 0 0\n2 0 0 0 0 0 0\n0 2 0 0 0 0 4\n")},
	}
}

func rawImages() fstest.MapFS {
	return fstest.MapFS{
		"Area_1/images.json": {Data: []byte(`{"images": [
			{"path": "pano/cam1.png", "room": "office_1", "position": [0.5, 0.5, 0.5]},
			{"path": "pano/outside_cam.png", "room": "hallway_2", "position": [5, 5, 1]},
			{"path": "pano/ghost.png", "room": "lab_9", "position": [0, 0, 1]}
		]}`)},
		"Area_2/images.json": {Data: []byte(`{"images": [
			{"path": "pano/cam2.png", "room": "office_3", "position": [1, 1, 1]}
		]}`)},
	}
}

func testConfig(testArea int) *config.DatasetConfig {
	areas := 2
	return &config.DatasetConfig{
		Areas:           &areas,
		TestArea:        &testArea,
		ImgRefSize:      []int{100, 50},
		ValidationRooms: []string{"office_1"},
		OutsideImages:   []string{"outside_cam"},
	}
}

// countingReader counts room reads.
type countingReader struct {
	RoomReader
	reads int
}

func (r *countingReader) ReadRoom(ctx context.Context, area int, room string) (*pointcloud.Scene, error) {
	r.reads++
	return r.RoomReader.ReadRoom(ctx, area, room)
}

func newPreprocessor(t *testing.T, cfg *config.DatasetConfig, rooms RoomReader, hooks Hooks) *Preprocessor {
	t.Helper()
	w, h := cfg.GetImgRefSize()
	p, err := NewPreprocessor(cfg, rooms,
		ManifestImageExtractor{FS: rawImages(), RefWidth: w, RefHeight: h},
		EquirectProjector{MaxDepth: cfg.GetMaxDepth()}, hooks)
	require.NoError(t, err)
	return p
}

func readSplit(t *testing.T, fsys fsutil.FileSystem, name string, testArea int) *pointcloud.Split {
	t.Helper()
	data, err := fsys.ReadFile(filepath.Join(ProcessedDir(root), SplitFile(name, testArea)))
	require.NoError(t, err)
	sp, err := pointcloud.DecodeSplit(data)
	require.NoError(t, err)
	return sp
}

func TestPreprocessor_EndToEnd(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	reader := &countingReader{RoomReader: TextRoomReader{FS: rawRooms()}}
	p := newPreprocessor(t, testConfig(2), reader, Hooks{})

	m, err := p.Run(context.Background(), fsys, root)
	require.NoError(t, err)
	assert.Equal(t, 3, reader.reads)

	assert.Equal(t, 2, m.TestArea)
	assert.Equal(t, map[string]SplitSummary{
		"train":    {File: "train_2.gob.gz", Areas: []int{1}, Points: 3, Entries: 3},
		"val":      {File: "val_2.gob.gz", Areas: []int{1}, Points: 4, Entries: 4},
		"test":     {File: "test_2.gob.gz", Areas: []int{2}, Points: 3, Entries: 3},
		"trainval": {File: "trainval_2.gob.gz", Areas: []int{1}, Points: 7, Entries: 7},
	}, m.Splits)

	dir := ProcessedDir(root)
	for _, f := range []string{
		"preprocessed.gob.gz", "pre_collate.gob.gz", "image_data.gob.gz", "pre_transform_image.gob.gz",
		"raw_area_0.gob.gz", "raw_area_1.gob.gz", "splits_2.json",
		"train_2.gob.gz", "val_2.gob.gz", "test_2.gob.gz", "trainval_2.gob.gz",
	} {
		assert.True(t, fsys.Exists(filepath.Join(dir, f)), f)
	}

	// Rooms are fused in lexical order: hallway_2 then office_1.
	val := readSplit(t, fsys, "val", 2)
	require.Len(t, val.Areas, 1)
	a := val.Areas[0]
	assert.Equal(t, 1, a.Area)
	assert.Equal(t, []int{3, 4, 5, 6}, a.Scene.OriginID)
	assert.Equal(t, []int{0, 1, 2, 2}, a.Scene.Label)
	assert.Nil(t, a.Scene.IsVal)
	require.Len(t, a.Images, 1)
	assert.Equal(t, "cam1", a.Images[0].Name)
	assert.Equal(t, 0, a.Images[0].ID)

	// Every entry still points at the point it was computed for.
	require.NoError(t, a.Mapping.Validate(a.Scene.Len()))
	for k, pt := range a.Mapping.Point {
		cam := a.Images[a.Mapping.Obs[k].ImageID].Position
		d := a.Scene.Pos[pt].Dist2(cam)
		assert.InDelta(t, d, float64(a.Mapping.Obs[k].Depth*a.Mapping.Obs[k].Depth), 1e-4)
	}

	train := readSplit(t, fsys, "train", 2)
	assert.Equal(t, []int{0, 1, 2}, train.Areas[0].Scene.OriginID)
	assert.Equal(t, []int{1, 1, 3}, train.Areas[0].Scene.Label)

	test := readSplit(t, fsys, "test", 2)
	assert.Equal(t, 2, test.Areas[0].Area)
	assert.Nil(t, test.Areas[0].Scene.IsVal)

	data, err := fsys.ReadFile(filepath.Join(dir, RawAreaFile(0)))
	require.NoError(t, err)
	raw, err := pointcloud.DecodeScene(data)
	require.NoError(t, err)
	assert.Equal(t, 7, raw.Len())
	assert.Nil(t, raw.IsVal)
	assert.Nil(t, raw.OriginID)

	var onDisk SplitManifest
	data, err = fsys.ReadFile(filepath.Join(dir, ManifestFile(2)))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, m.Splits, onDisk.Splits)
}

func TestPreprocessor_NewTestAreaReusesIntermediates(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	reader := &countingReader{RoomReader: TextRoomReader{FS: rawRooms()}}
	_, err := newPreprocessor(t, testConfig(2), reader, Hooks{}).Run(context.Background(), fsys, root)
	require.NoError(t, err)

	reader.reads = 0
	m, err := newPreprocessor(t, testConfig(1), reader, Hooks{}).Run(context.Background(), fsys, root)
	require.NoError(t, err)
	assert.Equal(t, 0, reader.reads)
	assert.Equal(t, []int{1}, m.Splits["test"].Areas)
	assert.Equal(t, []int{2}, m.Splits["trainval"].Areas)
	assert.Equal(t, 1, fsys.Reads(filepath.Join(ProcessedDir(root), StageFile(StagePreTransformImage))))
	assert.True(t, fsys.Exists(filepath.Join(ProcessedDir(root), SplitFile("test", 2))))
}

func TestPreprocessor_MissingRawAreaRecomputesEverything(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	reader := &countingReader{RoomReader: TextRoomReader{FS: rawRooms()}}
	p := newPreprocessor(t, testConfig(2), reader, Hooks{})
	_, err := p.Run(context.Background(), fsys, root)
	require.NoError(t, err)

	require.NoError(t, fsys.Remove(filepath.Join(ProcessedDir(root), RawAreaFile(1))))
	reader.reads = 0
	_, err = p.Run(context.Background(), fsys, root)
	require.NoError(t, err)
	assert.Equal(t, 3, reader.reads)
	assert.Equal(t, 0, fsys.Reads(filepath.Join(ProcessedDir(root), StageFile(StagePreCollate))))
}

func TestPreprocessor_Hooks(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	var collated []int
	hooks := Hooks{
		PreFilter: func(area int, room string, s *pointcloud.Scene) bool { return room != "hallway_2" },
		PreTransform: func(area int, room string, s *pointcloud.Scene) (*pointcloud.Scene, error) {
			out := s.Clone()
			for i := range out.Pos {
				out.Pos[i][2] += 100
			}
			return out, nil
		},
		PreCollate: func(area int, s *pointcloud.Scene) (*pointcloud.Scene, error) {
			collated = append(collated, area)
			return s, nil
		},
	}
	p := newPreprocessor(t, testConfig(2), TextRoomReader{FS: rawRooms()}, hooks)
	m, err := p.Run(context.Background(), fsys, root)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, collated)
	assert.Equal(t, 0, m.Splits["train"].Points)
	assert.Equal(t, 4, m.Splits["val"].Points)
	// Points moved out of the cameras' reach.
	assert.Equal(t, 0, m.Splits["val"].Entries)

	// Raw areas are written before the pre-transform.
	data, err := fsys.ReadFile(filepath.Join(ProcessedDir(root), RawAreaFile(0)))
	require.NoError(t, err)
	raw, err := pointcloud.DecodeScene(data)
	require.NoError(t, err)
	require.Equal(t, 4, raw.Len())
	assert.Equal(t, 0.0, raw.Pos[0][2])
}

func TestPreprocessor_KeepInstance(t *testing.T) {
	rooms := fstest.MapFS{
		"Area_1/r/r.txt": {Data: []byte("0 0 0 0 0 0 1 9\n")},
		"Area_2/r/r.txt": {Data: []byte("0 0 0 0 0 0 1 8\n")},
	}
	for _, keep := range []bool{false, true} {
		cfg := testConfig(2)
		cfg.KeepInstance = &keep
		fsys := fsutil.NewMemoryFileSystem()
		_, err := newPreprocessor(t, cfg, TextRoomReader{FS: rooms}, Hooks{}).Run(context.Background(), fsys, root)
		require.NoError(t, err)
		sp := readSplit(t, fsys, "test", 2)
		if keep {
			assert.Equal(t, []int{8}, sp.Areas[0].Scene.Instance)
		} else {
			assert.Nil(t, sp.Areas[0].Scene.Instance)
		}
	}
}

func TestNewPreprocessor_Validates(t *testing.T) {
	bad := -1.0
	cfg := testConfig(2)
	cfg.Radius = &bad
	_, err := NewPreprocessor(cfg, TextRoomReader{}, ManifestImageExtractor{}, EquirectProjector{}, Hooks{})
	assert.True(t, pointcloud.IsConfigurationError(err))

	_, err = NewPreprocessor(testConfig(2), nil, ManifestImageExtractor{}, EquirectProjector{}, Hooks{})
	assert.Error(t, err)
	_, err = NewPreprocessor(nil, TextRoomReader{}, ManifestImageExtractor{}, EquirectProjector{}, Hooks{})
	assert.Error(t, err)
}

func TestFixRoomOrientation(t *testing.T) {
	s := &pointcloud.Scene{Pos: []pointcloud.Vec3{{0, 0, 1}, {2, 4, 3}, {1, 1, 0}}}
	FixRoomOrientation(2, "hallway_11", s)
	assert.Equal(t, []pointcloud.Vec3{{2, 4, 1}, {0, 0, 3}, {1, 3, 0}}, s.Pos)

	other := &pointcloud.Scene{Pos: []pointcloud.Vec3{{0, 0, 1}, {2, 4, 3}}}
	FixRoomOrientation(1, "hallway_11", other)
	assert.Equal(t, []pointcloud.Vec3{{0, 0, 1}, {2, 4, 3}}, other.Pos)

	FixRoomOrientation(5, "hallway_6", &pointcloud.Scene{})
}
