package pipeline

import (
	"fmt"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// BuildSplits derives the train, val, test and trainval splits from the
// per-area multimodal data. testArea (1-based) becomes the test split; the
// remaining areas form trainval. train and val select the points whose
// IsVal flag is unset and set, and carry the mapping along through the
// origin ids. IsVal is dropped from every split. areas is not modified.
func BuildSplits(areas []pointcloud.AreaData, testArea int) (map[string]*pointcloud.Split, error) {
	if testArea < 1 || testArea > len(areas) {
		return nil, pointcloud.ConfigErrorf("test_area", "must be in [1, %d], got %d", len(areas), testArea)
	}

	newSplit := func(name string) *pointcloud.Split {
		return &pointcloud.Split{Name: name, TestArea: testArea, Areas: []pointcloud.AreaData{}}
	}
	test := newSplit(pointcloud.SplitTest)
	trainval := newSplit(pointcloud.SplitTrainVal)
	train := newSplit(pointcloud.SplitTrain)
	val := newSplit(pointcloud.SplitVal)

	for i, a := range areas {
		stripped := a.Clone()
		if stripped.Scene == nil {
			stripped.Scene = &pointcloud.Scene{Pos: []pointcloud.Vec3{}}
		}
		stripped.Scene.IsVal = nil
		if i == testArea-1 {
			test.Areas = append(test.Areas, stripped)
			continue
		}
		trainval.Areas = append(trainval.Areas, stripped)

		var isVal []bool
		if a.Scene != nil {
			isVal = a.Scene.IsVal
		}
		if isVal == nil {
			isVal = make([]bool, stripped.Scene.Len())
		}
		for _, part := range []struct {
			split *pointcloud.Split
			mask  []bool
		}{
			{train, pointcloud.InvertMask(isVal)},
			{val, isVal},
		} {
			sub, err := selectByMask(stripped, part.mask)
			if err != nil {
				return nil, fmt.Errorf("split %s area %d: %w", part.split.Name, a.Area, err)
			}
			part.split.Areas = append(part.split.Areas, sub)
		}
	}

	return map[string]*pointcloud.Split{
		pointcloud.SplitTrain:    train,
		pointcloud.SplitVal:      val,
		pointcloud.SplitTest:     test,
		pointcloud.SplitTrainVal: trainval,
	}, nil
}

// selectByMask indexes the scene with mask and re-derives the mapping of
// the subset from the full mapping through the origin ids. Scenes without
// origin ids fall back to a positional restriction.
func selectByMask(a pointcloud.AreaData, mask []bool) (pointcloud.AreaData, error) {
	if len(mask) != a.Scene.Len() {
		return pointcloud.AreaData{}, fmt.Errorf("%w: mask has %d entries for %d points", pointcloud.ErrSelection, len(mask), a.Scene.Len())
	}
	out := pointcloud.AreaData{Area: a.Area}
	if a.Images != nil {
		out.Images = append([]pointcloud.ImageRecord(nil), a.Images...)
	}
	if a.Scene.OriginID == nil {
		sub, m, err := pointcloud.RestrictMask(a.Scene, mask, a.Mapping)
		if err != nil {
			return pointcloud.AreaData{}, err
		}
		out.Scene, out.Mapping = sub, m
		return out, nil
	}
	out.Scene = a.Scene.Select(pointcloud.MaskToIndices(mask))
	if a.Mapping == nil {
		return out, nil
	}
	m, err := pointcloud.RestrictByOrigin(a.Scene, a.Mapping, out.Scene)
	if err != nil {
		return pointcloud.AreaData{}, err
	}
	out.Mapping = m
	return out, nil
}
