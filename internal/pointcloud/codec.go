package pointcloud

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"

	"github.com/x448/float16"
)

// Artifacts are gob streams wrapped in gzip. Colours are stored as float16
// bit patterns: they are normalised to [0, 1] and half precision still
// round-trips 8-bit colour while halving the colour payload.

type wireScene struct {
	N        int
	Pos      []Vec3
	RGB      []uint16
	Label    []int
	IsVal    []bool
	Instance []int
	OriginID []int
	Extra    map[string][]float64

	HasRGB, HasLabel, HasIsVal, HasInstance, HasOriginID bool
}

type wireMapping struct {
	Present bool
	Point   []int
	Obs     []Observation
}

type wireArea struct {
	Area    int
	Scene   wireScene
	Mapping wireMapping
	Images  []ImageRecord
}

type wireRoom struct {
	Name  string
	Scene wireScene
}

type wireSplit struct {
	Name     string
	TestArea int
	Areas    []wireArea
}

func toWireScene(s *Scene) wireScene {
	if s == nil {
		return wireScene{}
	}
	w := wireScene{
		N:           s.Len(),
		Pos:         s.Pos,
		Label:       s.Label,
		IsVal:       s.IsVal,
		Instance:    s.Instance,
		OriginID:    s.OriginID,
		Extra:       s.Extra,
		HasRGB:      s.RGB != nil,
		HasLabel:    s.Label != nil,
		HasIsVal:    s.IsVal != nil,
		HasInstance: s.Instance != nil,
		HasOriginID: s.OriginID != nil,
	}
	if s.RGB != nil {
		w.RGB = make([]uint16, 0, 3*len(s.RGB))
		for _, c := range s.RGB {
			w.RGB = append(w.RGB,
				float16.Fromfloat32(c[0]).Bits(),
				float16.Fromfloat32(c[1]).Bits(),
				float16.Fromfloat32(c[2]).Bits())
		}
	}
	return w
}

// fromWireScene restores empty-but-present attributes, which gob flattens to
// nil, so that a decoded scene validates like the encoded one.
func fromWireScene(w wireScene) (*Scene, error) {
	s := &Scene{
		Pos:      w.Pos,
		Label:    w.Label,
		IsVal:    w.IsVal,
		Instance: w.Instance,
		OriginID: w.OriginID,
		Extra:    w.Extra,
	}
	if s.Pos == nil {
		s.Pos = []Vec3{}
	}
	if w.HasRGB {
		if len(w.RGB) != 3*w.N {
			return nil, fmt.Errorf("decode scene: %d colour values for %d points", len(w.RGB), w.N)
		}
		s.RGB = make([][3]float32, w.N)
		for i := range s.RGB {
			s.RGB[i] = [3]float32{
				float16.Frombits(w.RGB[3*i]).Float32(),
				float16.Frombits(w.RGB[3*i+1]).Float32(),
				float16.Frombits(w.RGB[3*i+2]).Float32(),
			}
		}
	}
	if w.HasLabel && s.Label == nil {
		s.Label = []int{}
	}
	if w.HasIsVal && s.IsVal == nil {
		s.IsVal = []bool{}
	}
	if w.HasInstance && s.Instance == nil {
		s.Instance = []int{}
	}
	if w.HasOriginID && s.OriginID == nil {
		s.OriginID = []int{}
	}
	for k, v := range s.Extra {
		if v == nil {
			s.Extra[k] = []float64{}
		}
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("decode scene: %w", err)
	}
	return s, nil
}

func toWireMapping(m *Mapping) wireMapping {
	if m == nil {
		return wireMapping{}
	}
	return wireMapping{Present: true, Point: m.Point, Obs: m.Obs}
}

func fromWireMapping(w wireMapping) *Mapping {
	if !w.Present {
		return nil
	}
	m := &Mapping{Point: w.Point, Obs: w.Obs}
	if m.Point == nil {
		m.Point = []int{}
	}
	if m.Obs == nil {
		m.Obs = []Observation{}
	}
	return m
}

func toWireArea(a AreaData) wireArea {
	return wireArea{
		Area:    a.Area,
		Scene:   toWireScene(a.Scene),
		Mapping: toWireMapping(a.Mapping),
		Images:  a.Images,
	}
}

func fromWireArea(w wireArea) (AreaData, error) {
	s, err := fromWireScene(w.Scene)
	if err != nil {
		return AreaData{}, fmt.Errorf("area %d: %w", w.Area, err)
	}
	m := fromWireMapping(w.Mapping)
	if err := m.Validate(s.Len()); err != nil {
		return AreaData{}, fmt.Errorf("area %d: %w", w.Area, err)
	}
	return AreaData{Area: w.Area, Scene: s, Mapping: m, Images: w.Images}, nil
}

func encodeBlob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(v); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeBlob(blob []byte, v interface{}) error {
	if len(blob) == 0 {
		return fmt.Errorf("empty artifact blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gz.Close()
	if err := gob.NewDecoder(gz).Decode(v); err != nil {
		return fmt.Errorf("failed to decode artifact: %w", err)
	}
	return nil
}

// EncodeScene serialises a single scene.
func EncodeScene(s *Scene) ([]byte, error) {
	return encodeBlob(toWireScene(s))
}

// DecodeScene restores a scene written by EncodeScene.
func DecodeScene(blob []byte) (*Scene, error) {
	var w wireScene
	if err := decodeBlob(blob, &w); err != nil {
		return nil, err
	}
	return fromWireScene(w)
}

// EncodeScenes serialises one scene per area.
func EncodeScenes(scenes []*Scene) ([]byte, error) {
	w := make([]wireScene, len(scenes))
	for i, s := range scenes {
		w[i] = toWireScene(s)
	}
	return encodeBlob(w)
}

// DecodeScenes restores scenes written by EncodeScenes.
func DecodeScenes(blob []byte) ([]*Scene, error) {
	var w []wireScene
	if err := decodeBlob(blob, &w); err != nil {
		return nil, err
	}
	out := make([]*Scene, len(w))
	for i := range w {
		s, err := fromWireScene(w[i])
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// EncodeRooms serialises the rooms of every area.
func EncodeRooms(areas [][]Room) ([]byte, error) {
	w := make([][]wireRoom, len(areas))
	for i, rooms := range areas {
		w[i] = make([]wireRoom, len(rooms))
		for j, r := range rooms {
			w[i][j] = wireRoom{Name: r.Name, Scene: toWireScene(r.Scene)}
		}
	}
	return encodeBlob(w)
}

// DecodeRooms restores rooms written by EncodeRooms.
func DecodeRooms(blob []byte) ([][]Room, error) {
	var w [][]wireRoom
	if err := decodeBlob(blob, &w); err != nil {
		return nil, err
	}
	out := make([][]Room, len(w))
	for i := range w {
		out[i] = make([]Room, len(w[i]))
		for j, wr := range w[i] {
			s, err := fromWireScene(wr.Scene)
			if err != nil {
				return nil, fmt.Errorf("area %d room %s: %w", i, wr.Name, err)
			}
			out[i][j] = Room{Name: wr.Name, Scene: s}
		}
	}
	return out, nil
}

// EncodeImageSets serialises the image records of every area.
func EncodeImageSets(sets [][]ImageRecord) ([]byte, error) {
	return encodeBlob(sets)
}

// DecodeImageSets restores image records written by EncodeImageSets.
func DecodeImageSets(blob []byte) ([][]ImageRecord, error) {
	var sets [][]ImageRecord
	if err := decodeBlob(blob, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// EncodeAreas serialises per-area multimodal data.
func EncodeAreas(areas []AreaData) ([]byte, error) {
	w := make([]wireArea, len(areas))
	for i, a := range areas {
		w[i] = toWireArea(a)
	}
	return encodeBlob(w)
}

// DecodeAreas restores per-area data written by EncodeAreas.
func DecodeAreas(blob []byte) ([]AreaData, error) {
	var w []wireArea
	if err := decodeBlob(blob, &w); err != nil {
		return nil, err
	}
	out := make([]AreaData, len(w))
	for i := range w {
		a, err := fromWireArea(w[i])
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// EncodeSplit serialises a split artifact.
func EncodeSplit(sp *Split) ([]byte, error) {
	w := wireSplit{Name: sp.Name, TestArea: sp.TestArea, Areas: make([]wireArea, len(sp.Areas))}
	for i, a := range sp.Areas {
		w.Areas[i] = toWireArea(a)
	}
	return encodeBlob(w)
}

// DecodeSplit restores a split written by EncodeSplit.
func DecodeSplit(blob []byte) (*Split, error) {
	var w wireSplit
	if err := decodeBlob(blob, &w); err != nil {
		return nil, err
	}
	sp := &Split{Name: w.Name, TestArea: w.TestArea, Areas: make([]AreaData, len(w.Areas))}
	for i := range w.Areas {
		a, err := fromWireArea(w.Areas[i])
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", w.Name, err)
		}
		sp.Areas[i] = a
	}
	return sp, nil
}
