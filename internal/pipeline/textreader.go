package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/security"
)

// TextRoomReader reads rooms laid out as Area_<i>/<room>/<room>.txt. Each
// line holds "x y z r g b label" with an optional trailing instance id;
// colours are 0..255. Blank lines and lines starting with # are skipped.
type TextRoomReader struct {
	FS fs.FS
}

// AreaDir is the directory of area (1-based) in the raw layout.
func AreaDir(area int) string {
	return fmt.Sprintf("Area_%d", area)
}

// Rooms lists the room directories of area in lexical order.
func (r TextRoomReader) Rooms(ctx context.Context, area int) ([]string, error) {
	entries, err := fs.ReadDir(r.FS, AreaDir(area))
	if err != nil {
		return nil, fmt.Errorf("list rooms of area %d: %w", area, err)
	}
	var rooms []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		rooms = append(rooms, e.Name())
	}
	return rooms, nil
}

// ReadRoom parses one room file.
func (r TextRoomReader) ReadRoom(ctx context.Context, area int, room string) (*pointcloud.Scene, error) {
	name := path.Join(AreaDir(area), room, room+".txt")
	if err := security.ValidateRelativePath(name); err != nil {
		return nil, err
	}
	f, err := r.FS.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open room %s: %w", name, err)
	}
	defer f.Close()

	s := &pointcloud.Scene{Pos: []pointcloud.Vec3{}, RGB: [][3]float32{}, Label: []int{}}
	cols := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if line%100000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 7 && len(fields) != 8 {
			return nil, fmt.Errorf("%s:%d: want 7 or 8 columns, got %d", name, line, len(fields))
		}
		if cols == 0 {
			cols = len(fields)
			if cols == 8 {
				s.Instance = []int{}
			}
		} else if len(fields) != cols {
			return nil, fmt.Errorf("%s:%d: %d columns after %d-column lines", name, line, len(fields), cols)
		}

		var v [6]float64
		for i := 0; i < 6; i++ {
			v[i], err = strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: column %d: %w", name, line, i+1, err)
			}
		}
		label, err := strconv.Atoi(fields[6])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: label: %w", name, line, err)
		}
		s.Pos = append(s.Pos, pointcloud.Vec3{v[0], v[1], v[2]})
		s.RGB = append(s.RGB, [3]float32{float32(v[3] / 255), float32(v[4] / 255), float32(v[5] / 255)})
		s.Label = append(s.Label, label)
		if cols == 8 {
			inst, err := strconv.Atoi(fields[7])
			if err != nil {
				return nil, fmt.Errorf("%s:%d: instance: %w", name, line, err)
			}
			s.Instance = append(s.Instance, inst)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read room %s: %w", name, err)
	}
	return s, nil
}
