package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/spatial"
)

// EquirectProjector maps every point within MaxDepth of a camera to the
// equirectangular pixel it falls on. It does not test occlusion: a point
// hidden behind a wall is still mapped, and consumers filter on Depth.
type EquirectProjector struct {
	MaxDepth float64
}

// Project maps each area on its own goroutine.
func (p EquirectProjector) Project(ctx context.Context, scenes []*pointcloud.Scene, images [][]pointcloud.ImageRecord) ([]*pointcloud.Mapping, error) {
	if len(scenes) != len(images) {
		return nil, fmt.Errorf("project: %d scenes but %d image sets", len(scenes), len(images))
	}
	if p.MaxDepth <= 0 {
		return nil, pointcloud.ConfigErrorf("max_depth", "must be positive, got %v", p.MaxDepth)
	}
	out := make([]*pointcloud.Mapping, len(scenes))
	g, gctx := errgroup.WithContext(ctx)
	for i := range scenes {
		g.Go(func() error {
			m, err := p.projectArea(gctx, scenes[i], images[i])
			if err != nil {
				return fmt.Errorf("area %d: %w", i+1, err)
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type projected struct {
	point int
	obs   pointcloud.Observation
}

func (p EquirectProjector) projectArea(ctx context.Context, s *pointcloud.Scene, imgs []pointcloud.ImageRecord) (*pointcloud.Mapping, error) {
	m := &pointcloud.Mapping{Point: []int{}, Obs: []pointcloud.Observation{}}
	if s.Len() == 0 || len(imgs) == 0 {
		return m, nil
	}
	idx, err := spatial.Build(s.Pos)
	if err != nil {
		return nil, err
	}

	var entries []projected
	for j, img := range imgs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if img.Width <= 0 || img.Height <= 0 {
			return nil, pointcloud.ConfigErrorf("img_ref_size", "image %s has size %dx%d", img.Name, img.Width, img.Height)
		}
		toCamera := cameraFromWorld(img.Rotation)
		cam := vec(img.Position)
		for _, k := range idx.Radius(img.Position, p.MaxDepth) {
			d := r3.Sub(vec(s.Pos[k]), cam)
			depth := r3.Norm(d)
			if depth == 0 {
				continue
			}
			x, y := equirectPixel(toCamera(d), img.Width, img.Height)
			entries = append(entries, projected{
				point: k,
				obs:   pointcloud.Observation{ImageID: j, Pixel: [2]int{x, y}, Depth: float32(depth)},
			})
		}
	}

	// Group by point; images stay in list order within a point.
	sort.SliceStable(entries, func(a, b int) bool { return entries[a].point < entries[b].point })
	m.Point = make([]int, len(entries))
	m.Obs = make([]pointcloud.Observation, len(entries))
	for k, e := range entries {
		m.Point[k] = e.point
		m.Obs[k] = e.obs
	}
	return m, nil
}

func vec(v pointcloud.Vec3) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

// cameraFromWorld inverts the world-from-camera rotation
// Rz(kappa)·Ry(phi)·Rx(omega).
func cameraFromWorld(opk pointcloud.Vec3) func(r3.Vec) r3.Vec {
	rz := r3.NewRotation(-opk[2], axisZ)
	ry := r3.NewRotation(-opk[1], axisY)
	rx := r3.NewRotation(-opk[0], axisX)
	return func(v r3.Vec) r3.Vec {
		return rx.Rotate(ry.Rotate(rz.Rotate(v)))
	}
}

// equirectPixel maps a camera-frame direction to pixel coordinates. Column
// 0 faces -X and the image centre faces +X; row 0 is straight up.
func equirectPixel(d r3.Vec, w, h int) (int, int) {
	lon := math.Atan2(d.Y, d.X)
	lat := math.Atan2(d.Z, math.Hypot(d.X, d.Y))
	x := int((lon + math.Pi) / (2 * math.Pi) * float64(w))
	y := int((math.Pi/2 - lat) / math.Pi * float64(h))
	return clamp(x, 0, w-1), clamp(y, 0, h-1)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
