package spatial

import (
	"math"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// CellKey addresses one cube of a regular grid.
type CellKey struct {
	X, Y, Z int64
}

// CellOf returns the grid cell of side size containing p. size must be > 0.
func CellOf(p pointcloud.Vec3, size float64) CellKey {
	inv := 1.0 / size
	return CellKey{
		X: int64(math.Floor(p[0] * inv)),
		Y: int64(math.Floor(p[1] * inv)),
		Z: int64(math.Floor(p[2] * inv)),
	}
}

// Less orders keys by X, then Y, then Z.
func (k CellKey) Less(o CellKey) bool {
	if k.X != o.X {
		return k.X < o.X
	}
	if k.Y != o.Y {
		return k.Y < o.Y
	}
	return k.Z < o.Z
}

// Center returns the geometric centre of the cell.
func (k CellKey) Center(size float64) pointcloud.Vec3 {
	return pointcloud.Vec3{
		(float64(k.X) + 0.5) * size,
		(float64(k.Y) + 0.5) * size,
		(float64(k.Z) + 0.5) * size,
	}
}
