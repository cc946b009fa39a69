package pipeline

import (
	"context"

	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// RoomReader reads the raw rooms of an area. Areas are numbered from 1.
type RoomReader interface {
	// Rooms lists the room names of area in a stable order.
	Rooms(ctx context.Context, area int) ([]string, error)
	// ReadRoom returns the points of one room, colours normalised to [0, 1].
	ReadRoom(ctx context.Context, area int, room string) (*pointcloud.Scene, error)
}

// ImageExtractor lists the image records of an area. Areas are numbered
// from 1.
type ImageExtractor interface {
	Images(ctx context.Context, area int) ([]pointcloud.ImageRecord, error)
}

// Projector computes, for every area, the mapping from its points to its
// images. scenes and images are indexed by area position.
type Projector interface {
	Project(ctx context.Context, scenes []*pointcloud.Scene, images [][]pointcloud.ImageRecord) ([]*pointcloud.Mapping, error)
}
