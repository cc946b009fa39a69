// Package spatial holds the geometric building blocks used by the
// samplers: a k-d tree index over scene positions, integer grid cells, and
// voxel downsampling with dominant labels.
//
// An Index is derived from a scene and never persisted. It is built once per
// loaded scene and is safe for concurrent readers.
package spatial
