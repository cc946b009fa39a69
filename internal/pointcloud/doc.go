// Package pointcloud owns the in-memory data model shared by every stage of
// the multimodal preprocessing and sampling flow.
//
// Responsibilities: Scene and Mapping types, point selection, restriction of
// an image mapping to a point subset, area fusion and artifact encoding.
// Key types: Scene, Mapping, Observation, ImageRecord, AreaData, Split.
//
// Dependency rule: this package sits at the bottom of the module. It must not
// import spatial, sampling, pipeline or dataset.
package pointcloud
