// Package pipeline runs the staged, cached preprocessing that turns raw
// per-room point clouds and image poses into split artifacts.
//
// A Pipeline is a linear list of stages, each persisted as one artifact
// (plus optional side outputs) in a cache directory. Before running, the
// first stage whose files are missing invalidates every later stage so a
// stale downstream artifact is never loaded. Present stages are decoded;
// missing ones are computed and written atomically.
//
// The multimodal stages (preprocessed, pre_collate, image_data,
// pre_transform_image, splits) are assembled by Preprocessor from three
// collaborators: a RoomReader, an ImageExtractor and a Projector.
//
// One preprocessing run per cache directory at a time.
package pipeline
