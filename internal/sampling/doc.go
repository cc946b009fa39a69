// Package sampling chooses sphere centres and extracts the spheres.
//
// Two centre sources exist. RandomSampler draws class-balanced centres from
// a table of coarse-grid candidates and is used for training. Partition lays
// a deterministic grid over every scene and is used for validation and
// testing. Extract turns a centre into a point subset through a
// spatial.Index.
//
// Everything here reads shared state only. A RandomSampler may be used by
// many goroutines at once provided each passes its own *rand.Rand.
package sampling
