package pipeline

import (
	"context"
	"fmt"

	"github.com/banshee-data/mmscene/internal/fsutil"
)

// Results holds stage outputs by stage name, computed or loaded.
type Results map[string]any

// Stage is one persisted step of a Pipeline.
type Stage interface {
	// Name identifies the stage in logs, metrics and Results.
	Name() string
	// Artifact is the primary artifact file name, relative to the cache
	// directory.
	Artifact() string
	// SideOutputs lists extra files the stage writes. A stage counts as
	// present only when its artifact and every side output exist.
	SideOutputs(dir string) []string
	// Compute produces the stage output from the previous stage's output.
	// earlier holds the outputs of every stage before this one.
	Compute(ctx context.Context, in any, earlier Results) (any, error)
	Encode(out any) ([]byte, error)
	Decode(data []byte) (any, error)
	// WriteSide persists side outputs of a freshly computed output. It runs
	// before the primary artifact is written.
	WriteSide(fsys fsutil.FileSystem, dir string, out any) error
}

// TypedStage adapts typed functions to Stage. ComputeFn, EncodeFn and
// DecodeFn are required; SideFiles and WriteSideFn are optional.
type TypedStage[In, Out any] struct {
	StageName   string
	File        string
	ComputeFn   func(ctx context.Context, in In, earlier Results) (Out, error)
	EncodeFn    func(Out) ([]byte, error)
	DecodeFn    func([]byte) (Out, error)
	SideFiles   func(dir string) []string
	WriteSideFn func(fsys fsutil.FileSystem, dir string, out Out) error
}

func (s *TypedStage[In, Out]) Name() string     { return s.StageName }
func (s *TypedStage[In, Out]) Artifact() string { return s.File }

func (s *TypedStage[In, Out]) SideOutputs(dir string) []string {
	if s.SideFiles == nil {
		return nil
	}
	return s.SideFiles(dir)
}

func (s *TypedStage[In, Out]) Compute(ctx context.Context, in any, earlier Results) (any, error) {
	var typed In
	if in != nil {
		v, ok := in.(In)
		if !ok {
			return nil, fmt.Errorf("stage %s: unexpected input type %T", s.StageName, in)
		}
		typed = v
	}
	return s.ComputeFn(ctx, typed, earlier)
}

func (s *TypedStage[In, Out]) Encode(out any) ([]byte, error) {
	v, ok := out.(Out)
	if !ok {
		return nil, fmt.Errorf("stage %s: cannot encode %T", s.StageName, out)
	}
	return s.EncodeFn(v)
}

func (s *TypedStage[In, Out]) Decode(data []byte) (any, error) {
	return s.DecodeFn(data)
}

func (s *TypedStage[In, Out]) WriteSide(fsys fsutil.FileSystem, dir string, out any) error {
	if s.WriteSideFn == nil {
		return nil
	}
	v, ok := out.(Out)
	if !ok {
		return fmt.Errorf("stage %s: cannot persist %T", s.StageName, out)
	}
	return s.WriteSideFn(fsys, dir, v)
}

// Output fetches a typed stage output from Results.
func Output[T any](r Results, stage string) (T, error) {
	var zero T
	v, ok := r[stage]
	if !ok {
		return zero, fmt.Errorf("output of stage %s not available", stage)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("output of stage %s has type %T", stage, v)
	}
	return t, nil
}
