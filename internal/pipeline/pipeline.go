package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/mmscene/internal/fsutil"
	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/monitoring"
	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/security"
	"github.com/banshee-data/mmscene/internal/timeutil"
)

// Pipeline runs a linear list of cached stages in one directory.
type Pipeline struct {
	fs       fsutil.FileSystem
	dir      string
	stages   []Stage
	clock    timeutil.Clock
	recorder Recorder
	info     RunInfo
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock sets the clock used to time stages.
func WithClock(c timeutil.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithRecorder records every run and stage outcome to r.
func WithRecorder(r Recorder, info RunInfo) Option {
	return func(p *Pipeline) {
		p.recorder = r
		p.info = info
	}
}

// New returns a pipeline over stages, persisting artifacts under dir.
// Stage names and artifact names must be unique.
func New(fsys fsutil.FileSystem, dir string, stages []Stage, opts ...Option) (*Pipeline, error) {
	if fsys == nil {
		return nil, fmt.Errorf("pipeline: nil filesystem")
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("pipeline: no stages")
	}
	names := make(map[string]bool, len(stages))
	files := make(map[string]bool, len(stages))
	for _, st := range stages {
		if names[st.Name()] {
			return nil, fmt.Errorf("pipeline: duplicate stage %q", st.Name())
		}
		if files[st.Artifact()] {
			return nil, fmt.Errorf("pipeline: duplicate artifact %q", st.Artifact())
		}
		if err := security.ValidateRelativePath(st.Artifact()); err != nil {
			return nil, fmt.Errorf("pipeline: stage %s: %w", st.Name(), err)
		}
		names[st.Name()] = true
		files[st.Artifact()] = true
	}
	p := &Pipeline{
		fs:       fsys,
		dir:      dir,
		stages:   stages,
		clock:    timeutil.RealClock{},
		recorder: nopRecorder{},
		info:     RunInfo{CacheDir: dir},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dir returns the cache directory.
func (p *Pipeline) Dir() string { return p.dir }

// ArtifactPath returns the primary artifact path of st.
func (p *Pipeline) ArtifactPath(st Stage) string {
	return filepath.Join(p.dir, st.Artifact())
}

func (p *Pipeline) files(st Stage) []string {
	return append([]string{p.ArtifactPath(st)}, st.SideOutputs(p.dir)...)
}

func (p *Pipeline) present(st Stage) bool {
	for _, f := range p.files(st) {
		if !p.fs.Exists(f) {
			return false
		}
	}
	return true
}

// Invalidate finds the first stage whose files are missing and removes the
// files of every later stage. It returns the removed paths.
func (p *Pipeline) Invalidate() ([]string, error) {
	first := -1
	for i, st := range p.stages {
		if !p.present(st) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil, nil
	}
	var removed []string
	for _, st := range p.stages[first+1:] {
		for _, f := range p.files(st) {
			if !p.fs.Exists(f) {
				continue
			}
			if err := p.fs.Remove(f); err != nil {
				return removed, fmt.Errorf("invalidate %s: %w", f, err)
			}
			removed = append(removed, f)
			monitoring.InvalidatedArtifacts.Inc()
			logging.Opsf("removed %s: upstream stage %s missing", f, p.stages[first].Name())
		}
	}
	return removed, nil
}

// checkConsistency reports a later artifact that survived the scan.
func (p *Pipeline) checkConsistency() error {
	for i, st := range p.stages {
		if p.present(st) {
			continue
		}
		for _, later := range p.stages[i+1:] {
			for _, f := range p.files(later) {
				if p.fs.Exists(f) {
					return &pointcloud.CacheInconsistencyError{Stage: later.Name(), Upstream: st.Name()}
				}
			}
		}
		return nil
	}
	return nil
}

// Run loads every present stage and computes every missing one, feeding
// each stage the previous stage's output (input for the first stage). Any
// stage error aborts the run.
func (p *Pipeline) Run(ctx context.Context, input any) (Results, error) {
	if _, err := p.Invalidate(); err != nil {
		return nil, err
	}
	if err := p.checkConsistency(); err != nil {
		return nil, err
	}

	runID, err := p.recorder.BeginRun(ctx, p.info)
	recording := err == nil
	if err != nil {
		monitoring.Logf("pipeline: recorder unavailable: %v", err)
	}

	results := make(Results, len(p.stages))
	cur := input
	for _, st := range p.stages {
		out, rec, err := p.runStage(ctx, st, cur, results)
		if recording {
			if rerr := p.recorder.RecordStage(ctx, runID, rec); rerr != nil {
				monitoring.Logf("pipeline: record stage %s: %v", st.Name(), rerr)
			}
		}
		if err != nil {
			logging.Opsf("stage %s failed after %v: %v", st.Name(), rec.Duration, err)
			p.finish(ctx, recording, runID, err)
			return nil, fmt.Errorf("stage %s: %w", st.Name(), err)
		}
		logging.Opsf("stage %s %s (%d bytes) in %v", st.Name(), rec.Outcome, rec.Bytes, rec.Duration)
		results[st.Name()] = out
		cur = out
	}
	p.finish(ctx, recording, runID, nil)
	return results, nil
}

func (p *Pipeline) finish(ctx context.Context, recording bool, runID string, runErr error) {
	if !recording {
		return
	}
	// The run context may already be cancelled; the outcome still matters.
	if err := p.recorder.FinishRun(context.WithoutCancel(ctx), runID, runErr); err != nil {
		monitoring.Logf("pipeline: finish run: %v", err)
	}
}

func (p *Pipeline) runStage(ctx context.Context, st Stage, in any, earlier Results) (any, StageRecord, error) {
	start := p.clock.Now()
	rec := StageRecord{Stage: st.Name(), Artifact: p.ArtifactPath(st), Started: start}

	var (
		out any
		n   int
		err error
	)
	if p.present(st) {
		rec.Outcome = OutcomeLoaded
		out, n, err = p.load(st)
	} else {
		rec.Outcome = OutcomeComputed
		out, n, err = p.compute(ctx, st, in, earlier)
	}
	rec.Duration = p.clock.Since(start)
	rec.Bytes = n
	if err != nil {
		rec.Outcome = OutcomeFailed
		rec.Err = err.Error()
	}
	monitoring.ObserveStage(st.Name(), rec.Outcome, rec.Duration, n)
	return out, rec, err
}

func (p *Pipeline) load(st Stage) (any, int, error) {
	data, err := p.fs.ReadFile(p.ArtifactPath(st))
	if err != nil {
		return nil, 0, err
	}
	out, err := st.Decode(data)
	if err != nil {
		return nil, len(data), fmt.Errorf("decode %s: %w", st.Artifact(), err)
	}
	return out, len(data), nil
}

func (p *Pipeline) compute(ctx context.Context, st Stage, in any, earlier Results) (any, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	out, err := st.Compute(ctx, in, earlier)
	if err != nil {
		return nil, 0, err
	}
	data, err := st.Encode(out)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", st.Artifact(), err)
	}
	if err := st.WriteSide(p.fs, p.dir, out); err != nil {
		return nil, 0, fmt.Errorf("side outputs: %w", err)
	}
	if err := fsutil.WriteFileAtomic(p.fs, p.ArtifactPath(st), data, 0644); err != nil {
		return nil, 0, err
	}
	return out, len(data), nil
}

// IsCacheInconsistency reports whether err comes from a cache that needs to
// be rebuilt from scratch.
func IsCacheInconsistency(err error) bool {
	var ce *pointcloud.CacheInconsistencyError
	return errors.As(err, &ce)
}
