package pipeline

import (
	"context"
	"time"
)

// Stage outcomes reported to metrics and the Recorder.
const (
	OutcomeLoaded   = "loaded"
	OutcomeComputed = "computed"
	OutcomeFailed   = "failed"
)

// RunInfo describes one pipeline run for the Recorder.
type RunInfo struct {
	CacheDir string
	TestArea int
	Version  string
}

// StageRecord is the outcome of one stage within a run.
type StageRecord struct {
	Stage    string
	Artifact string
	Outcome  string
	Bytes    int
	Started  time.Time
	Duration time.Duration
	Err      string
}

// Recorder persists run history. Recorder failures are logged and never
// abort a run.
type Recorder interface {
	BeginRun(ctx context.Context, info RunInfo) (string, error)
	RecordStage(ctx context.Context, runID string, rec StageRecord) error
	FinishRun(ctx context.Context, runID string, runErr error) error
}

type nopRecorder struct{}

func (nopRecorder) BeginRun(context.Context, RunInfo) (string, error) { return "", nil }
func (nopRecorder) RecordStage(context.Context, string, StageRecord) error { return nil }
func (nopRecorder) FinishRun(context.Context, string, error) error { return nil }
