// Package catalog keeps a SQLite history of preprocessing runs: which
// stages were loaded or computed, how long they took and how large their
// artifacts were. It implements pipeline.Recorder.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/mmscene/internal/pipeline"
	"github.com/banshee-data/mmscene/internal/timeutil"
)

// Run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one recorded preprocessing run.
type Run struct {
	ID         string    `json:"run_id"`
	CacheDir   string    `json:"cache_dir"`
	TestArea   int       `json:"test_area"`
	Version    string    `json:"version"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"` // zero while running
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Catalog is a run history backed by SQLite.
type Catalog struct {
	db    *sql.DB
	clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

// Open opens (or creates) the catalog at path. Call MigrateUp before use.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", p, err)
		}
	}
	return &Catalog{db: db, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for run timestamps.
func (c *Catalog) SetClock(clock timeutil.Clock) { c.clock = clock }

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// BeginRun inserts a running run and returns its id.
func (c *Catalog) BeginRun(ctx context.Context, info pipeline.RunInfo) (string, error) {
	id := uuid.New().String()
	err := retryOnBusy(func() error {
		_, err := c.db.ExecContext(ctx, `
			INSERT INTO preprocess_runs (run_id, cache_dir, test_area, version, started_at, status)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, info.CacheDir, info.TestArea, info.Version, c.clock.Now().UnixNano(), StatusRunning)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// RecordStage appends a stage outcome to run runID.
func (c *Catalog) RecordStage(ctx context.Context, runID string, rec pipeline.StageRecord) error {
	err := retryOnBusy(func() error {
		_, err := c.db.ExecContext(ctx, `
			INSERT INTO preprocess_stages (run_id, seq, stage, artifact, outcome, bytes, started_at, duration_ns, error)
			VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM preprocess_stages WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?)`,
			runID, runID, rec.Stage, rec.Artifact, rec.Outcome, rec.Bytes,
			rec.Started.UnixNano(), rec.Duration.Nanoseconds(), rec.Err)
		return err
	})
	if err != nil {
		return fmt.Errorf("record stage %s: %w", rec.Stage, err)
	}
	return nil
}

// FinishRun marks run runID as succeeded, or failed when runErr is set.
func (c *Catalog) FinishRun(ctx context.Context, runID string, runErr error) error {
	status, msg := StatusSucceeded, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	var res sql.Result
	err := retryOnBusy(func() error {
		var err error
		res, err = c.db.ExecContext(ctx, `
			UPDATE preprocess_runs SET finished_at = ?, status = ?, error = ?
			WHERE run_id = ?`,
			c.clock.Now().UnixNano(), status, msg, runID)
		return err
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 means no limit.
func (c *Catalog) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, cache_dir, test_area, version, started_at, finished_at, status, error
		FROM preprocess_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.CacheDir, &r.TestArea, &r.Version, &started, &finished, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(0, started).UTC()
		if finished.Valid {
			r.FinishedAt = time.Unix(0, finished.Int64).UTC()
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// StagesForRun returns the stage outcomes of run runID in execution order.
func (c *Catalog) StagesForRun(ctx context.Context, runID string) ([]pipeline.StageRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT stage, artifact, outcome, bytes, started_at, duration_ns, error
		FROM preprocess_stages
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pipeline.StageRecord
	for rows.Next() {
		var (
			rec      pipeline.StageRecord
			started  int64
			duration int64
		)
		if err := rows.Scan(&rec.Stage, &rec.Artifact, &rec.Outcome, &rec.Bytes, &started, &duration, &rec.Err); err != nil {
			return nil, err
		}
		rec.Started = time.Unix(0, started).UTC()
		rec.Duration = time.Duration(duration)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// retryOnBusy retries f while another writer holds the database lock.
func retryOnBusy(f func() error) error {
	var err error
	delay := 10 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		if err = f(); err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(delay)
		delay *= 2
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
