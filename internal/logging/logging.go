// Package logging routes the module's log output into three streams of
// increasing volume: ops for stage lifecycle and failures, diag for per-area
// and per-label statistics, and trace for one line per drawn sample.
//
// Every stream starts disabled. The CLI enables them from its flags.
package logging

import (
	"io"
	"log"
	"sync"
)

// Stream selects one of the log streams.
type Stream int

const (
	Ops Stream = iota
	Diag
	Trace
	numStreams
)

var streamNames = [numStreams]string{"ops", "diag", "trace"}

func (s Stream) String() string {
	if s < 0 || s >= numStreams {
		return "unknown"
	}
	return streamNames[s]
}

// Prefix starts every line written by this package.
const Prefix = "[mmscene] "

// Writers names the destination of each stream. A nil writer disables the
// stream.
type Writers struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	mu      sync.RWMutex
	loggers [numStreams]*log.Logger
)

// SetWriters replaces the destination of all three streams.
func SetWriters(w Writers) {
	next := [numStreams]*log.Logger{}
	for s, dst := range [numStreams]io.Writer{w.Ops, w.Diag, w.Trace} {
		if dst != nil {
			next[s] = log.New(dst, Prefix, log.LstdFlags|log.Lmicroseconds)
		}
	}
	mu.Lock()
	loggers = next
	mu.Unlock()
}

// Enabled reports whether s currently has a destination.
func Enabled(s Stream) bool {
	return current(s) != nil
}

func current(s Stream) *log.Logger {
	if s < 0 || s >= numStreams {
		return nil
	}
	mu.RLock()
	defer mu.RUnlock()
	return loggers[s]
}

// Printf writes one line to stream s. It is a no-op while s is disabled.
func Printf(s Stream, format string, args ...interface{}) {
	if l := current(s); l != nil {
		l.Printf(format, args...)
	}
}

// Opsf logs stage lifecycle events, invalidations and failures.
func Opsf(format string, args ...interface{}) { Printf(Ops, format, args...) }

// Diagf logs per-area counts and label weights.
func Diagf(format string, args ...interface{}) { Printf(Diag, format, args...) }

// Tracef logs per-sample telemetry.
func Tracef(format string, args ...interface{}) { Printf(Trace, format, args...) }
