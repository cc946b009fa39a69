// Package monitoring exposes the process-wide diagnostic logger and the
// Prometheus collectors for preprocessing and dataset loading.
package monitoring

import (
	"io"
	"log"
)

// Logf receives non-fatal problems that have no caller to return to, such
// as a run catalog that stopped accepting records or a metrics file that
// could not be written. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil f mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetLogWriter sends Logf output to w with the given line prefix. A nil w
// mutes it.
func SetLogWriter(w io.Writer, prefix string) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, prefix, log.LstdFlags).Printf)
}
