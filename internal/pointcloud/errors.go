package pointcloud

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when an operation needs at least one point.
	// Callers sampling spheres may recover by picking another centre.
	ErrEmptyInput = errors.New("empty input")

	// ErrSelection is returned for out-of-range or duplicated point indices.
	ErrSelection = errors.New("invalid point selection")

	// ErrMisaligned reports a mapping entry that references a point outside
	// its scene. It indicates a broken producer, not a recoverable state.
	ErrMisaligned = errors.New("mapping references a point outside its scene")
)

// ConfigurationError reports an invalid parameter (radius, resolution, test
// area) or a sampling table that cannot serve a drawn label. It is fatal.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ConfigErrorf builds a ConfigurationError for field.
func ConfigErrorf(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// CacheInconsistencyError reports a downstream stage artifact present
// without its upstream artifact. The cache must be rebuilt from scratch.
type CacheInconsistencyError struct {
	Stage    string
	Upstream string
}

func (e *CacheInconsistencyError) Error() string {
	return fmt.Sprintf("cache inconsistency: artifact for stage %q present without upstream %q", e.Stage, e.Upstream)
}
