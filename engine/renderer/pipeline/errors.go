package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidCacheSize is returned by SetMaxCacheSize and NewResolver for sizes below 1.
var ErrInvalidCacheSize = errors.New("pipeline: cache size must be at least 1")

// ConfigurationError reports a pipeline that cannot be built because something it needs is
// missing or unusable: an unknown shader or include, an uncatalogued bind group layout, or a
// vertex layout or entry point the shader cannot provide. It is never retried.
type ConfigurationError struct {
	// Key is the string form of the key being resolved.
	Key string

	// Stage names the build step that failed, e.g. "shader" or "bind group layouts".
	Stage string

	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline %s: %s: %v", e.Key, e.Stage, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
