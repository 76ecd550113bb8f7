package registry

import (
	"errors"
	"fmt"
)

// ModelNotFoundError reports an identifier with no artifact in the models
// directory.
type ModelNotFoundError struct{ ID string }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.ID }

// IsModelNotFound reports whether err indicates a missing model id.
func IsModelNotFound(err error) bool {
	var t *ModelNotFoundError
	return errors.As(err, &t)
}

// ModelLoadError reports an artifact that exists but could not be loaded.
type ModelLoadError struct {
	ID  string
	Err error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("model load failed: %s: %v", e.ID, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// IsModelLoad reports whether err indicates a failed model load.
func IsModelLoad(err error) bool {
	var t *ModelLoadError
	return errors.As(err, &t)
}
