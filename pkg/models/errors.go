package models

import "errors"

// Error taxonomy shared by the engine components. Boundaries convert these
// into structured results; they never escape as panics.
var (
	// ErrNotFound means the referenced input path does not exist
	ErrNotFound = errors.New("File not found")
	// ErrDecode means a container or stream could not be read
	ErrDecode = errors.New("decode failed")
	// ErrExternalTool means the external media tool exited non-zero
	ErrExternalTool = errors.New("external tool failed")
)
