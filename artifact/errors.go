package artifact

import "errors"

// ErrNotFound indicates the requested artifact does not exist in the
// workflow directory (nor, for shared types, in the parent's).
var ErrNotFound = errors.New("artifact not found")

// ErrCorrupted indicates an artifact file exists but does not decode as a
// valid artifact envelope.
var ErrCorrupted = errors.New("artifact corrupted")
