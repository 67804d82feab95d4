package crop

import "errors"

var (
	// ErrNotReady is returned when an operation needs a loaded image and the
	// session has none, or when it is in a state that does not accept it.
	ErrNotReady = errors.New("crop session not ready")
	// ErrRasterizationFailed is returned when drawing or encoding the output fails.
	ErrRasterizationFailed = errors.New("rasterization failed")
	// ErrCancelled is returned when the session was cancelled before a
	// result could be delivered.
	ErrCancelled = errors.New("crop session cancelled")
	// ErrLoadFailed is returned when the source image cannot be fetched or decoded.
	ErrLoadFailed = errors.New("failed to load source image")
)
