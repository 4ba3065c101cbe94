package ba2vfs

import "errors"

var (
	// ErrFormat is returned for structurally invalid or unsupported archives
	// (bad magic or version, or a count, offset or size outside the file).
	ErrFormat = errors.New("invalid or unsupported archive")

	// ErrCorrupt is returned when a member's compressed data is invalid or
	// decompresses to the wrong size.
	ErrCorrupt = errors.New("invalid or corrupt compressed data")

	// ErrSizeChanged is returned when a loose file no longer has the size it
	// had when it was indexed.
	ErrSizeChanged = errors.New("unexpected change to size of loose file")

	// ErrUnsupportedFormat is returned when a texture's DXGI format cannot be
	// written to a DDS header.
	ErrUnsupportedFormat = errors.New("unsupported DXGI format")
)
