package fileserver

import "errors"

// Sentinel errors for resolution and cache failures.
var (
	// ErrNotFound is returned when a URI resolves to no servable file.
	ErrNotFound = errors.New("fileserver: not found")

	// ErrOutsideRoot is returned when a canonicalized path escapes the
	// served-files root.
	ErrOutsideRoot = errors.New("fileserver: path outside root")

	// ErrNoRoot is returned when a root-directory rule maps a URI prefix
	// to an empty root, disabling the subtree.
	ErrNoRoot = errors.New("fileserver: no root directory")

	// ErrEntryInvalidated is returned when acquiring a cache entry that
	// has been invalidated.
	ErrEntryInvalidated = errors.New("fileserver: cache entry invalidated")
)
