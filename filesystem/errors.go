package filesystem

import "errors"

// Outcome sentinels returned by tree and buffer operations. Hosts translate
// these into their own error-reporting convention (errno, gRPC codes, etc).
var (
	// ErrExist is returned by Mkdir when the parent already has an entry
	// with the requested name.
	ErrExist = errors.New("entry already exists")

	// ErrNotFound is returned by Unlink and Rmdir when the node is not a
	// child of the supplied parent. A Lookup miss is not an error; Lookup
	// reports it through its boolean result instead.
	ErrNotFound = errors.New("entry not found")

	// ErrIsDirectory is returned when a file-only operation (unlink, link,
	// read, write) is applied to a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotDirectory is returned when a directory-only operation is
	// applied to a file.
	ErrNotDirectory = errors.New("not a directory")

	// ErrNotEmpty is returned by Rmdir for a directory that still has
	// children.
	ErrNotEmpty = errors.New("directory not empty")

	// ErrInvalidOffset is returned for negative offsets or counts.
	ErrInvalidOffset = errors.New("invalid offset")

	// ErrTooLarge is returned when a write's end offset exceeds the file
	// size bound, or capacity doubling would overflow.
	ErrTooLarge = errors.New("file too large")
)
