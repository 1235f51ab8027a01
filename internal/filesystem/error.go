package filesystem

import "errors"

var (
	// ErrHashMismatch occurs when the checksum of written data does not match
	// the checksum of the data that was read.
	ErrHashMismatch = errors.New("hash mismatch")

	// ErrInvalidStats occurs when a backend reports impossible usage numbers.
	ErrInvalidStats = errors.New("invalid stats")

	// ErrNoNamenode occurs when no namenode address could be determined.
	ErrNoNamenode = errors.New("no namenode address configured")
)
