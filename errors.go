package asar

import "errors"

// Sentinel errors returned by the codec.
var (
	// ErrMalformedHeader is returned when a container's preamble or JSON
	// header violates the format invariants.
	ErrMalformedHeader = errors.New("asar: malformed header")

	// ErrHashMismatch is returned when file content does not match its
	// integrity record.
	ErrHashMismatch = errors.New("asar: hash mismatch")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("asar: size overflow")

	// ErrClosed is returned when an operation is attempted on a closed
	// archive.
	ErrClosed = errors.New("asar: archive closed")
)

// Precondition failures are reported through the io/fs sentinels so callers
// can use errors.Is: opening a missing container wraps fs.ErrNotExist,
// extracting onto an existing destination wraps fs.ErrExist, and permission
// failures from the OS pass through wrapping fs.ErrPermission.
