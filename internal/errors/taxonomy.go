package errors

import "errors"

// Sentinel errors for the failure classes the habit core distinguishes.
// Callers wrap them with %w and match with errors.Is.
var (
	// ErrValidation marks input rejected before any write (e.g. an empty
	// habit name).
	ErrValidation = errors.New("validation failed")

	// ErrPermissionDenied marks a reminder operation aborted because the
	// host refused notification permission. No state changes when this is
	// returned.
	ErrPermissionDenied = errors.New("notification permission denied")

	// ErrRemoteWrite marks a best-effort store write that failed. It is
	// reported on the store's error channel, never retried automatically.
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrSeeding marks a failed default-habit batch. The batch is atomic,
	// so the empty-collection precondition still holds and the next load
	// may retry safely.
	ErrSeeding = errors.New("seeding failed")
)

// Is reports whether any error in err's chain matches target.
// Re-exported so call sites importing this package need not also import
// the stdlib errors package.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// New returns a new error with the given text.
func New(text string) error {
	return errors.New(text)
}
