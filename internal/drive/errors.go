package drive

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy for all drive operations. Callers dispatch with errors.Is;
// wrapped messages carry the operation and target for context.
var (
	// ErrInvalidName is returned for empty, blank, or forbidden-character names.
	ErrInvalidName = errors.New("invalid name")

	// ErrNotFound is returned when a referenced entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrQuotaExceeded is returned by the quota gate before any mutation.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// ErrIOFailure is returned for underlying read/write/copy/delete failures.
	ErrIOFailure = errors.New("i/o failure")

	// ErrPreviewUnavailable is returned when a classified file cannot be read
	// for preview.
	ErrPreviewUnavailable = errors.New("preview unavailable")
)

// PartialDeleteError reports a recursive delete that removed some entries but
// not all. It wraps ErrIOFailure so callers can treat it as an I/O failure
// while still seeing exactly what was and was not removed.
type PartialDeleteError struct {
	Target    string   // name the delete was invoked on
	Removed   []string // paths removed before the failure, relative to the target
	Remaining []string // paths that could not be removed
	Cause     error    // first underlying failure
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("delete %s: removed %d, could not remove %s: %v",
		e.Target, len(e.Removed), strings.Join(e.Remaining, ", "), e.Cause)
}

func (e *PartialDeleteError) Unwrap() error { return ErrIOFailure }
