package scan

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ErrCancelled is returned by a scan that observed a cancellation request. It marks a
// terminal state rather than a failure.
var ErrCancelled = errors.New("scan cancelled")

// RootErrorReason tells why a scan root could not be scanned.
type RootErrorReason string

const (
	RootNotFound         RootErrorReason = "not found"
	RootNotDirectory     RootErrorReason = "not a directory"
	RootPermissionDenied RootErrorReason = "permission denied"
	RootInaccessible     RootErrorReason = "inaccessible"
)

// RootError is returned when the scan root itself is missing or inaccessible. No
// partial tree is produced in this case.
type RootError struct {
	Path   string
	Reason RootErrorReason
	Err    error
}

func newRootError(path string, err error) *RootError {
	reason := RootInaccessible
	switch {
	case os.IsNotExist(err):
		reason = RootNotFound
	case os.IsPermission(err):
		reason = RootPermissionDenied
	}

	return &RootError{path, reason, err}
}

func (e *RootError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("Scan root %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("Scan root %s: %s: %v", e.Path, e.Reason, e.Err)
}

func (e *RootError) Unwrap() error {
	return e.Err
}
