package publish

import (
	"fmt"
	"strings"
)

// UserInputError is a request-level rejection: bad slug, disallowed
// production publish, protected baseline, or an empty placeable set. Always a
// single human-readable line.
type UserInputError struct {
	Reason string
}

func (e *UserInputError) Error() string {
	return "publish: " + e.Reason
}

// AssetMissingError reports every referenced model file missing from the
// asset store, de-duplicated and sorted, so the user can fix all of them in
// one pass. No write happens when this is returned.
type AssetMissingError struct {
	Paths []string
}

func (e *AssetMissingError) Error() string {
	return fmt.Sprintf("publish: %d missing asset(s): %s", len(e.Paths), strings.Join(e.Paths, ", "))
}

// InternalError wraps a failure of the pipeline's own output to re-validate.
// This is a bug in the assembly logic, not a user error, and is reported
// distinctly so it is never mistaken for one.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	return "publish: internal invariant violation: " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}
