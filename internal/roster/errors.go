// Package roster holds the error taxonomy shared by the roster editing packages.
package roster

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a cycle's end date precedes its start date.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrNotFound is returned when a member, date or cell lookup misses.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCatalog is returned when the subtype catalog is malformed or
	// cannot cover the shifts of a weekday.
	ErrInvalidCatalog = errors.New("invalid shift catalog")
	// ErrMissingIdentity is returned when an upload row has no employee id.
	ErrMissingIdentity = errors.New("missing employee identity")
	// ErrPreconditionViolation is returned when a gated operation is attempted
	// out of workflow order.
	ErrPreconditionViolation = errors.New("precondition violation")
	// ErrAmbiguousName is returned when two members of a cycle share a snapshot name.
	ErrAmbiguousName = errors.New("ambiguous member name")
	// ErrRemoteFailure matches every *RemoteError via errors.Is.
	ErrRemoteFailure = errors.New("remote failure")
)

// RemoteError wraps a failed call to an external collaborator. Message is the
// upstream, user-presentable text.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

// Remote builds a RemoteError for op.
func Remote(op, message string, err error) *RemoteError {
	return &RemoteError{Op: op, Message: message, Err: err}
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", ErrRemoteFailure, e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s: %s", ErrRemoteFailure, e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrRemoteFailure, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrRemoteFailure, e.Op)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is reports ErrRemoteFailure as a match so callers need not know the concrete type.
func (e *RemoteError) Is(target error) bool { return target == ErrRemoteFailure }

// Errorf wraps a sentinel with formatted context, keeping it matchable by errors.Is.
func Errorf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
