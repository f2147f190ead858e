// Package coreerr defines the error kinds the core surfaces (spec.md §7).
// It follows the teacher's preference for plain wrapped errors
// (fmt.Errorf("...: %v", err)) over a panic/exception-style control flow:
// every core-surfaced failure is a *Error the caller can inspect with
// errors.As, never a panic crossing a package boundary.
package coreerr

import "fmt"

// Kind is one of the error kinds enumerated in spec.md §7.
type Kind string

const (
	InvalidInput           Kind = "invalid_input"
	NotFound               Kind = "not_found"
	Conflict               Kind = "conflict"
	RateLimited            Kind = "rate_limited"
	QueueFull              Kind = "queue_full"
	Timeout                Kind = "timeout"
	DependencyUnavailable  Kind = "dependency_unavailable"
	Internal               Kind = "internal"
)

// Error wraps a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a *Error of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err if it (or something it wraps) is a
// *Error; otherwise it returns Internal, matching the teacher's
// "unexpected error degrades to a safe default" idiom.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return Internal
}

// as is a tiny local errors.As to avoid importing errors twice for one call site.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
