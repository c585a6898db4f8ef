// Package apperr defines the canonical error kinds shared across the core
// packages and the HTTP layer that maps them to status codes.
package apperr

import "fmt"

// Kind is one of the canonical error kinds from the error handling design.
type Kind string

const (
	BadRequest      Kind = "BadRequest"
	Unprocessable   Kind = "Unprocessable"
	AuthInvalid     Kind = "AuthInvalid"
	AuthRevoked     Kind = "AuthRevoked"
	Forbidden       Kind = "Forbidden"
	NotFound        Kind = "NotFound"
	Conflict        Kind = "Conflict"
	PayloadTooLarge Kind = "PayloadTooLarge"
	TooManyRequests Kind = "TooManyRequests"
	StorageError    Kind = "StorageError"
	Timeout         Kind = "Timeout"
)

// Error carries a canonical Kind plus a human-readable message and optional
// structured details (e.g. row/column diagnostics for schema validation).
type Error struct {
	Kind    Kind
	Message string
	Details any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds a new Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches an underlying cause without exposing it in Details; callers
// at the HTTP boundary must never surface cause.Error() verbatim.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// WithDetails returns a copy of e carrying the given details payload.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, defaulting
// to StorageError for unrecognised errors so nothing falls through the HTTP
// mapping unclassified.
func KindOf(err error) Kind {
	var appErr *Error
	if as(err, &appErr) {
		return appErr.Kind
	}
	return StorageError
}

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
