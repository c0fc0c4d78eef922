// Package ipcerr defines the error taxonomy shared by every ipckit transport
// and coordination package: a small set of kinds, not type names, each
// carrying an optional wrapped cause.
package ipcerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error independent of the component that raised it.
type Kind string

const (
	KindAlreadyExists     Kind = "already_exists"
	KindNotFound          Kind = "not_found"
	KindPermissionDenied  Kind = "permission_denied"
	KindConnectionClosed  Kind = "connection_closed"
	KindBrokenPipe        Kind = "broken_pipe"
	KindUnexpectedEOF     Kind = "unexpected_eof"
	KindFrameTooLarge     Kind = "frame_too_large"
	KindInvalidData       Kind = "invalid_data"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidState      Kind = "invalid_state"
	KindResourceExhausted Kind = "resource_exhausted"
	KindTimeout           Kind = "timeout"
	KindCancelled         Kind = "cancelled"
	KindPlatformError     Kind = "platform_error"
)

// Error is the concrete error type returned by every ipckit package. It
// always carries a Kind so callers can branch with Is, and optionally wraps
// an underlying cause.
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

// New builds an Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error of the given kind around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// necessary. It mirrors the errors.Is contract without requiring callers to
// construct a sentinel value for every kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Convenience constructors matching the common call sites across the
// transport packages.

func AlreadyExists(name string) *Error {
	return New(KindAlreadyExists, fmt.Sprintf("resource already exists: %s", name))
}

func NotFound(name string) *Error {
	return New(KindNotFound, fmt.Sprintf("resource not found: %s", name))
}

func PermissionDenied(cause error) *Error {
	return Wrap(KindPermissionDenied, "permission denied", cause)
}

func ConnectionClosed() *Error {
	return New(KindConnectionClosed, "channel closed")
}

func FrameTooLarge(got, max uint32) *Error {
	return New(KindFrameTooLarge, fmt.Sprintf("frame of %d bytes exceeds max %d", got, max))
}

func InvalidData(cause error) *Error {
	return Wrap(KindInvalidData, "invalid data", cause)
}

func OutOfBounds(offset, length, size int) *Error {
	return New(KindOutOfBounds, fmt.Sprintf("offset %d length %d exceeds region size %d", offset, length, size))
}

func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

func ResourceExhausted(message string) *Error {
	return New(KindResourceExhausted, message)
}

func Timeout(message string) *Error {
	return New(KindTimeout, message)
}

func Cancelled() *Error {
	return New(KindCancelled, "operation cancelled")
}

func Platform(cause error) *Error {
	return Wrap(KindPlatformError, "platform error", cause)
}

func IO(cause error) *Error {
	return Wrap(KindPlatformError, "i/o error", cause)
}
