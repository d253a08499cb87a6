// Package errors defines the typed error kinds that may cross a
// coordination-core boundary, plus a per-name circuit breaker used by
// outbound probe/collector calls.
package errors

import (
	"fmt"
	stderrors "errors"
)

// Kind classifies a boundary-crossing error so callers (including the
// thin HTTP layer) can map it without string matching.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindValidation   Kind = "validation"
	KindUnavailable  Kind = "unavailable"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// CoreError is the common shape for errors the cores return instead of an
// ambient exception.
type CoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CoreError) Unwrap() error { return e.Cause }

// NotFoundError constructs a KindNotFound CoreError.
func NotFoundError(message string) error { return &CoreError{Kind: KindNotFound, Message: message} }

// ValidationError constructs a KindValidation CoreError.
func ValidationError(message string) error {
	return &CoreError{Kind: KindValidation, Message: message}
}

// UnavailableError constructs a KindUnavailable CoreError.
func UnavailableError(message string) error {
	return &CoreError{Kind: KindUnavailable, Message: message}
}

// ConflictError constructs a KindConflict CoreError.
func ConflictError(message string) error { return &CoreError{Kind: KindConflict, Message: message} }

// KindOf extracts the Kind from err, defaulting to KindInternal for
// errors the cores did not originate.
func KindOf(err error) Kind {
	var ce *CoreError
	if As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// As is a tiny local alias of errors.As to avoid importing the stdlib
// package under the same name as this one at every call site.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
