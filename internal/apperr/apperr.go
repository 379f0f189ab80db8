// Package apperr defines the failure taxonomy shared by the core services.
//
// Every operation fails with an error that wraps exactly one of the sentinel
// kinds below. Callers classify failures with errors.Is or KindOf; the HTTP
// layer is the only place that turns a kind into a status code.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrAuthRequired indicates no credential was presented.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthInvalid indicates a credential that is unverifiable, expired, superseded or whose
	// referent no longer exists.
	ErrAuthInvalid = errors.New("invalid credentials")
	// ErrForbidden indicates an authenticated caller that may not act on the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness violation reported by storage.
	ErrConflict = errors.New("conflict")
	// ErrUploadFailed indicates the media store rejected or failed an upload.
	ErrUploadFailed = errors.New("upload failed")
	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal error")
)

// Kind identifies a failure class.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthRequired
	KindAuthInvalid
	KindForbidden
	KindNotFound
	KindConflict
	KindUploadFailed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindAuthRequired:
		return "auth_required"
	case KindAuthInvalid:
		return "auth_invalid"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUploadFailed:
		return "upload_failed"
	default:
		return "internal"
	}
}

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrValidation, KindValidation},
	{ErrAuthRequired, KindAuthRequired},
	{ErrAuthInvalid, KindAuthInvalid},
	{ErrForbidden, KindForbidden},
	{ErrNotFound, KindNotFound},
	{ErrConflict, KindConflict},
	{ErrUploadFailed, KindUploadFailed},
	{ErrInternal, KindInternal},
}

// KindOf classifies err. Errors that wrap none of the sentinels are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return kindFor(appErr.kind)
	}
	return kindFor(err)
}

func kindFor(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// Error carries a failure kind, a message that is safe to show to clients and
// an optional underlying cause.
type Error struct {
	kind    error
	message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Message returns the client-facing description.
func (e *Error) Message() string {
	return e.message
}

// Unwrap exposes both the kind sentinel and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func newError(kind error, cause error, format string, args ...any) error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: cause}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) error {
	return newError(ErrValidation, nil, format, args...)
}

// AuthRequired reports a missing credential.
func AuthRequired(format string, args ...any) error {
	return newError(ErrAuthRequired, nil, format, args...)
}

// AuthInvalid reports an unusable credential. The cause is kept for logs only.
func AuthInvalid(cause error, format string, args ...any) error {
	return newError(ErrAuthInvalid, cause, format, args...)
}

// Forbidden reports a caller that is not allowed to act on a resource.
func Forbidden(format string, args ...any) error {
	return newError(ErrForbidden, nil, format, args...)
}

// NotFound reports an absent entity.
func NotFound(format string, args ...any) error {
	return newError(ErrNotFound, nil, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error {
	return newError(ErrConflict, nil, format, args...)
}

// UploadFailed reports a media store failure.
func UploadFailed(cause error, format string, args ...any) error {
	return newError(ErrUploadFailed, cause, format, args...)
}

// Internal wraps an unexpected failure.
func Internal(cause error, format string, args ...any) error {
	return newError(ErrInternal, cause, format, args...)
}

// MessageOf returns the client-facing message for err, falling back to the
// generic description of its kind so internal details never leak.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.message != "" {
		return appErr.message
	}
	switch KindOf(err) {
	case KindInternal:
		return ErrInternal.Error()
	default:
		for _, k := range kinds {
			if errors.Is(err, k.sentinel) {
				return k.sentinel.Error()
			}
		}
	}
	return ErrInternal.Error()
}
