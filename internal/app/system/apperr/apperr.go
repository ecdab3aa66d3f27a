// Package apperr defines the error taxonomy shared by stores, policies, and
// handlers. Every error that reaches an HTTP boundary is classified into one
// Kind, which decides the status code the caller sees.
package apperr

import (
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
)

// Kind classifies an error for the API boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindValidation
	KindConflict
)

// Error codes carried in JSON error bodies.
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidInput = "INVALID_INPUT"
	CodeConflict     = "CONFLICT"
	CodeInternal     = "INTERNAL_ERROR"
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Code returns the JSON error code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindUnauthorized:
		return CodeUnauthorized
	case KindForbidden:
		return CodeForbidden
	case KindNotFound:
		return CodeNotFound
	case KindValidation:
		return CodeInvalidInput
	case KindConflict:
		return CodeConflict
	default:
		return CodeInternal
	}
}

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Details any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same Kind with an empty message, so
// errors.Is(err, apperr.NotFoundKind) style checks work against sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" {
		return e.Kind == t.Kind
	}
	return e == t
}

// Kind sentinels for errors.Is checks.
var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInternal     = &Error{Kind: KindInternal}
)

// Unauthorized reports a missing or invalid principal.
func Unauthorized(msg string) *Error {
	if msg == "" {
		msg = "authentication required"
	}
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden reports a known principal that may not perform the action.
func Forbidden(msg string) *Error {
	if msg == "" {
		msg = "access denied"
	}
	return &Error{Kind: KindForbidden, Message: msg}
}

// NotFound reports a missing entity, or one the caller may not know exists.
func NotFound(msg string) *Error {
	if msg == "" {
		msg = "not found"
	}
	return &Error{Kind: KindNotFound, Message: msg}
}

// Validation reports malformed input.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ValidationDetails reports malformed input with per-field details.
func ValidationDetails(msg string, details any) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

// Conflict reports a uniqueness or concurrent-modification failure.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Internal wraps a storage or infrastructure failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf classifies any error. Unclassified errors are Internal, except
// mongo.ErrNoDocuments which is NotFound.
func KindOf(err error) Kind {
	if err == nil {
		return KindInternal
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return KindNotFound
	}
	return KindInternal
}

// As returns err as an *Error, classifying it first if needed.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return NotFound("")
	}
	return Internal("internal error", err)
}
