// Package errs defines the client-facing error taxonomy shared by services
// and HTTP handlers.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindDuplicateEmail
	KindDuplicateUsername
	KindNotFound
	KindUnauthorized
	KindConflict
	KindStorageUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindDuplicateEmail:
		return "duplicate_email"
	case KindDuplicateUsername:
		return "duplicate_username"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindStorageUnavailable:
		return "storage_unavailable"
	default:
		return "internal"
	}
}

// FieldError is a single invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// Error is the typed error returned by services. Detail is safe to show
// to clients; Err holds the underlying cause and is never serialized.
type Error struct {
	Kind   Kind
	Detail string
	Fields []FieldError
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status maps the kind to an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindDuplicateEmail, KindDuplicateUsername:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var (
	ErrDuplicateEmail     = &Error{Kind: KindDuplicateEmail, Detail: "email already registered"}
	ErrDuplicateUsername  = &Error{Kind: KindDuplicateUsername, Detail: "username already taken"}
	ErrInvalidCredentials = &Error{Kind: KindUnauthorized, Detail: "invalid email or password"}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable, Detail: "service temporarily unavailable"}
	ErrInternal           = &Error{Kind: KindInternal, Detail: "internal server error"}
)

// Validation builds a validation error with optional field details.
func Validation(detail string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Detail: detail, Fields: fields}
}

func NotFound(detail string) *Error {
	return &Error{Kind: KindNotFound, Detail: detail}
}

func Conflict(detail string) *Error {
	return &Error{Kind: KindConflict, Detail: detail}
}

func Unauthorized(detail string) *Error {
	return &Error{Kind: KindUnauthorized, Detail: detail}
}

// Internal hides err behind the generic internal detail.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Detail: ErrInternal.Detail, Err: err}
}

// StorageUnavailable hides err behind the generic unavailability detail.
func StorageUnavailable(err error) *Error {
	return &Error{Kind: KindStorageUnavailable, Detail: ErrStorageUnavailable.Detail, Err: err}
}

// From returns err as *Error, treating anything untyped as internal.
func From(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
