// Package apperror defines the error taxonomy shared by the service and
// HTTP layers. Every failure that reaches a client is an *AppError with a
// stable code; the wrapped internal error is for logs only.
package apperror

import (
	"errors"
	"net/http"
)

// FieldError names a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is a structured application error.
type AppError struct {
	Code     string
	Message  string
	Status   int
	Details  []FieldError
	Internal error
}

func (e *AppError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any *AppError carrying the same code, so callers can write
// errors.Is(err, apperror.ErrNotFound).
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeStorage          = "STORAGE_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
)

var (
	ErrValidation = &AppError{Code: CodeValidation, Message: "validation failed", Status: http.StatusBadRequest}
	ErrNotFound   = &AppError{Code: CodeNotFound, Message: "resource not found", Status: http.StatusNotFound}
	ErrConflict   = &AppError{Code: CodeConflict, Message: "resource already exists", Status: http.StatusConflict}
	ErrStorage    = &AppError{Code: CodeStorage, Message: "storage unavailable", Status: http.StatusInternalServerError}
	ErrInternal   = &AppError{Code: CodeInternal, Message: "an internal error occurred", Status: http.StatusInternalServerError}
)

// Validation returns a VALIDATION_ERROR listing the offending fields.
func Validation(details ...FieldError) *AppError {
	return &AppError{
		Code:    ErrValidation.Code,
		Message: ErrValidation.Message,
		Status:  ErrValidation.Status,
		Details: details,
	}
}

// NotFound returns a NOT_FOUND error with a custom message.
func NotFound(msg string) *AppError {
	return WithMessage(ErrNotFound, msg)
}

// Conflict returns a CONFLICT error wrapping the driver error.
func Conflict(msg string, internal error) *AppError {
	e := WithMessage(ErrConflict, msg)
	e.Internal = internal
	return e
}

// Storage wraps a persistence failure.
func Storage(internal error) *AppError {
	return Wrap(ErrStorage, internal)
}

// Wrap copies a sentinel and attaches an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:     sentinel.Code,
		Message:  sentinel.Message,
		Status:   sentinel.Status,
		Internal: internal,
	}
}

// WithMessage copies a sentinel with a different client-facing message.
func WithMessage(sentinel *AppError, msg string) *AppError {
	return &AppError{
		Code:    sentinel.Code,
		Message: msg,
		Status:  sentinel.Status,
	}
}

// From returns err as an *AppError, mapping anything unknown to
// INTERNAL_ERROR.
func From(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(ErrInternal, err)
}
