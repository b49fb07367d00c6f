package domain

import (
	"errors"
	"net/http"
)

// Error codes for business logic errors.
const (
	CodeNotFound        = 1
	CodeValidation      = 2
	CodeInternal        = 3
	CodeUpstream        = 4
	CodeUpstreamTimeout = 5
)

// AppError represents a business logic error with a code, message, and optional wrapped error.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error for use with errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined business errors.
//
// Use the Is* helpers rather than errors.Is to match a category: they compare
// codes, so freshly constructed errors from NewAppError match too.
var (
	ErrNotFound        = &AppError{Code: CodeNotFound, Message: "not found"}
	ErrValidation      = &AppError{Code: CodeValidation, Message: "validation error"}
	ErrInternal        = &AppError{Code: CodeInternal, Message: "internal error"}
	ErrUpstream        = &AppError{Code: CodeUpstream, Message: "upstream error"}
	ErrUpstreamTimeout = &AppError{Code: CodeUpstreamTimeout, Message: "upstream timeout"}
)

// NewAppError creates a new AppError with the given code, message, and wrapped error.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound reports whether err is or wraps an AppError with CodeNotFound.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation reports whether err is or wraps an AppError with CodeValidation.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsInternal reports whether err is or wraps an AppError with CodeInternal.
func IsInternal(err error) bool {
	return hasCode(err, CodeInternal)
}

// IsUpstream reports whether err is or wraps an AppError with CodeUpstream.
func IsUpstream(err error) bool {
	return hasCode(err, CodeUpstream)
}

// IsUpstreamTimeout reports whether err is or wraps an AppError with CodeUpstreamTimeout.
func IsUpstreamTimeout(err error) bool {
	return hasCode(err, CodeUpstreamTimeout)
}

func hasCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatusCode maps an error to an HTTP status code.
// If the error is an *AppError, the code is mapped; otherwise http.StatusInternalServerError is returned.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if err != nil && errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeNotFound:
			return http.StatusNotFound
		case CodeValidation:
			return http.StatusBadRequest
		case CodeInternal:
			return http.StatusInternalServerError
		case CodeUpstream:
			return http.StatusBadGateway
		case CodeUpstreamTimeout:
			return http.StatusGatewayTimeout
		}
	}
	return http.StatusInternalServerError
}
