package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// ErrUnsupportedLanguage marks a language tag with no toolchain binding.
	// No process is spawned for such requests.
	ErrUnsupportedLanguage = errors.New("language not supported")

	// ErrToolchainUnavailable marks a compiler or interpreter that could not be
	// started, usually because it is not installed or not on PATH.
	ErrToolchainUnavailable = errors.New("toolchain unavailable")

	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// UnsupportedLanguage reports a language tag that has no toolchain.
func UnsupportedLanguage(tag string) *AppError {
	return &AppError{
		Err:     ErrUnsupportedLanguage,
		Message: fmt.Sprintf("language %q is not supported", tag),
		Field:   "language",
	}
}

// ToolchainUnavailable wraps a process start failure for the named binary.
// The cause is kept in the message so the user can see why the start failed.
func ToolchainUnavailable(binary string, cause error) *AppError {
	return &AppError{
		Err:     ErrToolchainUnavailable,
		Message: fmt.Sprintf("cannot start %s: %v", binary, cause),
	}
}

// Unauthorized is returned when an API token is missing or invalid.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
