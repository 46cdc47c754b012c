package errors

import (
	"fmt"
)

// AppError is the structured error type for reviewsearch.
// It provides rich context for error handling, logging, and the API surface.
type AppError struct {
	// Code is the unique error code (e.g., "ERR_204_WRITE_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Validation, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with AppError.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AppError from an existing error.
// The error's message becomes the AppError message.
func Wrap(code string, err error) *AppError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StorageError creates a file/disk I/O error.
func StorageError(message string, cause error) *AppError {
	return New(ErrCodeWriteFailed, message, cause)
}

// ConcurrencyError creates a lock acquisition error.
func ConcurrencyError(message string, cause error) *AppError {
	return New(ErrCodeLockTimeout, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AppError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is an AppError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ae, ok := err.(*AppError); ok {
		return ae.Retryable
	}
	return false
}

// GetCode extracts the error code from an AppError.
// Returns empty string if not an AppError.
func GetCode(err error) string {
	if ae, ok := err.(*AppError); ok {
		return ae.Code
	}
	return ""
}

// GetMessage extracts the human-readable message from an AppError,
// without the code prefix. Falls back to Error() for plain errors.
func GetMessage(err error) string {
	if ae, ok := err.(*AppError); ok {
		return ae.Message
	}
	return err.Error()
}

// GetCategory extracts the category from an AppError.
// Unrecognized errors are classified as internal.
func GetCategory(err error) Category {
	if ae, ok := err.(*AppError); ok {
		return ae.Category
	}
	return CategoryInternal
}
