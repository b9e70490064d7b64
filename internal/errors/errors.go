package errors

import (
	stderrors "errors"
	"fmt"
)

// CriterionError is the structured error type for Criterion.
// It provides rich context for error handling, logging, and user presentation.
type CriterionError struct {
	// Code is the unique error code (e.g., "ERR_402_INVALID_REFERENCE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates the caller may retry the operation.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CriterionError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CriterionError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works against a template error.
func (e *CriterionError) Is(target error) bool {
	if t, ok := target.(*CriterionError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *CriterionError) WithDetail(key, value string) *CriterionError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CriterionError) WithSuggestion(suggestion string) *CriterionError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CriterionError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *CriterionError {
	return &CriterionError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf is New with a formatted message and no cause.
func Newf(code string, format string, args ...any) *CriterionError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a CriterionError from an existing error.
// The error's message becomes the CriterionError message.
func Wrap(code string, err error) *CriterionError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates a generic input validation error.
func ValidationError(message string, cause error) *CriterionError {
	return New(ErrCodeInvalidInput, message, cause)
}

// StoreError creates a corpus store error.
func StoreError(message string, cause error) *CriterionError {
	return New(ErrCodeStoreUnavailable, message, cause)
}

// EmbeddingError creates an embedding provider error.
func EmbeddingError(message string, cause error) *CriterionError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CriterionError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first CriterionError in err's chain.
func As(err error) (*CriterionError, bool) {
	var ce *CriterionError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if ce, ok := As(err); ok {
		return ce.Retryable
	}
	return false
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	return GetCategory(err) == CategoryValidation
}

// GetCode extracts the error code from a CriterionError.
// Returns empty string if err carries none.
func GetCode(err error) string {
	if ce, ok := As(err); ok {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CriterionError.
// Returns empty string if err carries none.
func GetCategory(err error) Category {
	if ce, ok := As(err); ok {
		return ce.Category
	}
	return ""
}
