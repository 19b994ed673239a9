package errors

import (
	stderrors "errors"
	"fmt"
)

// AncestryError is the structured error type for ancestry.
// It carries enough context to log a diagnostic, decide whether to retry,
// and present a hint to the operator.
type AncestryError struct {
	// Code is the unique error code (e.g., "ERR_201_ENTITY_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Traversal, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *AncestryError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AncestryError) Unwrap() error {
	return e.Cause
}

// Is matches another AncestryError by code so errors.Is works against
// sentinel values such as ErrNotFound.
func (e *AncestryError) Is(target error) bool {
	if t, ok := target.(*AncestryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AncestryError) WithDetail(key, value string) *AncestryError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *AncestryError) WithSuggestion(suggestion string) *AncestryError {
	e.Suggestion = suggestion
	return e
}

// New creates a new AncestryError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *AncestryError {
	return &AncestryError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an AncestryError from an existing error.
// The error's message becomes the AncestryError message.
func Wrap(code string, err error) *AncestryError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *AncestryError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// SchemaError creates a schema definition error.
func SchemaError(message string, cause error) *AncestryError {
	return New(ErrCodeSchemaInvalid, message, cause)
}

// StoreError creates an entity store or index sink error.
func StoreError(message string, cause error) *AncestryError {
	return New(ErrCodeStoreFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *AncestryError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *AncestryError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first AncestryError in err's chain.
func As(err error) (*AncestryError, bool) {
	var ae *AncestryError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if the chain holds an AncestryError with Retryable set.
func IsRetryable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an AncestryError.
// Returns empty string if not an AncestryError.
func GetCode(err error) string {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}
