package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents malformed input records
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict represents uniqueness violations that survived a re-run
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeTransaction represents storage failures (unreachable, deadlock, ...)
	ErrorTypeTransaction ErrorType = "transaction"
	// ErrorTypeInconsistency represents graph state that breaks a hierarchy invariant
	ErrorTypeInconsistency ErrorType = "inconsistency"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category. Typed errors embedding *BaseError inherit it.
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Validation Errors

// ValidationError is returned when a record is missing a required field
type ValidationError struct {
	*BaseError
	Field  string
	Reason string
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid %s: %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Conflict Errors

// ConflictError is returned when a uniqueness constraint still rejects the
// write after the unit of work was re-run. It points at a storage
// inconsistency and is not retried further.
type ConflictError struct {
	*BaseError
	Operation string
	Attempts  int
}

func NewConflict(operation string, attempts int, err error) *ConflictError {
	return &ConflictError{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("%s: uniqueness conflict after %d attempts", operation, attempts), err),
		Operation: operation,
		Attempts:  attempts,
	}
}

// Transaction Errors

// TransactionError wraps storage failures
type TransactionError struct {
	*BaseError
	Operation string
	Retryable bool
}

func NewTransaction(operation string, retryable bool, err error) *TransactionError {
	return &TransactionError{
		BaseError: NewBaseError(ErrorTypeTransaction, fmt.Sprintf("transaction failed: %s", operation), err),
		Operation: operation,
		Retryable: retryable,
	}
}

// Inconsistency Errors

// InconsistencyError is returned when stored data contradicts a hierarchy invariant
type InconsistencyError struct {
	*BaseError
	NodeUID string
}

func NewInconsistency(nodeUID, message string) *InconsistencyError {
	return &InconsistencyError{
		BaseError: NewBaseError(ErrorTypeInconsistency, message, nil),
		NodeUID:   nodeUID,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// Helper functions

type kinded interface {
	Kind() ErrorType
}

// TypeOf returns the category of the first typed error in err's chain, or ""
func TypeOf(err error) ErrorType {
	var k kinded
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return stderrors.As(err, &v)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var txErr *TransactionError
	if stderrors.As(err, &txErr) {
		return txErr.Retryable
	}
	// Validation, conflict, inconsistency and context errors are final
	return false
}
