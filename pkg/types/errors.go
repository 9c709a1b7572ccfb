package types

import (
	"errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeDecryption ErrorType = "decryption"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// EngineError represents a structured error raised by the privacy engine
type EngineError struct {
	Type    ErrorType              `json:"type"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new validation error
func NewValidationError(code, message string, details map[string]interface{}) *EngineError {
	return &EngineError{
		Type:    ErrorTypeValidation,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// NewDecryptionError creates a new decryption error
func NewDecryptionError(code, message string, cause error) *EngineError {
	return &EngineError{
		Type:    ErrorTypeDecryption,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(code, message string) *EngineError {
	return &EngineError{
		Type:    ErrorTypeNotFound,
		Code:    code,
		Message: message,
	}
}

// NewStorageError creates a new storage error wrapping a ledger failure
func NewStorageError(code, message string, cause error) *EngineError {
	return &EngineError{
		Type:    ErrorTypeStorage,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(code, message string, cause error) *EngineError {
	return &EngineError{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsType reports whether err is an EngineError of the given type
func IsType(err error, t ErrorType) bool {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Type == t
	}
	return false
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }

// IsDecryption reports whether err is a decryption error
func IsDecryption(err error) bool { return IsType(err, ErrorTypeDecryption) }

// IsNotFound reports whether err is a not found error
func IsNotFound(err error) bool { return IsType(err, ErrorTypeNotFound) }

// IsStorage reports whether err is a storage error
func IsStorage(err error) bool { return IsType(err, ErrorTypeStorage) }

// Common error codes
const (
	ErrCodeInvalidLevel     = "INVALID_PRIVACY_LEVEL"
	ErrCodeInvalidExpiry    = "INVALID_EXPIRY"
	ErrCodeMissingReason    = "MISSING_REASON"
	ErrCodeDecryptionFailed = "DECRYPTION_FAILED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeStorageFailure   = "STORAGE_FAILURE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)
