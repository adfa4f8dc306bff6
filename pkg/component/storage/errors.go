package storage

import (
	"errors"
	"fmt"
)

// Common storage error types.
var (
	// ErrInvalidConfig indicates a client could not be registered.
	ErrInvalidConfig = &StorageError{
		Code:    "INVALID_CONFIG",
		Message: "invalid storage configuration",
	}

	// ErrClientNotFound indicates no client is registered under the name.
	ErrClientNotFound = &StorageError{
		Code:    "CLIENT_NOT_FOUND",
		Message: "storage client not found",
	}

	// ErrClientAlreadyExists indicates a duplicate registration.
	ErrClientAlreadyExists = &StorageError{
		Code:    "CLIENT_ALREADY_EXISTS",
		Message: "storage client already exists",
	}
)

// StorageError is a storage error with a stable code.
type StorageError struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// Is matches storage errors by code.
func (e *StorageError) Is(target error) bool {
	var t *StorageError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithMessage returns a copy with a custom message.
func (e *StorageError) WithMessage(msg string) *StorageError {
	c := *e
	c.Message = msg
	return &c
}

// WithCause returns a copy wrapping cause.
func (e *StorageError) WithCause(cause error) *StorageError {
	c := *e
	c.Cause = cause
	return &c
}
