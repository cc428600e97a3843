package custody

import (
	"errors"
	"fmt"
)

// Error represents a structured error from the custody package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeNotFound indicates the token does not exist (its ownership history is empty)
	ErrCodeNotFound ErrorCode = "not_found"

	// ErrCodeSignatureMismatch indicates a document was not signed by the token's current owner
	ErrCodeSignatureMismatch ErrorCode = "signature_mismatch"

	// ErrCodeValidation indicates invalid arguments
	ErrCodeValidation ErrorCode = "validation"
)

// CustodyError represents a structured error from the custody package
type CustodyError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *CustodyError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *CustodyError) Code() ErrorCode { return e.code }
func (e *CustodyError) Unwrap() error   { return e.wrapped }

// NewNotFoundError creates an error for a token that does not exist
func NewNotFoundError(msg string) error {
	return &CustodyError{code: ErrCodeNotFound, message: msg}
}

// NewSignatureMismatchError creates an error for a document that was not signed by the current owner
func NewSignatureMismatchError(msg string) error {
	return &CustodyError{code: ErrCodeSignatureMismatch, message: msg}
}

// NewValidationError creates an error for invalid arguments
func NewValidationError(msg string) error {
	return &CustodyError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error
func WrapValidationError(err error, msg string) error {
	return &CustodyError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// CodeOf returns the custody error code of err, or "" if err is not a custody error
func CodeOf(err error) ErrorCode {
	var custodyErr Error
	if errors.As(err, &custodyErr) {
		return custodyErr.Code()
	}
	return ""
}
