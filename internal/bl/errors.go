package bl

import "fmt"

// Error represents a structured error from the bl package.
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	// ErrCodeValidation indicates a malformed or incomplete document
	ErrCodeValidation ErrorCode = "validation"

	// ErrCodeSigning indicates the document could not be signed
	ErrCodeSigning ErrorCode = "signing"

	// ErrCodeVerification indicates the proof could not be checked (e.g. malformed signature bytes).
	// A proof that is well formed but was made by a different account is not an error.
	ErrCodeVerification ErrorCode = "verification"
)

// BLError represents a structured error from the bl package.
type BLError struct {
	code    ErrorCode
	message string
	wrapped error
}

func (e *BLError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *BLError) Code() ErrorCode { return e.code }
func (e *BLError) Unwrap() error   { return e.wrapped }

// NewValidationError creates a validation error for a malformed document.
func NewValidationError(msg string) error {
	return &BLError{code: ErrCodeValidation, message: msg}
}

// WrapValidationError wraps an existing error as a validation error.
func WrapValidationError(err error, msg string) error {
	return &BLError{code: ErrCodeValidation, message: msg, wrapped: err}
}

// WrapSigningError wraps an existing error as a signing error.
func WrapSigningError(err error, msg string) error {
	return &BLError{code: ErrCodeSigning, message: msg, wrapped: err}
}

// WrapVerificationError wraps an existing error as a verification error.
func WrapVerificationError(err error, msg string) error {
	return &BLError{code: ErrCodeVerification, message: msg, wrapped: err}
}
