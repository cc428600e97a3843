package ledger

import (
	"context"
	"errors"
	"fmt"
)

// Error represents a structured error from the ledger package
type Error interface {
	error
	Code() ErrorCode
	Unwrap() error
}

type ErrorCode string

const (
	ErrCodeEncoding   ErrorCode = "encoding"
	ErrCodeSigning    ErrorCode = "signing"
	ErrCodeSubmission ErrorCode = "submission"
	ErrCodeTransport  ErrorCode = "transport"
	ErrCodeDecoding   ErrorCode = "decoding"
)

// LedgerError represents a structured error from the ledger package
type LedgerError struct {
	code    ErrorCode
	message string

	// revertReason is the reason string returned by a reverted call (submission errors only)
	revertReason string

	wrapped error
}

func (e *LedgerError) Error() string {
	msg := e.message
	if e.revertReason != "" {
		msg = fmt.Sprintf("%s: reverted: %s", msg, e.revertReason)
	}
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *LedgerError) Code() ErrorCode { return e.code }
func (e *LedgerError) Unwrap() error   { return e.wrapped }

// RevertReason returns the reason string supplied by the contract when the call reverted, if any.
func (e *LedgerError) RevertReason() string { return e.revertReason }

// NewEncodingError creates an encoding error.
// Use this when a method is not part of the contract ABI or its arguments cannot be packed.
func NewEncodingError(msg string) error {
	return &LedgerError{code: ErrCodeEncoding, message: msg}
}

// WrapEncodingError wraps an existing error as an encoding error.
func WrapEncodingError(err error, msg string) error {
	return &LedgerError{code: ErrCodeEncoding, message: msg, wrapped: err}
}

// NewSigningError creates a signing error for invalid account key material.
func NewSigningError(msg string) error {
	return &LedgerError{code: ErrCodeSigning, message: msg}
}

// WrapSigningError wraps an existing error as a signing error.
func WrapSigningError(err error, msg string) error {
	return &LedgerError{code: ErrCodeSigning, message: msg, wrapped: err}
}

// NewSubmissionError creates an error for a transaction or call the ledger rejected.
// reason is the revert reason supplied by the contract and may be empty.
func NewSubmissionError(msg, reason string) error {
	return &LedgerError{code: ErrCodeSubmission, message: msg, revertReason: reason}
}

// WrapSubmissionError wraps the error returned by the node when it rejected a transaction or call.
func WrapSubmissionError(err error, msg, reason string) error {
	return &LedgerError{code: ErrCodeSubmission, message: msg, revertReason: reason, wrapped: err}
}

// WrapTransportError wraps a network or timeout error.
func WrapTransportError(err error, msg string) error {
	return &LedgerError{code: ErrCodeTransport, message: msg, wrapped: err}
}

// NewDecodingError creates a decoding error.
func NewDecodingError(msg string) error {
	return &LedgerError{code: ErrCodeDecoding, message: msg}
}

// WrapDecodingError wraps an existing error as a decoding error.
func WrapDecodingError(err error, msg string) error {
	return &LedgerError{code: ErrCodeDecoding, message: msg, wrapped: err}
}

// CodeOf returns the ledger error code of err, or "" if err is not a ledger error.
func CodeOf(err error) ErrorCode {
	var ledgerErr Error
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Code()
	}
	return ""
}

// RevertReason returns the revert reason carried by err, or "".
func RevertReason(err error) string {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.RevertReason()
	}
	return ""
}

// IsTimeout reports whether err is a transport error caused by a deadline
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrCodeTransport && errors.Is(err, context.DeadlineExceeded)
}
