package api

// errors.go defines the error codes returned by the B/L custody API

import "fmt"

// ApiError represents an error raised at the HTTP boundary (malformed request, rate limit etc).
type ApiError struct {
	// code is the api error code
	code ErrorCode

	// message is a human-readable error message
	message string

	// wrapped is the optional underlying error
	wrapped error
}

func (e *ApiError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrapped)
	}
	return e.message
}

func (e *ApiError) Code() ErrorCode { return e.code }
func (e *ApiError) Unwrap() error   { return e.wrapped }

// ErrorCode is used in errors returned by the API.
//
//   - 7000-7999 technical errors: the request could not be processed (bad input, ledger unavailable).
//   - 8000-8999 functional errors: the request was understood but the custody rules prevent it.
type ErrorCode int

const (
	// ErrCodeMalformedRequest is used when the request body cannot be parsed or a required field is missing
	ErrCodeMalformedRequest ErrorCode = 7001

	// ErrCodeInvalidDocument is used when a B/L document is structurally invalid
	ErrCodeInvalidDocument ErrorCode = 7002

	// ErrCodeBadSignature is used when a proof value cannot be decoded
	ErrCodeBadSignature ErrorCode = 7003

	// ErrCodeEncodingError is used when call arguments cannot be ABI encoded
	ErrCodeEncodingError ErrorCode = 7004

	ErrCodeInternalError ErrorCode = 7005

	// ErrCodeSigningError is used when a stored credential cannot sign
	ErrCodeSigningError ErrorCode = 7006

	// ErrCodeLedgerUnavailable is used when the ledger node cannot be reached or returns an unexpected response
	ErrCodeLedgerUnavailable ErrorCode = 7007

	// ErrCodeLedgerTimeout is used when the ledger did not respond (or mine the transaction) in time
	ErrCodeLedgerTimeout ErrorCode = 7008

	ErrCodeRateLimitExceeded ErrorCode = 7009

	ErrCodeRequestTooLarge ErrorCode = 7010

	// ErrCodeUnknownCID is used when no wallet is registered for the cid
	ErrCodeUnknownCID ErrorCode = 8001

	// ErrCodeTokenNotFound is used when the B/L token does not exist
	ErrCodeTokenNotFound ErrorCode = 8002

	// ErrCodeSignatureMismatch is used when a document was not signed by the token's current owner
	ErrCodeSignatureMismatch ErrorCode = 8003

	// ErrCodeTransactionRejected is used when the ledger rejected or reverted the transaction
	ErrCodeTransactionRejected ErrorCode = 8004
)

// NewMalformedRequestError creates an error for malformed requests.
func NewMalformedRequestError(msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg}
}

// WrapMalformedRequestError wraps an existing error as a malformed request error.
func WrapMalformedRequestError(err error, msg string) error {
	return &ApiError{code: ErrCodeMalformedRequest, message: msg, wrapped: err}
}

// NewInternalError creates an internal error for unexpected failures.
func NewInternalError(msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg}
}

// WrapInternalError wraps an existing error as an internal error.
func WrapInternalError(err error, msg string) error {
	return &ApiError{code: ErrCodeInternalError, message: msg, wrapped: err}
}

// NewRateLimitError creates a rate limit exceeded error.
func NewRateLimitError(msg string) error {
	return &ApiError{code: ErrCodeRateLimitExceeded, message: msg}
}

// NewRequestTooLargeError creates a request too large error.
func NewRequestTooLargeError(msg string) error {
	return &ApiError{code: ErrCodeRequestTooLarge, message: msg}
}
