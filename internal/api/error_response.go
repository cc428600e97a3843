package api

// error_response.go maps lower level errors to the error response returned to the client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/custody"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/information-sharing-networks/bl-custody/internal/logger"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
)

// ErrorResponse is the body returned for every failed request
type ErrorResponse struct {
	// Status is always "error"
	Status string `json:"status" example:"error"`

	// The HTTP method used to make the request e.g. GET, POST, etc
	HTTPMethod string `json:"httpMethod" example:"POST"`

	// The URI that was requested
	RequestURI string `json:"requestUri" example:"/v1/bl/transfer"`

	// The HTTP status code returned
	StatusCode int `json:"statusCode" example:"409"`

	// A standard short description corresponding to the HTTP status code
	StatusCodeText string `json:"statusCodeText" example:"Conflict"`

	// Message is a short description of the failure
	Message string `json:"message" example:"Transaction rejected"`

	// A unique identifier for the request (the X-Request-Id)
	ProviderCorrelationReference string `json:"providerCorrelationReference,omitempty"`

	// The DateTime corresponding to the error occurring
	ErrorDateTime string `json:"errorDateTime" example:"2025-01-28T10:00:00Z"`

	// An array of errors providing more detail about the root cause
	Errors []DetailedError `json:"errors"`
}

// DetailedError provides more detail about the failure
type DetailedError struct {
	// error code: 7000-7999 for technical errors, 8000-8999 for functional errors
	ErrorCode        ErrorCode `json:"errorCode" example:"8004"`
	ErrorCodeText    string    `json:"errorCodeText" example:"Transaction rejected"`
	ErrorCodeMessage string    `json:"errorCodeMessage" example:"transaction reverted"`

	// RevertReason is the reason given by the contract when it rejected a transaction
	RevertReason string `json:"revertReason,omitempty" example:"caller is not the owner"`
}

// errorMapping is the client facing classification of an error
type errorMapping struct {
	statusCode    int
	errorCode     ErrorCode
	errorCodeText string
}

var internalErrorMapping = errorMapping{http.StatusInternalServerError, ErrCodeInternalError, "Internal Error"}

// MapErrorToResponse maps api, wallet, custody, ledger, bl and crypto errors to an ErrorResponse.
//
// Call this function to set up the error response before sending it to the client (using RespondWithErrorResponse).
func MapErrorToResponse(err error, r *http.Request) *ErrorResponse {
	requestID := middleware.GetReqID(r.Context())

	mapping, ok := classify(err)
	if !ok {
		reqLogger := logger.ContextRequestLogger(r.Context())
		reqLogger.Error("BUG: Unmapped error type in MapErrorToResponse",
			slog.String("error_type", fmt.Sprintf("%T", err)),
			slog.String("error", err.Error()),
			slog.String("request_id", requestID),
		)
		mapping = internalErrorMapping
	}

	message := err.Error()
	if mapping.statusCode == http.StatusInternalServerError {
		// internal failures are logged in full but not described to the client
		message = "An internal error occurred"
	}

	return &ErrorResponse{
		Status:                       "error",
		HTTPMethod:                   r.Method,
		RequestURI:                   r.RequestURI,
		StatusCode:                   mapping.statusCode,
		StatusCodeText:               http.StatusText(mapping.statusCode),
		Message:                      mapping.errorCodeText,
		ProviderCorrelationReference: requestID,
		ErrorDateTime:                time.Now().UTC().Format(time.RFC3339),
		Errors: []DetailedError{
			{
				ErrorCode:        mapping.errorCode,
				ErrorCodeText:    mapping.errorCodeText,
				ErrorCodeMessage: message,
				RevertReason:     ledger.RevertReason(err),
			},
		},
	}
}

// classify finds the most specific error type in the chain.
// The order matters: custody and bl errors can wrap crypto errors.
func classify(err error) (errorMapping, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return fromAPI(apiErr), true
	}

	if errors.Is(err, wallet.ErrWalletNotFound) {
		return errorMapping{http.StatusNotFound, ErrCodeUnknownCID, "Unknown CID"}, true
	}

	var custodyErr *custody.CustodyError
	if errors.As(err, &custodyErr) {
		return fromCustody(custodyErr), true
	}

	var ledgerErr *ledger.LedgerError
	if errors.As(err, &ledgerErr) {
		return fromLedger(ledgerErr), true
	}

	var blErr *bl.BLError
	if errors.As(err, &blErr) {
		return fromBL(blErr), true
	}

	var cryptoErr *crypto.CryptoError
	if errors.As(err, &cryptoErr) {
		return fromCrypto(cryptoErr), true
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errorMapping{http.StatusGatewayTimeout, ErrCodeLedgerTimeout, "Ledger timeout"}, true
	}

	return errorMapping{}, false
}

func fromAPI(err *ApiError) errorMapping {
	switch err.Code() {
	case ErrCodeMalformedRequest:
		return errorMapping{http.StatusBadRequest, err.Code(), "Malformed request"}
	case ErrCodeRateLimitExceeded:
		return errorMapping{http.StatusTooManyRequests, err.Code(), "Rate limit exceeded"}
	case ErrCodeRequestTooLarge:
		return errorMapping{http.StatusRequestEntityTooLarge, err.Code(), "Request too large"}
	default:
		return internalErrorMapping
	}
}

func fromCustody(err *custody.CustodyError) errorMapping {
	switch err.Code() {
	case custody.ErrCodeNotFound:
		return errorMapping{http.StatusNotFound, ErrCodeTokenNotFound, "B/L not found"}
	case custody.ErrCodeSignatureMismatch:
		return errorMapping{http.StatusUnprocessableEntity, ErrCodeSignatureMismatch, "Signature mismatch"}
	case custody.ErrCodeValidation:
		return errorMapping{http.StatusBadRequest, ErrCodeMalformedRequest, "Invalid request"}
	default:
		return internalErrorMapping
	}
}

func fromLedger(err *ledger.LedgerError) errorMapping {
	switch err.Code() {
	case ledger.ErrCodeEncoding:
		return errorMapping{http.StatusBadRequest, ErrCodeEncodingError, "Invalid call arguments"}
	case ledger.ErrCodeSubmission:
		return errorMapping{http.StatusConflict, ErrCodeTransactionRejected, "Transaction rejected"}
	case ledger.ErrCodeTransport:
		if ledger.IsTimeout(err) {
			return errorMapping{http.StatusGatewayTimeout, ErrCodeLedgerTimeout, "Ledger timeout"}
		}
		return errorMapping{http.StatusBadGateway, ErrCodeLedgerUnavailable, "Ledger unavailable"}
	case ledger.ErrCodeDecoding:
		return errorMapping{http.StatusBadGateway, ErrCodeLedgerUnavailable, "Unexpected ledger response"}
	case ledger.ErrCodeSigning:
		return errorMapping{http.StatusInternalServerError, ErrCodeSigningError, "Signing failed"}
	default:
		return internalErrorMapping
	}
}

func fromBL(err *bl.BLError) errorMapping {
	switch err.Code() {
	case bl.ErrCodeValidation:
		return errorMapping{http.StatusBadRequest, ErrCodeInvalidDocument, "Invalid B/L document"}
	case bl.ErrCodeVerification:
		return errorMapping{http.StatusBadRequest, ErrCodeBadSignature, "Bad signature"}
	case bl.ErrCodeSigning:
		return errorMapping{http.StatusInternalServerError, ErrCodeSigningError, "Signing failed"}
	default:
		return internalErrorMapping
	}
}

func fromCrypto(err *crypto.CryptoError) errorMapping {
	switch err.Code() {
	case crypto.ErrCodeValidation:
		return errorMapping{http.StatusBadRequest, ErrCodeInvalidDocument, "Invalid input"}
	case crypto.ErrCodeVerification:
		return errorMapping{http.StatusBadRequest, ErrCodeBadSignature, "Bad signature"}
	case crypto.ErrCodeSigning, crypto.ErrCodeKeyManagement:
		return errorMapping{http.StatusInternalServerError, ErrCodeSigningError, "Signing failed"}
	default:
		return internalErrorMapping
	}
}
