package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/custody"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
)

// sanity check that the error codes are in the correct range
func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name     string
		errCode  ErrorCode
		wantCode int
	}{
		{"malformed_request", ErrCodeMalformedRequest, 7001},
		{"invalid_document", ErrCodeInvalidDocument, 7002},
		{"bad_signature", ErrCodeBadSignature, 7003},
		{"encoding_error", ErrCodeEncodingError, 7004},
		{"internal_error", ErrCodeInternalError, 7005},
		{"signing_error", ErrCodeSigningError, 7006},
		{"ledger_unavailable", ErrCodeLedgerUnavailable, 7007},
		{"ledger_timeout", ErrCodeLedgerTimeout, 7008},
		{"rate_limit", ErrCodeRateLimitExceeded, 7009},
		{"too_large", ErrCodeRequestTooLarge, 7010},
		{"unknown_cid", ErrCodeUnknownCID, 8001},
		{"token_not_found", ErrCodeTokenNotFound, 8002},
		{"signature_mismatch", ErrCodeSignatureMismatch, 8003},
		{"transaction_rejected", ErrCodeTransactionRejected, 8004},
	}
	for _, tt := range tests {
		if int(tt.errCode) != tt.wantCode {
			t.Errorf("%s: got %d, want %d", tt.name, tt.errCode, tt.wantCode)
		}
	}
}

func TestMapErrorToResponse(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCode     ErrorCode
		wantRevert   string
		wantRedacted bool
	}{
		{"malformed request", NewMalformedRequestError("cid is required"), http.StatusBadRequest, ErrCodeMalformedRequest, "", false},
		{"rate limit", NewRateLimitError("slow down"), http.StatusTooManyRequests, ErrCodeRateLimitExceeded, "", false},
		{"too large", NewRequestTooLargeError("too big"), http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "", false},
		{"api internal", NewInternalError("boom"), http.StatusInternalServerError, ErrCodeInternalError, "", true},
		{"unknown cid", fmt.Errorf("lookup: %w", wallet.ErrWalletNotFound), http.StatusNotFound, ErrCodeUnknownCID, "", false},
		{"token not found", custody.NewNotFoundError("token 7 does not exist"), http.StatusNotFound, ErrCodeTokenNotFound, "", false},
		{"signature mismatch", custody.NewSignatureMismatchError("not signed by owner"), http.StatusUnprocessableEntity, ErrCodeSignatureMismatch, "", false},
		{"custody validation", custody.NewValidationError("bad hash"), http.StatusBadRequest, ErrCodeMalformedRequest, "", false},
		{"encoding", ledger.NewEncodingError("bad args"), http.StatusBadRequest, ErrCodeEncodingError, "", false},
		{"submission", ledger.NewSubmissionError("transaction reverted", "caller is not the owner"), http.StatusConflict, ErrCodeTransactionRejected, "caller is not the owner", false},
		{"transport", ledger.WrapTransportError(errors.New("connection refused"), "send failed"), http.StatusBadGateway, ErrCodeLedgerUnavailable, "", false},
		{"transport timeout", ledger.WrapTransportError(context.DeadlineExceeded, "receipt not available"), http.StatusGatewayTimeout, ErrCodeLedgerTimeout, "", false},
		{"decoding", ledger.NewDecodingError("no Transfer event"), http.StatusBadGateway, ErrCodeLedgerUnavailable, "", false},
		{"ledger signing", ledger.NewSigningError("key missing"), http.StatusInternalServerError, ErrCodeSigningError, "", true},
		{"bl validation", bl.NewValidationError("issuer.id is required"), http.StatusBadRequest, ErrCodeInvalidDocument, "", false},
		{"bl verification", bl.WrapVerificationError(errors.New("bad length"), "failed to verify"), http.StatusBadRequest, ErrCodeBadSignature, "", false},
		{"crypto validation", crypto.NewValidationError("not a fingerprint"), http.StatusBadRequest, ErrCodeInvalidDocument, "", false},
		{"bare deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeLedgerTimeout, "", false},
		{"unmapped", errors.New("mystery"), http.StatusInternalServerError, ErrCodeInternalError, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/v1/bl/transfer", nil)

			resp := MapErrorToResponse(tt.err, r)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if resp.Status != "error" {
				t.Errorf("status field: got %q, want error", resp.Status)
			}
			if len(resp.Errors) != 1 {
				t.Fatalf("expected one detailed error, got %d", len(resp.Errors))
			}
			detail := resp.Errors[0]
			if detail.ErrorCode != tt.wantCode {
				t.Errorf("error code: got %d, want %d", detail.ErrorCode, tt.wantCode)
			}
			if detail.RevertReason != tt.wantRevert {
				t.Errorf("revert reason: got %q, want %q", detail.RevertReason, tt.wantRevert)
			}
			if tt.wantRedacted && detail.ErrorCodeMessage == tt.err.Error() {
				t.Errorf("internal error message was passed to the client: %q", detail.ErrorCodeMessage)
			}
			if !tt.wantRedacted && detail.ErrorCodeMessage != tt.err.Error() {
				t.Errorf("message: got %q, want %q", detail.ErrorCodeMessage, tt.err.Error())
			}
		})
	}
}

func TestRespondWithErrorResponse(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/bl/detail?bl_id=9", nil)
	w := httptest.NewRecorder()

	RespondWithErrorResponse(w, r, custody.NewNotFoundError("token 9 does not exist"))

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}

	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.RequestURI != "/v1/bl/detail?bl_id=9" {
		t.Errorf("requestUri: got %q", body.RequestURI)
	}
	if body.Errors[0].ErrorCode != ErrCodeTokenNotFound {
		t.Errorf("error code: got %d", body.Errors[0].ErrorCode)
	}
}
