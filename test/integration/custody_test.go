//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/information-sharing-networks/bl-custody/internal/api"
)

func TestCustodyLifecycle(t *testing.T) {
	env := startInProcessServer(t)
	defer env.shutdown()

	addresses := provisionWallets(t, env, carrierCID, shipperCID, bankCID)

	// carrier issues the B/L
	status, body := postJSON(t, env, "/v1/bl/register", map[string]any{
		"cid":     carrierCID,
		"bl_json": json.RawMessage(blJSON),
	})
	if status != http.StatusOK {
		t.Fatalf("register: got %d\n%s", status, body)
	}
	registered := decode[api.RegisterResponse](t, body)
	blID := registered.BLID.String()
	if registered.SignedBL == nil || !registered.SignedBL.IsSigned() {
		t.Fatalf("register did not return a signed document: %s", body)
	}
	if !strings.Contains(registered.SignedBL.Proof.VerificationMethod, addresses[carrierCID]) {
		t.Errorf("verificationMethod %q does not name the carrier wallet", registered.SignedBL.Proof.VerificationMethod)
	}
	if strings.Contains(string(body), "private") {
		t.Errorf("register response mentions key material: %s", body)
	}

	status, body = getJSON(t, env, "/v1/bl/detail?bl_id="+blID)
	if status != http.StatusOK {
		t.Fatalf("detail: got %d\n%s", status, body)
	}
	detail := decode[api.DetailResponse](t, body)
	if !strings.EqualFold(detail.Owner, addresses[carrierCID]) {
		t.Errorf("owner: got %s, want %s", detail.Owner, addresses[carrierCID])
	}
	wantHash, err := registered.SignedBL.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if detail.BLHash != wantHash {
		t.Errorf("bl_hash: got %s, want %s", detail.BLHash, wantHash)
	}

	// carrier offers the B/L to the shipper
	status, body = postJSON(t, env, "/v1/bl/transfer", map[string]any{
		"cid":        carrierCID,
		"bl_id":      json.RawMessage(blID),
		"to_address": addresses[shipperCID],
	})
	if status != http.StatusOK {
		t.Fatalf("transfer: got %d\n%s", status, body)
	}
	if res := decode[api.ResultResponse](t, body); !res.Result {
		t.Fatalf("transfer result is false: %s", body)
	}

	// the bank was not offered the B/L
	signedBL, err := json.Marshal(registered.SignedBL)
	if err != nil {
		t.Fatal(err)
	}
	status, body = postJSON(t, env, "/v1/bl/approve", map[string]any{
		"cid":       bankCID,
		"bl_id":     json.RawMessage(blID),
		"signed_bl": json.RawMessage(signedBL),
	})
	expectError(t, status, body, http.StatusConflict, api.ErrCodeTransactionRejected)

	// shipper accepts: the document is countersigned and the new hash recorded
	status, body = postJSON(t, env, "/v1/bl/approve", map[string]any{
		"cid":       shipperCID,
		"bl_id":     json.RawMessage(blID),
		"signed_bl": json.RawMessage(signedBL),
	})
	if status != http.StatusOK {
		t.Fatalf("approve: got %d\n%s", status, body)
	}
	approved := decode[api.ApproveResponse](t, body)
	if !approved.Result || approved.SignedSignedBL == nil {
		t.Fatalf("approve did not return the countersigned document: %s", body)
	}

	status, body = getJSON(t, env, "/v1/bl/detail?bl_id="+blID)
	if status != http.StatusOK {
		t.Fatalf("detail: got %d\n%s", status, body)
	}
	detail = decode[api.DetailResponse](t, body)
	if !strings.EqualFold(detail.Owner, addresses[shipperCID]) {
		t.Errorf("owner after approve: got %s, want %s", detail.Owner, addresses[shipperCID])
	}
	if len(detail.OwnershipHistory) != 2 {
		t.Errorf("ownership history: got %v, want 2 entries", detail.OwnershipHistory)
	}
	newHash, err := approved.SignedSignedBL.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if detail.BLHash != newHash {
		t.Errorf("bl_hash after approve: got %s, want %s", detail.BLHash, newHash)
	}

	signedSignedBL, err := json.Marshal(approved.SignedSignedBL)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name     string
		document json.RawMessage
		want     bool
	}{
		{"current document", signedSignedBL, true},
		{"superseded document", signedBL, false},
	}
	for _, tt := range tests {
		t.Run("verify "+tt.name, func(t *testing.T) {
			status, body := postJSON(t, env, "/v1/bl/verify", map[string]any{
				"cid":       shipperCID,
				"bl_id":     json.RawMessage(blID),
				"signed_bl": tt.document,
			})
			if status != http.StatusOK {
				t.Fatalf("verify: got %d\n%s", status, body)
			}
			if res := decode[api.ResultResponse](t, body); res.Result != tt.want {
				t.Errorf("verify: got %v, want %v", res.Result, tt.want)
			}
		})
	}

	// shipper surrenders the B/L; it can no longer move
	status, body = postJSON(t, env, "/v1/bl/use", map[string]any{
		"cid":   shipperCID,
		"bl_id": json.RawMessage(blID),
	})
	if status != http.StatusOK {
		t.Fatalf("use: got %d\n%s", status, body)
	}

	status, body = postJSON(t, env, "/v1/bl/transfer", map[string]any{
		"cid":        shipperCID,
		"bl_id":      json.RawMessage(blID),
		"to_address": addresses[bankCID],
	})
	expectError(t, status, body, http.StatusConflict, api.ErrCodeTransactionRejected)

	status, body = getJSON(t, env, "/v1/bl/detail?bl_id="+blID)
	if status != http.StatusOK {
		t.Fatalf("detail: got %d\n%s", status, body)
	}
	if detail := decode[api.DetailResponse](t, body); !detail.Used || detail.Invalidate {
		t.Errorf("terminal flags: used=%v invalidate=%v, want used only", detail.Used, detail.Invalidate)
	}
}

func TestUnknownCIDAndToken(t *testing.T) {
	env := startInProcessServer(t)
	defer env.shutdown()

	provisionWallets(t, env, carrierCID)

	status, body := postJSON(t, env, "/v1/bl/register", map[string]any{
		"cid":     "nobody",
		"bl_json": json.RawMessage(blJSON),
	})
	expectError(t, status, body, http.StatusNotFound, api.ErrCodeUnknownCID)

	status, body = postJSON(t, env, "/v1/bl/deactivate", map[string]any{
		"cid":   carrierCID,
		"bl_id": 42,
	})
	expectError(t, status, body, http.StatusNotFound, api.ErrCodeTokenNotFound)

	status, body = getJSON(t, env, "/v1/bl/detail?bl_id=42")
	expectError(t, status, body, http.StatusNotFound, api.ErrCodeTokenNotFound)

	// nothing reached the ledger
	if sent := env.backend.SentCount(); sent != 0 {
		t.Errorf("transactions sent: got %d, want 0", sent)
	}
}

func TestProvisionIsIdempotent(t *testing.T) {
	env := startInProcessServer(t)
	defer env.shutdown()

	first := provisionWallets(t, env, carrierCID, shipperCID)
	second := provisionWallets(t, env, carrierCID, shipperCID, bankCID)

	for _, cid := range []string{carrierCID, shipperCID} {
		if first[cid] != second[cid] {
			t.Errorf("%s: wallet changed from %s to %s", cid, first[cid], second[cid])
		}
	}
	if second[carrierCID] == second[shipperCID] {
		t.Error("two CIDs share a wallet")
	}

	status, body := postJSON(t, env, "/v1/bl/register", map[string]any{
		"cid":     carrierCID,
		"bl_json": json.RawMessage(blJSON),
	})
	if status != http.StatusOK {
		t.Fatalf("register: got %d\n%s", status, body)
	}
	signed, err := json.Marshal(decode[api.RegisterResponse](t, body).SignedBL)
	if err != nil {
		t.Fatal(err)
	}

	// the bank wallet was added after the server started
	tests := []struct {
		cid  string
		want bool
	}{
		{carrierCID, true},
		{bankCID, false},
	}
	for _, tt := range tests {
		t.Run(tt.cid, func(t *testing.T) {
			status, body := postJSON(t, env, "/v1/signatures/verify", map[string]any{
				"cid":       tt.cid,
				"signature": json.RawMessage(signed),
			})
			if status != http.StatusOK {
				t.Fatalf("signatures/verify: got %d\n%s", status, body)
			}
			if res := decode[api.SignatureVerifyResponse](t, body); res.IsValid != tt.want {
				t.Errorf("isValid: got %v, want %v", res.IsValid, tt.want)
			}
		})
	}
}
