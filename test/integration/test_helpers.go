//go:build integration

// functions that are useful in integration tests

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/information-sharing-networks/bl-custody/internal/api"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
)

const (
	carrierCID = "carrier-001"
	shipperCID = "shipper-001"
	bankCID    = "bank-001"
)

const blJSON = `{
	"credentialSubject": {"id": "did:example:shipper", "name": "Acme Exports"},
	"issuer": {"id": "did:example:carrier", "name": "Ocean Carrier"}
}`

// provisionWallets creates a wallet for each cid and returns the wallet addresses by cid
func provisionWallets(t *testing.T, env *testEnv, cids ...string) map[string]string {
	t.Helper()
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := wallet.Provision(ctx, env.queries, cids, logger); err != nil {
		t.Fatalf("Failed to provision wallets: %v", err)
	}

	addresses := make(map[string]string, len(cids))
	for _, cid := range cids {
		w, err := env.queries.GetWalletByCID(ctx, cid)
		if err != nil {
			t.Fatalf("Failed to read wallet for %s: %v", cid, err)
		}
		addresses[cid] = w.WalletAddress
	}
	return addresses
}

// postJSON sends body to the server and returns the status code and raw response body
func postJSON(t *testing.T, env *testEnv, path string, body any) (int, []byte) {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	resp, err := http.Post(env.baseURL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, respBody
}

func getJSON(t *testing.T, env *testEnv, path string) (int, []byte) {
	t.Helper()

	resp, err := http.Get(env.baseURL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp.StatusCode, respBody
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("Failed to decode response: %v\n%s", err, data)
	}
	return v
}

// expectError checks the status and the first error code of an error response
func expectError(t *testing.T, status int, body []byte, wantStatus int, wantCode api.ErrorCode) {
	t.Helper()

	if status != wantStatus {
		t.Fatalf("status: got %d, want %d\n%s", status, wantStatus, body)
	}
	errResp := decode[api.ErrorResponse](t, body)
	if len(errResp.Errors) == 0 {
		t.Fatalf("error response has no errors: %s", body)
	}
	if errResp.Errors[0].ErrorCode != wantCode {
		t.Errorf("error code: got %d, want %d", errResp.Errors[0].ErrorCode, wantCode)
	}
}
