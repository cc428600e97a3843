package api

// request and response types for the B/L custody API

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/information-sharing-networks/bl-custody/internal/bl"
)

// StatusSuccess is the status field of every successful response
const StatusSuccess = "success"

// BLID is a B/L token id. On the wire it is a non-negative JSON integer.
type BLID struct {
	value *big.Int
}

// NewBLID returns the BLID for id
func NewBLID(id *big.Int) BLID {
	return BLID{value: id}
}

// ParseBLID parses a decimal token id, e.g. from a query parameter
func ParseBLID(s string) (BLID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return BLID{}, NewMalformedRequestError("bl_id is required")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return BLID{}, NewMalformedRequestError(fmt.Sprintf("bl_id must be a non-negative integer: %q", s))
	}
	return BLID{value: v}, nil
}

func (id *BLID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	// strings are rejected: existing clients always send a number
	if len(data) > 0 && data[0] == '"' {
		return NewMalformedRequestError("bl_id must be a number")
	}
	v, ok := new(big.Int).SetString(string(data), 10)
	if !ok || v.Sign() < 0 {
		return NewMalformedRequestError(fmt.Sprintf("bl_id must be a non-negative integer: %s", data))
	}
	id.value = v
	return nil
}

func (id BLID) MarshalJSON() ([]byte, error) {
	if id.value == nil {
		return []byte("null"), nil
	}
	return []byte(id.value.String()), nil
}

// IsSet reports whether a value was supplied
func (id BLID) IsSet() bool { return id.value != nil }

// BigInt returns the token id. It is nil when the id was not supplied.
func (id BLID) BigInt() *big.Int { return id.value }

func (id BLID) String() string {
	if id.value == nil {
		return ""
	}
	return id.value.String()
}

// RegisterRequest is the body of POST /v1/bl/register
type RegisterRequest struct {
	// CID identifies the wallet of the shipper registering the B/L
	CID string `json:"cid" example:"customer-001"`

	// BLJSON is the unsigned B/L. It must include credentialSubject and issuer.
	BLJSON json.RawMessage `json:"bl_json" swaggertype:"object"`
}

// RegisterResponse is returned when a B/L has been signed and minted
type RegisterResponse struct {
	BLID     BLID         `json:"bl_id" swaggertype:"integer" example:"1"`
	SignedBL *bl.Document `json:"signed_bl"`
	TxHash   string       `json:"tx_hash" example:"0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"`
	Status   string       `json:"status" example:"success"`
}

// TransferRequest is the body of POST /v1/bl/transfer
type TransferRequest struct {
	CID       string `json:"cid" example:"customer-001"`
	BLID      BLID   `json:"bl_id" swaggertype:"integer" example:"1"`
	ToAddress string `json:"to_address" example:"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"`
}

// ApproveRequest is the body of POST /v1/bl/approve
type ApproveRequest struct {
	CID  string `json:"cid" example:"customer-002"`
	BLID BLID   `json:"bl_id" swaggertype:"integer" example:"1"`

	// SignedBL is the document signed by the current owner
	SignedBL json.RawMessage `json:"signed_bl" swaggertype:"object"`
}

// ApproveResponse is returned when a transfer has been accepted
type ApproveResponse struct {
	Result bool `json:"result" example:"true"`

	// SignedSignedBL is the received document re-signed by the new owner. Its hash is now recorded on the ledger.
	SignedSignedBL *bl.Document `json:"signed_signed_bl"`
	TxHash         string       `json:"tx_hash"`
	Status         string       `json:"status" example:"success"`
}

// VerifyRequest is the body of POST /v1/bl/verify
type VerifyRequest struct {
	CID      string          `json:"cid" example:"customer-002"`
	BLID     BLID            `json:"bl_id" swaggertype:"integer" example:"1"`
	SignedBL json.RawMessage `json:"signed_bl" swaggertype:"object"`
}

// TokenRequest is the body of POST /v1/bl/deactivate and POST /v1/bl/use
type TokenRequest struct {
	CID  string `json:"cid" example:"customer-001"`
	BLID BLID   `json:"bl_id" swaggertype:"integer" example:"1"`
}

// ResultResponse is returned by the operations that report a single outcome
type ResultResponse struct {
	Result bool   `json:"result" example:"true"`
	TxHash string `json:"tx_hash,omitempty"`
	Status string `json:"status" example:"success"`
}

// DetailResponse is the ledger state of a B/L
type DetailResponse struct {
	BLHash           string   `json:"bl_hash" example:"0x3f1a..."`
	Owner            string   `json:"owner" example:"0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`
	OwnershipHistory []string `json:"ownershipHistory"`
	Invalidate       bool     `json:"invalidate" example:"false"`
	Used             bool     `json:"used" example:"false"`
	Status           string   `json:"status" example:"success"`
}

// SignatureVerifyRequest is the body of POST /v1/signatures/verify
type SignatureVerifyRequest struct {
	CID string `json:"cid" example:"customer-001"`

	// Signature is a signed B/L document
	Signature json.RawMessage `json:"signature" swaggertype:"object"`
}

// SignatureVerifyResponse reports whether the document was signed by the CID's wallet
type SignatureVerifyResponse struct {
	IsValid bool   `json:"isValid" example:"true"`
	Status  string `json:"status" example:"success"`
}

// ParseDocumentField parses a raw document field (bl_json, signed_bl, signature).
// The field must be a JSON object.
func ParseDocumentField(name string, raw json.RawMessage) (*bl.Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, NewMalformedRequestError(fmt.Sprintf("%s is required", name))
	}
	if raw[0] != '{' {
		return nil, NewMalformedRequestError(fmt.Sprintf("%s must be a JSON object", name))
	}
	doc, err := bl.ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return doc, nil
}
