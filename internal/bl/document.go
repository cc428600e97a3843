package bl

// document.go defines the B/L document and its proof.

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
)

// CredentialSubject identifies the party the B/L is about
type CredentialSubject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issuer identifies the party that issued the B/L
type Issuer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Document is a B/L claim set.
//
// ID, Context, Type, ValidFrom and ValidUntil are set by Signer.Create.
// A document with a Proof is signed and must not be modified without signing it again.
type Document struct {
	ID                string            `json:"id"`
	Context           []string          `json:"@context"`
	Type              []string          `json:"type"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Issuer            Issuer            `json:"issuer"`
	ValidFrom         string            `json:"validFrom"`
	ValidUntil        string            `json:"validUntil"`
	Proof             *Proof            `json:"proof,omitempty"`
}

// Proof is the signature side-car attached to a signed document.
type Proof struct {

	// EIP712: the type definitions used at signing time
	EIP712 apitypes.Types `json:"eip712"`

	// ProofPurpose: always "assertionMethod"
	ProofPurpose string `json:"proofPurpose"`

	// ProofValue: 0x-prefixed hex r || s || v signature
	ProofValue string `json:"proofValue"`

	// Type: always "EthereumEip712Signature2021"
	Type string `json:"type"`

	// VerificationMethod: did:pkh identifier of the signing account
	VerificationMethod string `json:"verificationMethod"`
}

// ParseDocument decodes a JSON document and checks the parties are present.
// Fields that are not part of the document model are ignored.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, WrapValidationError(err, "document is not a valid JSON object")
	}
	if err := doc.ValidateStructure(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ValidateStructure checks the fields supplied by the caller are present
func (d *Document) ValidateStructure() error {
	if d.CredentialSubject.ID == "" {
		return NewValidationError("credentialSubject.id is required")
	}
	if d.CredentialSubject.Name == "" {
		return NewValidationError("credentialSubject.name is required")
	}
	if d.Issuer.ID == "" {
		return NewValidationError("issuer.id is required")
	}
	if d.Issuer.Name == "" {
		return NewValidationError("issuer.name is required")
	}
	return nil
}

// IsSigned reports whether the document carries a proof
func (d *Document) IsSigned() bool {
	return d.Proof != nil && d.Proof.ProofValue != ""
}

// WithoutProof returns a copy of the document with the proof removed. All other fields are unchanged.
func (d *Document) WithoutProof() *Document {
	c := d.clone()
	c.Proof = nil
	return c
}

// Hash returns the ledger fingerprint of the document: the keccak-256 hash of its RFC 8785 canonical JSON.
func (d *Document) Hash() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", WrapValidationError(err, "failed to encode document")
	}
	h, err := crypto.HashJSON(data)
	if err != nil {
		return "", WrapValidationError(err, "failed to hash document")
	}
	return h, nil
}

// typedDataMessage converts the document (excluding the proof) into a typed data message.
func (d *Document) typedDataMessage() apitypes.TypedDataMessage {
	return apitypes.TypedDataMessage{
		"@context": stringSlice(d.Context),
		"id":       d.ID,
		"type":     stringSlice(d.Type),
		"credentialSubject": map[string]interface{}{
			"id":   d.CredentialSubject.ID,
			"name": d.CredentialSubject.Name,
		},
		"issuer": map[string]interface{}{
			"id":   d.Issuer.ID,
			"name": d.Issuer.Name,
		},
		"validFrom":  d.ValidFrom,
		"validUntil": d.ValidUntil,
	}
}

func (d *Document) clone() *Document {
	c := *d
	c.Context = append([]string(nil), d.Context...)
	c.Type = append([]string(nil), d.Type...)
	if d.Proof != nil {
		p := *d.Proof
		c.Proof = &p
	}
	return &c
}

func stringSlice(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// String returns a short description for logs
func (d *Document) String() string {
	return fmt.Sprintf("bl document %s (subject %s, issuer %s)", d.ID, d.CredentialSubject.ID, d.Issuer.ID)
}
