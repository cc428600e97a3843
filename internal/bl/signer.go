package bl

// signer.go creates and verifies signed B/L documents.

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
)

// validity is the fixed validity window of a signed document
const validity = 365 * 24 * time.Hour

// Signer signs B/L documents on behalf of one account.
//
// A Signer holds a reference to the private key; the caller owns the key and is responsible for
// zeroing it when the operation is complete.
type Signer struct {
	schema  *crypto.TypedDataSchema
	key     *ecdsa.PrivateKey
	address common.Address
	chainID int64

	// now and newID are replaced in tests
	now   func() time.Time
	newID func() string
}

// NewSigner returns a signer for key. chainID is used in the proof's verification method.
func NewSigner(schema *crypto.TypedDataSchema, key *ecdsa.PrivateKey, chainID int64) (*Signer, error) {
	if schema == nil {
		return nil, NewValidationError("schema is required")
	}
	if key == nil || key.D == nil || key.D.Sign() == 0 {
		return nil, WrapSigningError(crypto.NewKeyManagementError("private key is not set"), "cannot create signer")
	}
	return &Signer{
		schema:  schema,
		key:     key,
		address: crypto.AddressFromPrivateKey(key),
		chainID: chainID,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Address returns the signing account
func (s *Signer) Address() common.Address { return s.address }

// VerificationMethod returns the did:pkh identifier of the signing account
func (s *Signer) VerificationMethod() string {
	return fmt.Sprintf("did:pkh:eip155:%d:%s#blockchainAccountId", s.chainID, s.address.Hex())
}

// Create returns a signed copy of doc.
//
// id, @context, type, validFrom and validUntil are overwritten and the proof is replaced.
// doc itself is not modified.
func (s *Signer) Create(doc *Document) (*Document, error) {
	if doc == nil {
		return nil, NewValidationError("document is required")
	}
	if err := doc.ValidateStructure(); err != nil {
		return nil, err
	}

	now := s.now().UTC()

	signed := doc.WithoutProof()
	signed.ID = s.newID()
	signed.Context = []string{CredentialsContext}
	signed.Type = append([]string(nil), DocumentTypes...)
	signed.ValidFrom = now.Format(TimestampFormat)
	signed.ValidUntil = now.Add(validity).Format(TimestampFormat)

	sig, err := s.schema.Sign(signed.typedDataMessage(), s.key)
	if err != nil {
		return nil, WrapSigningError(err, "failed to sign document")
	}

	signed.Proof = &Proof{
		EIP712:             s.schema.Types(),
		ProofPurpose:       ProofPurpose,
		ProofValue:         sig,
		Type:               ProofType,
		VerificationMethod: s.VerificationMethod(),
	}
	return signed, nil
}

// Verify reports whether proofValue is a signature by expected over doc (which must not include the proof).
func (s *Signer) Verify(expected, proofValue string, doc *Document) (bool, error) {
	return VerifyDocument(s.schema, expected, proofValue, doc)
}

// TypedDataHash returns the hex EIP-712 digest of the document (excluding the proof).
func (s *Signer) TypedDataHash(doc *Document) (string, error) {
	return TypedDataHash(s.schema, doc)
}

// VerifyDocument reports whether proofValue is a signature by expected over doc.
//
// doc must be exactly the signed document with the proof removed (see Document.WithoutProof).
// A signature made by another account, or over different content, returns false.
// An error is returned only when the signature bytes are malformed.
func VerifyDocument(schema *crypto.TypedDataSchema, expected, proofValue string, doc *Document) (bool, error) {
	if doc == nil {
		return false, NewValidationError("document is required")
	}
	if doc.Proof != nil {
		return false, NewValidationError("document must not include a proof")
	}
	ok, err := schema.Verify(expected, doc.typedDataMessage(), proofValue)
	if err != nil {
		return false, WrapVerificationError(err, "failed to verify document signature")
	}
	return ok, nil
}

// VerifySigned reports whether signed carries a proof made by expected.
func VerifySigned(schema *crypto.TypedDataSchema, expected string, signed *Document) (bool, error) {
	if signed == nil || !signed.IsSigned() {
		return false, NewValidationError("document is not signed")
	}
	return VerifyDocument(schema, expected, signed.Proof.ProofValue, signed.WithoutProof())
}

// TypedDataHash returns the hex EIP-712 digest of doc (excluding the proof).
func TypedDataHash(schema *crypto.TypedDataSchema, doc *Document) (string, error) {
	digest, err := schema.Hash(doc.WithoutProof().typedDataMessage())
	if err != nil {
		return "", WrapValidationError(err, "failed to hash document")
	}
	return "0x" + hex.EncodeToString(digest), nil
}
