package bl

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
)

// hardhat default accounts #0 and #1
const (
	ownerKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	ownerAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	otherKeyHex  = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	otherAddress = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func newTestSigner(t *testing.T, keyHex string) *Signer {
	t.Helper()
	key, err := crypto.ParsePrivateKeyHex(keyHex)
	if err != nil {
		t.Fatalf("ParsePrivateKeyHex() error: %v", err)
	}
	s, err := NewSigner(DefaultSchema, key, 1337)
	if err != nil {
		t.Fatalf("NewSigner() error: %v", err)
	}
	s.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("JST", 9*3600)) }
	return s
}

func testDocument() *Document {
	return &Document{
		CredentialSubject: CredentialSubject{ID: "did:x", Name: "Acme"},
		Issuer:            Issuer{ID: "did:y", Name: "Carrier"},
	}
}

func TestSigner_Create(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	input := testDocument()

	signed, err := s.Create(input)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := uuid.Parse(signed.ID); err != nil {
		t.Errorf("id %q is not a uuid: %v", signed.ID, err)
	}
	if len(signed.Context) != 1 || signed.Context[0] != CredentialsContext {
		t.Errorf("@context = %v", signed.Context)
	}
	if strings.Join(signed.Type, ",") != "VerifiableCredential,BLDocument" {
		t.Errorf("type = %v", signed.Type)
	}
	if signed.ValidFrom != "2025-03-03T20:06:07.890Z" {
		t.Errorf("validFrom = %s", signed.ValidFrom)
	}
	if signed.ValidUntil != "2026-03-03T20:06:07.890Z" {
		t.Errorf("validUntil = %s", signed.ValidUntil)
	}

	p := signed.Proof
	if p == nil {
		t.Fatal("proof is missing")
	}
	if p.ProofPurpose != "assertionMethod" || p.Type != "EthereumEip712Signature2021" {
		t.Errorf("unexpected proof constants: %+v", p)
	}
	if want := "did:pkh:eip155:1337:" + ownerAddress + "#blockchainAccountId"; p.VerificationMethod != want {
		t.Errorf("verificationMethod = %s, want %s", p.VerificationMethod, want)
	}
	if len(p.EIP712) != 3 || len(p.EIP712[PrimaryType]) != 7 {
		t.Errorf("eip712 types = %v", p.EIP712)
	}
	if !strings.HasPrefix(p.ProofValue, "0x") || len(p.ProofValue) != 2+2*crypto.SignatureLength {
		t.Errorf("proofValue = %s", p.ProofValue)
	}

	if input.ID != "" || input.Proof != nil {
		t.Error("Create modified its input")
	}

	again, err := s.Create(input)
	if err != nil {
		t.Fatal(err)
	}
	if again.ID == signed.ID {
		t.Error("two documents were given the same id")
	}
}

func TestSigner_CreateRequiresParties(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	tests := []struct {
		name   string
		mutate func(d *Document)
		errMsg string
	}{
		{"missing subject id", func(d *Document) { d.CredentialSubject.ID = "" }, "credentialSubject.id is required"},
		{"missing subject name", func(d *Document) { d.CredentialSubject.Name = "" }, "credentialSubject.name is required"},
		{"missing issuer id", func(d *Document) { d.Issuer.ID = "" }, "issuer.id is required"},
		{"missing issuer name", func(d *Document) { d.Issuer.Name = "" }, "issuer.name is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := testDocument()
			tt.mutate(doc)
			_, err := s.Create(doc)
			if err == nil || err.Error() != tt.errMsg {
				t.Fatalf("Create() error = %v, want %q", err, tt.errMsg)
			}
			var blErr *BLError
			if !errors.As(err, &blErr) || blErr.Code() != ErrCodeValidation {
				t.Errorf("expected validation error, got %T", err)
			}
		})
	}
}

func TestVerifySigned_RoundTrip(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	for _, addr := range []string{ownerAddress, strings.ToLower(ownerAddress), "0x" + strings.ToUpper(ownerAddress[2:])} {
		ok, err := VerifySigned(DefaultSchema, addr, signed)
		if err != nil {
			t.Fatalf("VerifySigned(%s) error: %v", addr, err)
		}
		if !ok {
			t.Errorf("VerifySigned(%s) = false, want true", addr)
		}
	}

	ok, err := VerifySigned(DefaultSchema, otherAddress, signed)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("document verified against an account that did not sign it")
	}
}

func TestVerifySigned_SurvivesJSON(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(signed)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseDocument(data)
	if err != nil {
		t.Fatalf("ParseDocument() error: %v", err)
	}

	ok, err := VerifySigned(DefaultSchema, ownerAddress, parsed)
	if err != nil || !ok {
		t.Fatalf("VerifySigned() = %v, %v after a JSON round trip", ok, err)
	}

	h1, _ := signed.Hash()
	h2, _ := parsed.Hash()
	if h1 != h2 {
		t.Errorf("hash changed after a JSON round trip: %s != %s", h1, h2)
	}
}

func TestVerifyDocument_Tampered(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"id", func(d *Document) { d.ID = uuid.NewString() }},
		{"context", func(d *Document) { d.Context = append(d.Context, "https://example.com") }},
		{"type", func(d *Document) { d.Type = d.Type[:1] }},
		{"subject name", func(d *Document) { d.CredentialSubject.Name = "Acme2" }},
		{"issuer id", func(d *Document) { d.Issuer.ID = "did:z" }},
		{"validFrom", func(d *Document) { d.ValidFrom = "2025-03-03T20:06:07.891Z" }},
		{"validUntil", func(d *Document) { d.ValidUntil = "2030-01-01T00:00:00.000Z" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := signed.WithoutProof()
			tt.mutate(doc)
			ok, err := VerifyDocument(DefaultSchema, ownerAddress, signed.Proof.ProofValue, doc)
			if err != nil {
				t.Fatalf("VerifyDocument() error: %v", err)
			}
			if ok {
				t.Error("tampered document verified")
			}
		})
	}
}

func TestVerifyDocument_Errors(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		proof    string
		doc      *Document
		wantCode ErrorCode
	}{
		{"malformed signature", "0x1234", signed.WithoutProof(), ErrCodeVerification},
		{"not hex", "signature", signed.WithoutProof(), ErrCodeVerification},
		{"proof not stripped", signed.Proof.ProofValue, signed, ErrCodeValidation},
		{"nil document", signed.Proof.ProofValue, nil, ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := VerifyDocument(DefaultSchema, ownerAddress, tt.proof, tt.doc)
			if ok {
				t.Error("VerifyDocument() = true")
			}
			var blErr *BLError
			if !errors.As(err, &blErr) || blErr.Code() != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	if _, err := VerifySigned(DefaultSchema, ownerAddress, testDocument()); err == nil {
		t.Error("VerifySigned() accepted an unsigned document")
	}
}

func TestSchemaDomainName(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	// the domain name is sent with the typed data but is not hashed, so a
	// signature made under one configured name verifies under another
	other, err := NewSchema("OtherDomain")
	if err != nil {
		t.Fatal(err)
	}
	ok, err := VerifySigned(other, ownerAddress, signed)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("signature did not verify under a different domain name")
	}
}

// The expected values were computed independently of this package with an
// eth-sig-util V4 style encoder (empty EIP712Domain, RFC 6979 signing) for
// hardhat account #0.
func TestSigner_KnownAnswer(t *testing.T) {
	const (
		docID      = "8f0d5c1e-2b7a-4c3d-9e6f-1a2b3c4d5e6f"
		wantDigest = "0x237c0c0e44725ac57e80e13f4a72a43cabd7178697c70d433b0cbe9f1deccb7b"
		wantProof  = "0x1593c79f6458e13b6080a5cfeb14526fe511c961025dc88b2ba49f074cf06aac" +
			"62bde9262d7f22839ab47db645fab076787771237fd1486c8a10ec17f1847fb61b"
	)

	s := newTestSigner(t, ownerKeyHex)
	s.newID = func() string { return docID }

	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	digest, err := s.TypedDataHash(signed)
	if err != nil {
		t.Fatal(err)
	}
	if digest != wantDigest {
		t.Errorf("typed data hash = %s, want %s", digest, wantDigest)
	}
	if signed.Proof.ProofValue != wantProof {
		t.Errorf("proofValue = %s, want %s", signed.Proof.ProofValue, wantProof)
	}

	// a document built by hand, as received from another signer
	received := &Document{
		Context:           []string{CredentialsContext},
		ID:                docID,
		Type:              []string{"VerifiableCredential", "BLDocument"},
		CredentialSubject: CredentialSubject{ID: "did:x", Name: "Acme"},
		Issuer:            Issuer{ID: "did:y", Name: "Carrier"},
		ValidFrom:         "2025-03-03T20:06:07.890Z",
		ValidUntil:        "2026-03-03T20:06:07.890Z",
	}
	ok, err := VerifyDocument(DefaultSchema, ownerAddress, wantProof, received)
	if err != nil {
		t.Fatalf("VerifyDocument() error: %v", err)
	}
	if !ok {
		t.Error("externally produced signature did not verify")
	}
}

func TestTypedDataHash(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	h1, err := s.TypedDataHash(signed)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := TypedDataHash(DefaultSchema, signed.WithoutProof())
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("typed data hash depends on the proof")
	}
	if !crypto.IsFingerprint(h1) {
		t.Errorf("typed data hash %s is not 32 byte hex", h1)
	}
}

func TestDocumentHash(t *testing.T) {
	s := newTestSigner(t, ownerKeyHex)
	signed, err := s.Create(testDocument())
	if err != nil {
		t.Fatal(err)
	}

	h, err := signed.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if err := crypto.ValidateFingerprint(h); err != nil {
		t.Error(err)
	}

	// signatures from different accounts give different ledger fingerprints
	other, err := newTestSigner(t, otherKeyHex).Create(signed.WithoutProof())
	if err != nil {
		t.Fatal(err)
	}
	other.ID = signed.ID
	h2, err := other.Hash()
	if err != nil {
		t.Fatal(err)
	}
	if h == h2 {
		t.Error("documents signed by different accounts have the same hash")
	}
}

func TestNewSigner_InvalidKey(t *testing.T) {
	if _, err := NewSigner(DefaultSchema, nil, 1); err == nil {
		t.Error("expected error for nil key")
	}
	if _, err := NewSigner(nil, nil, 1); err == nil {
		t.Error("expected error for nil schema")
	}
}
