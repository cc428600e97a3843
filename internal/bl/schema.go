package bl

import (
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
)

const (
	// DefaultDomainName is the EIP-712 domain name sent with B/L typed data
	DefaultDomainName = "EthereumEip712Signature2021"

	// PrimaryType is the typed data type of a B/L document
	PrimaryType = "Document"

	// ProofPurpose is the proofPurpose of every document proof
	ProofPurpose = "assertionMethod"

	// ProofType is the proof type of an EIP-712 typed data signature
	ProofType = "EthereumEip712Signature2021"

	// CredentialsContext is the @context set on every document
	CredentialsContext = "https://www.w3.org/2018/credentials/v1"

	// TimestampFormat is the UTC millisecond ISO-8601 format used for validFrom and validUntil
	TimestampFormat = "2006-01-02T15:04:05.000Z"
)

// DocumentTypes are the type tags set on every document
var DocumentTypes = []string{"VerifiableCredential", "BLDocument"}

// DefaultSchema is the schema for DefaultDomainName.
var DefaultSchema = mustNewSchema(DefaultDomainName)

// documentTypes returns the typed data definitions for a B/L document.
// Field order is significant: it determines the encoded type string.
func documentTypes() apitypes.Types {
	return apitypes.Types{
		"CredentialSubject": {
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
		},
		"Issuer": {
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
		},
		PrimaryType: {
			{Name: "@context", Type: "string[]"},
			{Name: "id", Type: "string"},
			{Name: "type", Type: "string[]"},
			{Name: "credentialSubject", Type: "CredentialSubject"},
			{Name: "issuer", Type: "Issuer"},
			{Name: "validFrom", Type: "string"},
			{Name: "validUntil", Type: "string"},
		},
	}
}

// NewSchema returns the B/L document schema for the given EIP-712 domain name.
// Use DefaultSchema unless the deployment is configured with a different domain.
func NewSchema(domainName string) (*crypto.TypedDataSchema, error) {
	return crypto.NewTypedDataSchema(domainName, PrimaryType, documentTypes())
}

func mustNewSchema(domainName string) *crypto.TypedDataSchema {
	s, err := NewSchema(domainName)
	if err != nil {
		panic(err)
	}
	return s
}
