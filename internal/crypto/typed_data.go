// this file implements EIP-712 (v4) typed data hashing, signing and signer recovery.
//
// A TypedDataSchema holds the domain name and the struct type definitions used to encode a message.
// Schemas are immutable once constructed and are safe to share between goroutines.
//
// The domain type is declared with no fields, as eth-sig-util does when the caller supplies no
// EIP712Domain type. The domain separator is therefore keccak256(keccak256("EIP712Domain()")) and
// the domain name is carried with the schema but is not part of the digest.
//
// Signatures are 65 bytes (r || s || v) with v in {27, 28} and are exchanged as 0x-prefixed hex.

package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	// SignatureLength is the length of an r || s || v signature
	SignatureLength = 65

	eip712DomainType = "EIP712Domain"
	recoveryIDOffset = 27
)

// emptyDomainSeparator is hashStruct(EIP712Domain) for a domain type with no fields
var emptyDomainSeparator = ethcrypto.Keccak256(ethcrypto.Keccak256([]byte(eip712DomainType + "()")))

// TypedDataSchema is the domain and type definitions used to encode typed data messages.
type TypedDataSchema struct {
	domainName  string
	primaryType string
	types       apitypes.Types
}

// NewTypedDataSchema returns a schema for messages of type primaryType.
// types must not include the EIP712Domain type.
func NewTypedDataSchema(domainName, primaryType string, types apitypes.Types) (*TypedDataSchema, error) {
	if domainName == "" {
		return nil, NewValidationError("domain name is required")
	}
	if _, ok := types[primaryType]; !ok {
		return nil, NewValidationError(fmt.Sprintf("primary type %q is not defined", primaryType))
	}
	if _, ok := types[eip712DomainType]; ok {
		return nil, NewValidationError("types must not define EIP712Domain")
	}

	s := &TypedDataSchema{
		domainName:  domainName,
		primaryType: primaryType,
		types:       copyTypes(types),
	}

	// struct references must resolve to a declared type
	for name, fields := range s.types {
		for _, f := range fields {
			if f.Name == "" {
				return nil, NewValidationError(fmt.Sprintf("type %s has a field with no name", name))
			}
			base := strings.TrimSuffix(f.Type, "[]")
			if base == "" {
				return nil, NewValidationError(fmt.Sprintf("field %s.%s has no type", name, f.Name))
			}
			if strings.ToUpper(base[:1]) == base[:1] {
				if _, ok := s.types[base]; !ok {
					return nil, NewValidationError(fmt.Sprintf("field %s.%s references undefined type %s", name, f.Name, base))
				}
			}
		}
	}
	return s, nil
}

// DomainName returns the EIP-712 domain name sent with the typed data
func (s *TypedDataSchema) DomainName() string { return s.domainName }

// PrimaryType returns the name of the message type
func (s *TypedDataSchema) PrimaryType() string { return s.primaryType }

// Types returns a copy of the message type definitions (excluding EIP712Domain)
func (s *TypedDataSchema) Types() apitypes.Types { return copyTypes(s.types) }

// Fields returns the field names declared for the primary type
func (s *TypedDataSchema) Fields() []string {
	fields := make([]string, 0, len(s.types[s.primaryType]))
	for _, f := range s.types[s.primaryType] {
		fields = append(fields, f.Name)
	}
	return fields
}

func (s *TypedDataSchema) typedData(message apitypes.TypedDataMessage) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       copyTypes(s.types),
		PrimaryType: s.primaryType,
		Domain:      apitypes.TypedDataDomain{Name: s.domainName},
		Message:     message,
	}
}

// DomainSeparator returns the EIP-712 domain separator used in every digest
func (s *TypedDataSchema) DomainSeparator() []byte {
	return append([]byte(nil), emptyDomainSeparator...)
}

// Hash returns the EIP-712 digest of message: keccak256(0x1901 || domainSeparator || hashStruct(message)).
//
// message values must be strings, []interface{} for arrays and map[string]interface{} for nested structs.
// Fields not declared in the schema are rejected.
func (s *TypedDataSchema) Hash(message apitypes.TypedDataMessage) ([]byte, error) {
	// go-ethereum encodes a struct with no fields as "EIP712Domain" rather than "EIP712Domain()",
	// so only the message struct is hashed by apitypes
	td := s.typedData(message)
	structHash, err := td.HashStruct(s.primaryType, message)
	if err != nil {
		return nil, WrapValidationError(err, "failed to encode typed data")
	}
	return ethcrypto.Keccak256([]byte{0x19, 0x01}, emptyDomainSeparator, structHash), nil
}

// Sign signs the EIP-712 digest of message and returns the 0x-prefixed hex signature.
func (s *TypedDataSchema) Sign(message apitypes.TypedDataMessage, key *ecdsa.PrivateKey) (string, error) {
	if key == nil || key.D == nil || key.D.Sign() == 0 {
		return "", NewSigningError("private key is not set")
	}
	digest, err := s.Hash(message)
	if err != nil {
		return "", WrapSigningError(err, "failed to hash typed data")
	}
	sig, err := ethcrypto.Sign(digest, key)
	if err != nil {
		return "", WrapSigningError(err, "failed to sign typed data")
	}
	sig[64] += recoveryIDOffset
	return hexutil.Encode(sig), nil
}

// Recover returns the address that produced signature over message.
//
// A signature that cannot be decoded or from which no public key can be recovered returns a
// VerificationError. A well formed signature over a different message recovers a different address.
func (s *TypedDataSchema) Recover(message apitypes.TypedDataMessage, signature string) (common.Address, error) {
	sig, err := DecodeSignature(signature)
	if err != nil {
		return common.Address{}, err
	}
	digest, err := s.Hash(message)
	if err != nil {
		return common.Address{}, WrapVerificationError(err, "failed to hash typed data")
	}
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, WrapVerificationError(err, "failed to recover public key")
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether signature over message was produced by expected.
// Addresses are compared case-insensitively.
func (s *TypedDataSchema) Verify(expected string, message apitypes.TypedDataMessage, signature string) (bool, error) {
	recovered, err := s.Recover(message, signature)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(recovered.Hex(), strings.TrimSpace(expected)), nil
}

// DecodeSignature decodes a hex signature and normalizes v to {0, 1}
func DecodeSignature(signature string) ([]byte, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return nil, WrapVerificationError(err, "signature is not 0x-prefixed hex")
	}
	if len(sig) != SignatureLength {
		return nil, NewVerificationError(fmt.Sprintf("signature must be %d bytes, got %d", SignatureLength, len(sig)))
	}
	switch v := sig[64]; {
	case v == 0 || v == 1:
	case v == recoveryIDOffset || v == recoveryIDOffset+1:
		sig[64] = v - recoveryIDOffset
	default:
		return nil, NewVerificationError(fmt.Sprintf("invalid signature recovery id %d", v))
	}
	return sig, nil
}

func copyTypes(types apitypes.Types) apitypes.Types {
	out := make(apitypes.Types, len(types))
	for name, fields := range types {
		out[name] = append([]apitypes.Type(nil), fields...)
	}
	return out
}
