// this file provides the keccak-256 hashing used for ledger fingerprints.
//
// The ledger stores a fingerprint of the currently valid signed document. The fingerprint is the
// keccak-256 hash of the RFC 8785 canonical JSON of the signed document, encoded as 0x-prefixed lowercase hex.
// Canonicalization (gowebpki/jcs) makes the fingerprint independent of key order and whitespace.

package crypto

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gowebpki/jcs"
)

// Keccak256Hex returns the keccak-256 hash of data as 0x-prefixed lowercase hex.
func Keccak256Hex(data []byte) string {
	return hexutil.Encode(ethcrypto.Keccak256(data))
}

// HashJSON canonicalizes jsonData (RFC 8785) and returns the keccak-256 fingerprint.
func HashJSON(jsonData []byte) (string, error) {
	if len(jsonData) == 0 {
		return "", NewValidationError("data is empty")
	}
	canonical, err := jcs.Transform(jsonData)
	if err != nil {
		return "", WrapValidationError(err, "failed to canonicalize JSON")
	}
	return Keccak256Hex(canonical), nil
}

// IsFingerprint reports whether s is a 0x-prefixed 32 byte hex string.
func IsFingerprint(s string) bool {
	if len(s) != 66 || !strings.HasPrefix(s, "0x") {
		return false
	}
	_, err := hexutil.Decode(s)
	return err == nil
}

// ValidateFingerprint returns a validation error if s is not a fingerprint produced by HashJSON.
func ValidateFingerprint(s string) error {
	if !IsFingerprint(s) {
		return NewValidationError(fmt.Sprintf("invalid document hash %q: expected 0x-prefixed 32 byte hex", s))
	}
	return nil
}
