// this file contains functions to generate, parse and discard secp256k1 account keys
//
// Ledger accounts are secp256k1 key pairs. The account address is the last 20 bytes of the
// keccak-256 hash of the uncompressed public key.
//
// Private keys are exchanged as hex strings (with or without a 0x prefix).
// Key files contain a single hex encoded private key and are written with 0600 permissions.

package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// GenerateKey generates a new secp256k1 private key
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate key")
	}
	return key, nil
}

// ParsePrivateKeyHex parses a hex encoded secp256k1 private key.
// The 0x prefix is optional.
func ParsePrivateKeyHex(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, NewKeyManagementError("private key is empty")
	}
	key, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		// do not include the input in the error
		return nil, NewKeyManagementError("invalid private key: expected 32 byte hex encoded secp256k1 key")
	}
	return key, nil
}

// PrivateKeyToHex returns the hex encoding of the key without a 0x prefix
func PrivateKeyToHex(key *ecdsa.PrivateKey) string {
	return fmt.Sprintf("%x", ethcrypto.FromECDSA(key))
}

// AddressFromPrivateKey returns the account address for key
func AddressFromPrivateKey(key *ecdsa.PrivateKey) common.Address {
	return ethcrypto.PubkeyToAddress(key.PublicKey)
}

// ParseAddress parses a 0x-prefixed 20 byte hex address (any letter case).
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return common.Address{}, NewValidationError(fmt.Sprintf("invalid address %q: expected 0x-prefixed 20 byte hex", s))
	}
	return common.HexToAddress(s), nil
}

// ZeroPrivateKey overwrites the secret scalar of key.
// The key must not be used after this call.
func ZeroPrivateKey(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	words := key.D.Bits()
	for i := range words {
		words[i] = 0
	}
	key.D.SetInt64(0)
}

// ReadPrivateKeyFile reads a hex encoded private key from a file
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "carrier.key")
func ReadPrivateKeyFile(baseDir, filename string) (*ecdsa.PrivateKey, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to open root directory %s", baseDir))
	}
	defer root.Close()

	data, err := root.ReadFile(filename)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to read key file")
	}
	defer clear(data)

	return ParsePrivateKeyHex(string(data))
}

// SavePrivateKeyFile writes key as hex to a file
// note the key is not encrypted
func SavePrivateKeyFile(key *ecdsa.PrivateKey, baseDir, filename string) error {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return WrapKeyManagementError(err, fmt.Sprintf("failed to open root directory %s", baseDir))
	}
	defer root.Close()

	if err := root.WriteFile(filename, []byte(PrivateKeyToHex(key)+"\n"), 0600); err != nil {
		return WrapKeyManagementError(err, "failed to write key file")
	}
	return nil
}
