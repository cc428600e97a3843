// crypto package provides the low level cryptographic functions used by the custody service:
// secp256k1 key handling, EIP-712 typed-data hashing, signing and address recovery, keccak-256 hashing and
// RFC 8785 JSON canonicalization.
//
// For standard usage (signing and verifying B/L documents) you will not need to call these functions directly.
// See the bl package for high level functions.
package crypto
