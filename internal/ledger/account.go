package ledger

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
)

// Account is a sending account: an address and the private key that controls it.
//
// The key is held only for the duration of an operation. Call Wipe when the operation is complete.
type Account struct {
	Address    common.Address
	PrivateKey *ecdsa.PrivateKey
}

// NewAccount parses privateKeyHex and returns the account it controls.
// If address is not empty it must match the key.
func NewAccount(address, privateKeyHex string) (Account, error) {
	key, err := crypto.ParsePrivateKeyHex(privateKeyHex)
	if err != nil {
		return Account{}, WrapSigningError(err, "invalid account key")
	}
	acct := Account{Address: crypto.AddressFromPrivateKey(key), PrivateKey: key}

	if address != "" {
		want, err := crypto.ParseAddress(address)
		if err != nil {
			acct.Wipe()
			return Account{}, WrapSigningError(err, "invalid account address")
		}
		if want != acct.Address {
			acct.Wipe()
			return Account{}, NewSigningError(fmt.Sprintf("private key does not control account %s", want.Hex()))
		}
	}
	return acct, nil
}

// Validate checks the key is present and controls Address
func (a Account) Validate() error {
	if a.PrivateKey == nil || a.PrivateKey.D == nil || a.PrivateKey.D.Sign() == 0 {
		return NewSigningError("account private key is not set")
	}
	if crypto.AddressFromPrivateKey(a.PrivateKey) != a.Address {
		return NewSigningError(fmt.Sprintf("private key does not control account %s", a.Address.Hex()))
	}
	return nil
}

// Wipe zeroes the private key. The account cannot sign after this call.
func (a Account) Wipe() {
	crypto.ZeroPrivateKey(a.PrivateKey)
}

// String never includes the key
func (a Account) String() string {
	return a.Address.Hex()
}
