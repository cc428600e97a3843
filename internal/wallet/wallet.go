// package wallet resolves an external customer identifier (CID) to the ledger account used on its behalf.
//
// Wallets are provisioned ahead of time (see cmd/walletgen) and stored with their private key.
// The key is parsed into a ledger.Account only for the duration of an operation; callers must Wipe the
// account when done.
package wallet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
)

// ErrWalletNotFound is returned when no wallet is registered for a CID
var ErrWalletNotFound = errors.New("wallet not found")

// Provider resolves CIDs to wallets
type Provider interface {
	// GetWallet returns the wallet for cid, or ErrWalletNotFound.
	GetWallet(ctx context.Context, cid string) (*Wallet, error)
}

// Wallet is a provisioned ledger account
type Wallet struct {
	CID           string
	Address       string
	PrivateKeyHex string
}

// Account parses the wallet key. The key must control Address.
func (w *Wallet) Account() (ledger.Account, error) {
	return ledger.NewAccount(w.Address, w.PrivateKeyHex)
}

// LogValue omits the private key when a wallet or a pointer to one is logged
func (w Wallet) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("cid", w.CID),
		slog.String("address", w.Address),
	)
}

// Generate creates a wallet with a new random key
func Generate(cid string) (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroPrivateKey(key)

	return &Wallet{
		CID:           cid,
		Address:       crypto.AddressFromPrivateKey(key).Hex(),
		PrivateKeyHex: crypto.PrivateKeyToHex(key),
	}, nil
}
