package custody

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
)

// TxResult is the outcome of a mined custody transaction
type TxResult struct {
	TxHash      common.Hash
	BlockNumber uint64

	// Success is the receipt status. A reverted transaction is returned as an error, so this is true
	// for every result returned without an error.
	Success bool
}

// MintResult is the outcome of a mint
type MintResult struct {
	TxResult
	TokenID *big.Int
}

// AcceptResult is the outcome of an accepted transfer
type AcceptResult struct {
	TxResult

	// Document is the document re-signed by the accepting account
	Document *bl.Document

	// Hash is the ledger fingerprint of Document recorded by acceptTransfer
	Hash string
}

// Token is the ledger state of a B/L token
type Token struct {
	ID          *big.Int
	Owner       common.Address
	Hash        string
	Used        bool
	Invalidated bool

	// OwnershipHistory lists every owner in order, starting with the minter
	OwnershipHistory []common.Address
}
