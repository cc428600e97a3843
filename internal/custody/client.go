package custody

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
)

// Client exposes the custody operations of the B/L token contract.
// It holds no signer state and is safe for concurrent use.
type Client struct {
	transport ledger.Transport
	schema    *crypto.TypedDataSchema
	logger    *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithSchema sets the typed data schema used to check document proofs (default bl.DefaultSchema)
func WithSchema(schema *crypto.TypedDataSchema) Option {
	return func(c *Client) { c.schema = schema }
}

// New returns a client over transport
func New(transport ledger.Transport, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		transport: transport,
		schema:    bl.DefaultSchema,
		logger:    logger.With("component", "custody"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mint registers hash as a new token owned by acct and returns the token id from the Transfer event.
//
// A mined receipt without a Transfer event from the contract is an error (ErrCodeDecoding):
// the transaction succeeded but the token id cannot be determined.
func (c *Client) Mint(ctx context.Context, acct ledger.Account, hash string) (*MintResult, error) {
	if err := crypto.ValidateFingerprint(hash); err != nil {
		return nil, WrapValidationError(err, "invalid hash")
	}

	receipt, err := c.submit(ctx, acct, "mint", hash)
	if err != nil {
		return nil, err
	}

	tokenID, ok := ledger.FindTransferTokenID(receipt.Logs, c.transport.ContractAddress(), ledger.TransferEventID(c.transport.ABI()))
	if !ok {
		return nil, ledger.NewDecodingError(fmt.Sprintf("mint transaction %s emitted no Transfer event", receipt.TxHash.Hex()))
	}

	c.logger.Info("token minted",
		slog.String("token_id", tokenID.String()),
		slog.String("owner", acct.Address.Hex()),
		slog.String("tx_hash", receipt.TxHash.Hex()),
	)
	return &MintResult{TxResult: txResult(receipt), TokenID: tokenID}, nil
}

// RequestTransfer nominates to as the next owner of the token. acct must be the current owner.
func (c *Client) RequestTransfer(ctx context.Context, acct ledger.Account, tokenID *big.Int, to common.Address) (*TxResult, error) {
	if to == (common.Address{}) {
		return nil, NewValidationError("transfer recipient is required")
	}
	return c.transact(ctx, acct, tokenID, "requestTransfer", tokenID, to)
}

// AcceptTransfer records newHash and makes acct the owner. acct must be the nominated recipient.
//
// The caller is responsible for verifying that the document being accepted was signed by the current owner.
// Use AcceptSignedTransfer unless that check has already been made.
func (c *Client) AcceptTransfer(ctx context.Context, acct ledger.Account, tokenID *big.Int, newHash string) (*TxResult, error) {
	if err := crypto.ValidateFingerprint(newHash); err != nil {
		return nil, WrapValidationError(err, "invalid hash")
	}
	return c.transact(ctx, acct, tokenID, "acceptTransfer", tokenID, newHash)
}

// AcceptSignedTransfer accepts a transfer of signedDoc.
//
// The proof on signedDoc must have been made by the token's current owner and signedDoc must be the document
// whose hash is recorded for the token. The document is then re-signed by signer (which must be acct's key)
// and the hash of the re-signed document is recorded on the ledger.
func (c *Client) AcceptSignedTransfer(ctx context.Context, acct ledger.Account, signer *bl.Signer, tokenID *big.Int, signedDoc *bl.Document) (*AcceptResult, error) {
	if signer == nil {
		return nil, NewValidationError("signer is required")
	}
	if signer.Address() != acct.Address {
		return nil, NewValidationError("signer and account do not match")
	}

	if _, err := c.checkOwnerSignature(ctx, tokenID, signedDoc); err != nil {
		return nil, err
	}
	priorHash, err := signedDoc.Hash()
	if err != nil {
		return nil, err
	}
	current, err := c.Verify(ctx, tokenID, priorHash)
	if err != nil {
		return nil, err
	}
	if !current {
		return nil, NewSignatureMismatchError(fmt.Sprintf("document %s is not the version recorded for token %s", priorHash, tokenID))
	}

	resigned, err := signer.Create(signedDoc)
	if err != nil {
		return nil, err
	}
	hash, err := resigned.Hash()
	if err != nil {
		return nil, err
	}

	res, err := c.AcceptTransfer(ctx, acct, tokenID, hash)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{TxResult: *res, Document: resigned, Hash: hash}, nil
}

// Invalidate marks the token invalidated (terminal). acct must be the current owner.
func (c *Client) Invalidate(ctx context.Context, acct ledger.Account, tokenID *big.Int) (*TxResult, error) {
	return c.transact(ctx, acct, tokenID, "invalidate", tokenID)
}

// Use marks the token used (terminal). acct must be the current owner.
func (c *Client) Use(ctx context.Context, acct ledger.Account, tokenID *big.Int) (*TxResult, error) {
	return c.transact(ctx, acct, tokenID, "use", tokenID)
}

// Verify reports whether hash is the hash currently recorded for the token
func (c *Client) Verify(ctx context.Context, tokenID *big.Int, hash string) (bool, error) {
	if _, err := c.requireExists(ctx, tokenID); err != nil {
		return false, err
	}
	out, err := c.transport.Read(ctx, "verify", tokenID, hash)
	if err != nil {
		return false, err
	}
	return readBool(out, "verify")
}

// VerifySignedDocument checks signedDoc was signed by the current owner and that its hash is the one recorded
// for the token. A document signed by anyone else is a signature mismatch error; a correctly signed document
// that is not the current version returns false.
func (c *Client) VerifySignedDocument(ctx context.Context, tokenID *big.Int, signedDoc *bl.Document) (bool, error) {
	if _, err := c.checkOwnerSignature(ctx, tokenID, signedDoc); err != nil {
		return false, err
	}
	hash, err := signedDoc.Hash()
	if err != nil {
		return false, err
	}
	return c.Verify(ctx, tokenID, hash)
}

// Detail returns the ledger state of the token
func (c *Client) Detail(ctx context.Context, tokenID *big.Int) (*Token, error) {
	history, err := c.OwnershipHistory(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	token := &Token{ID: new(big.Int).Set(tokenID), OwnershipHistory: history}

	if token.Used, err = c.readBool(ctx, "used", tokenID); err != nil {
		return nil, err
	}
	if token.Invalidated, err = c.readBool(ctx, "invalidated", tokenID); err != nil {
		return nil, err
	}
	if token.Owner, err = c.ownerOf(ctx, tokenID); err != nil {
		return nil, err
	}

	out, err := c.transport.Read(ctx, "data", tokenID)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, ledger.NewDecodingError("data returned no value")
	}
	hash, ok := out[0].(string)
	if !ok {
		return nil, ledger.NewDecodingError(fmt.Sprintf("data returned %T, expected string", out[0]))
	}
	token.Hash = hash

	return token, nil
}

// OwnershipHistory returns every owner of the token in order. The history is read one entry at a time.
func (c *Client) OwnershipHistory(ctx context.Context, tokenID *big.Int) ([]common.Address, error) {
	length, err := c.requireExists(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	history := make([]common.Address, 0, length)
	for i := uint64(0); i < length; i++ {
		out, err := c.transport.Read(ctx, "ownershipHistory", tokenID, new(big.Int).SetUint64(i))
		if err != nil {
			return nil, err
		}
		addr, err := readAddress(out, "ownershipHistory")
		if err != nil {
			return nil, err
		}
		history = append(history, addr)
	}
	return history, nil
}

// Exists reports whether the token has been minted
func (c *Client) Exists(ctx context.Context, tokenID *big.Int) (bool, error) {
	n, err := c.historyLength(ctx, tokenID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// checkOwnerSignature returns the current owner after checking the proof on signedDoc was made by it
func (c *Client) checkOwnerSignature(ctx context.Context, tokenID *big.Int, signedDoc *bl.Document) (common.Address, error) {
	if signedDoc == nil || !signedDoc.IsSigned() {
		return common.Address{}, NewValidationError("signed document is required")
	}
	if _, err := c.requireExists(ctx, tokenID); err != nil {
		return common.Address{}, err
	}
	owner, err := c.ownerOf(ctx, tokenID)
	if err != nil {
		return common.Address{}, err
	}

	ok, err := bl.VerifySigned(c.schema, owner.Hex(), signedDoc)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		c.logger.Info("document not signed by current owner",
			slog.String("token_id", tokenID.String()),
			slog.String("owner", owner.Hex()),
		)
		return common.Address{}, NewSignatureMismatchError(fmt.Sprintf("document was not signed by the current owner of token %s", tokenID))
	}
	return owner, nil
}

// transact submits a state changing call for an existing token
func (c *Client) transact(ctx context.Context, acct ledger.Account, tokenID *big.Int, method string, args ...any) (*TxResult, error) {
	if _, err := c.requireExists(ctx, tokenID); err != nil {
		return nil, err
	}
	receipt, err := c.submit(ctx, acct, method, args...)
	if err != nil {
		return nil, err
	}

	c.logger.Info("custody transaction mined",
		slog.String("method", method),
		slog.String("token_id", tokenID.String()),
		slog.String("from", acct.Address.Hex()),
		slog.String("tx_hash", receipt.TxHash.Hex()),
	)
	res := txResult(receipt)
	return &res, nil
}

func (c *Client) submit(ctx context.Context, acct ledger.Account, method string, args ...any) (*types.Receipt, error) {
	tx, err := c.transport.BuildAndSign(ctx, acct, method, args...)
	if err != nil {
		return nil, err
	}
	receipt, err := c.transport.Submit(ctx, tx)
	if err != nil {
		c.logger.Warn("custody transaction failed",
			slog.String("method", method),
			slog.String("from", acct.Address.Hex()),
			slog.String("tx_hash", tx.Hash().Hex()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return receipt, nil
}

// requireExists returns the ownership history length, or a not found error if it is 0
func (c *Client) requireExists(ctx context.Context, tokenID *big.Int) (uint64, error) {
	n, err := c.historyLength(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, NewNotFoundError(fmt.Sprintf("token %s does not exist", tokenID))
	}
	return n, nil
}

func (c *Client) historyLength(ctx context.Context, tokenID *big.Int) (uint64, error) {
	if tokenID == nil || tokenID.Sign() < 0 {
		return 0, NewValidationError("token id must be a non-negative integer")
	}
	out, err := c.transport.Read(ctx, "ownershipHistoryLength", tokenID)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, ledger.NewDecodingError("ownershipHistoryLength returned no value")
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, ledger.NewDecodingError(fmt.Sprintf("ownershipHistoryLength returned %v", out[0]))
	}
	return n.Uint64(), nil
}

func (c *Client) ownerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	out, err := c.transport.Read(ctx, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return readAddress(out, "ownerOf")
}

func (c *Client) readBool(ctx context.Context, method string, tokenID *big.Int) (bool, error) {
	out, err := c.transport.Read(ctx, method, tokenID)
	if err != nil {
		return false, err
	}
	return readBool(out, method)
}

func readBool(out []any, method string) (bool, error) {
	if len(out) != 1 {
		return false, ledger.NewDecodingError(method + " returned no value")
	}
	v, ok := out[0].(bool)
	if !ok {
		return false, ledger.NewDecodingError(fmt.Sprintf("%s returned %T, expected bool", method, out[0]))
	}
	return v, nil
}

func readAddress(out []any, method string) (common.Address, error) {
	if len(out) != 1 {
		return common.Address{}, ledger.NewDecodingError(method + " returned no value")
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, ledger.NewDecodingError(fmt.Sprintf("%s returned %T, expected address", method, out[0]))
	}
	return v, nil
}

func txResult(receipt *types.Receipt) TxResult {
	res := TxResult{
		TxHash:  receipt.TxHash,
		Success: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res
}
