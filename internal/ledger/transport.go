package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the subset of the JSON-RPC API used by the transport (implemented by *ethclient.Client).
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Transport is the capability used by the custody client to talk to the token contract.
type Transport interface {
	ContractAddress() common.Address
	ABI() *abi.ABI

	// EncodeCall returns the call data for method
	EncodeCall(method string, args ...any) ([]byte, error)

	// NonceFor returns the next nonce for address. It is fetched from the node on every call.
	NonceFor(ctx context.Context, address common.Address) (uint64, error)

	// BuildAndSign encodes the call, fetches a fresh nonce and signs a transaction from account to the contract.
	BuildAndSign(ctx context.Context, account Account, method string, args ...any) (*types.Transaction, error)

	// Submit sends a signed transaction and waits for its receipt.
	Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	// Read makes a read-only call and returns the decoded outputs.
	Read(ctx context.Context, method string, args ...any) ([]any, error)

	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	LatestGasLimit(ctx context.Context) (uint64, error)
	DecodeInput(data []byte) (*DecodedCall, error)
}

// Config configures the transport
type Config struct {
	ContractAddress common.Address

	// ChainID used to sign transactions. If nil the node is asked once and the value reused.
	ChainID *big.Int

	// GasLimit is applied to every transaction
	GasLimit uint64

	// Timeout bounds every call to the node. For Submit it bounds the whole send-and-wait.
	Timeout time.Duration

	// ReceiptPollInterval is how often Submit asks for the receipt of a sent transaction
	ReceiptPollInterval time.Duration
}

func (c Config) validate() error {
	if c.ContractAddress == (common.Address{}) {
		return fmt.Errorf("contract address is required")
	}
	if c.GasLimit == 0 {
		return fmt.Errorf("gas limit must be greater than 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	if c.ReceiptPollInterval <= 0 {
		return fmt.Errorf("receipt poll interval must be greater than 0")
	}
	return nil
}

// EthTransport implements Transport over a JSON-RPC backend
type EthTransport struct {
	backend Backend
	client  *ethclient.Client // set by Dial, nil in tests
	abi     *abi.ABI
	cfg     Config
	logger  *slog.Logger

	chainIDMu sync.Mutex
	chainID   *big.Int
}

// Dial connects to the node at rpcURL and returns a transport for the configured contract.
func Dial(ctx context.Context, rpcURL string, cfg Config, logger *slog.Logger) (*EthTransport, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, rpcURL)
	if err != nil {
		return nil, WrapTransportError(err, "failed to connect to ledger node")
	}

	t, err := New(client, cfg, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	t.client = client
	return t, nil
}

// New returns a transport over backend
func New(backend Backend, cfg Config, logger *slog.Logger) (*EthTransport, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid ledger config: %w", err)
	}
	contractABI, err := ContractABI()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EthTransport{
		backend: backend,
		abi:     contractABI,
		cfg:     cfg,
		logger:  logger.With("component", "ledger"),
		chainID: cfg.ChainID,
	}, nil
}

// Close releases the RPC connection opened by Dial
func (t *EthTransport) Close() {
	if t.client != nil {
		t.client.Close()
	}
}

func (t *EthTransport) ContractAddress() common.Address { return t.cfg.ContractAddress }
func (t *EthTransport) ABI() *abi.ABI                    { return t.abi }

// ChainID returns the configured chain id, or asks the node the first time it is needed.
func (t *EthTransport) ChainID(ctx context.Context) (*big.Int, error) {
	t.chainIDMu.Lock()
	defer t.chainIDMu.Unlock()

	if t.chainID != nil {
		return new(big.Int).Set(t.chainID), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	id, err := t.backend.ChainID(callCtx)
	if err != nil {
		return nil, classifyCallError(err, "failed to get chain id")
	}
	t.chainID = id
	return new(big.Int).Set(id), nil
}

func (t *EthTransport) EncodeCall(method string, args ...any) ([]byte, error) {
	if _, ok := t.abi.Methods[method]; !ok {
		return nil, NewEncodingError(fmt.Sprintf("method %q is not part of the contract interface", method))
	}
	data, err := t.abi.Pack(method, args...)
	if err != nil {
		return nil, WrapEncodingError(err, fmt.Sprintf("failed to encode %s call", method))
	}
	return data, nil
}

func (t *EthTransport) NonceFor(ctx context.Context, address common.Address) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	nonce, err := t.backend.PendingNonceAt(callCtx, address)
	if err != nil {
		return 0, classifyCallError(err, fmt.Sprintf("failed to get nonce for %s", address.Hex()))
	}
	return nonce, nil
}

func (t *EthTransport) BuildAndSign(ctx context.Context, account Account, method string, args ...any) (*types.Transaction, error) {
	if err := account.Validate(); err != nil {
		return nil, err
	}

	data, err := t.EncodeCall(method, args...)
	if err != nil {
		return nil, err
	}

	chainID, err := t.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	gasCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	gasPrice, err := t.backend.SuggestGasPrice(gasCtx)
	cancel()
	if err != nil {
		return nil, classifyCallError(err, "failed to get gas price")
	}

	// the nonce is fetched last so that it is as fresh as possible when the transaction is sent
	nonce, err := t.NonceFor(ctx, account.Address)
	if err != nil {
		return nil, err
	}

	contract := t.cfg.ContractAddress
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      t.cfg.GasLimit,
		To:       &contract,
		Value:    new(big.Int),
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), account.PrivateKey)
	if err != nil {
		return nil, WrapSigningError(err, "failed to sign transaction")
	}

	t.logger.Debug("transaction signed",
		slog.String("method", method),
		slog.String("from", account.Address.Hex()),
		slog.Uint64("nonce", nonce),
		slog.String("tx_hash", signed.Hash().Hex()),
	)
	return signed, nil
}

// Submit sends tx and polls for its receipt until it is mined or the timeout expires.
//
// A receipt with a failed status is returned together with a SubmissionError carrying the revert reason.
func (t *EthTransport) Submit(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	log := t.logger.With(slog.String("tx_hash", tx.Hash().Hex()), slog.Uint64("nonce", tx.Nonce()))

	if err := t.backend.SendTransaction(ctx, tx); err != nil {
		return nil, classifySendError(err)
	}
	log.Debug("transaction sent")

	receipt, err := t.waitMined(ctx, tx.Hash())
	if err != nil {
		log.Warn("transaction receipt not available", slog.String("error", err.Error()))
		return nil, err
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		reason := t.replayRevertReason(ctx, tx, receipt)
		log.Info("transaction reverted",
			slog.Uint64("block", receipt.BlockNumber.Uint64()),
			slog.String("reason", reason),
		)
		return receipt, NewSubmissionError(fmt.Sprintf("transaction %s reverted", tx.Hash().Hex()), reason)
	}

	log.Debug("transaction mined", slog.Uint64("block", receipt.BlockNumber.Uint64()))
	return receipt, nil
}

func (t *EthTransport) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(t.cfg.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, classifyCallError(err, fmt.Sprintf("failed to get receipt for %s", hash.Hex()))
		}

		select {
		case <-ctx.Done():
			return nil, WrapTransportError(ctx.Err(), fmt.Sprintf("transaction %s was not mined before the timeout (it may still be pending)", hash.Hex()))
		case <-ticker.C:
		}
	}
}

// replayRevertReason re-executes a failed transaction as a call at the block it was mined in
// to recover the revert reason. Returns "" if no reason is available.
func (t *EthTransport) replayRevertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string {
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil {
		return ""
	}
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	if _, err := t.backend.CallContract(ctx, msg, receipt.BlockNumber); err != nil {
		return revertReason(err)
	}
	return ""
}

func (t *EthTransport) Read(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := t.EncodeCall(method, args...)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	contract := t.cfg.ContractAddress
	out, err := t.backend.CallContract(callCtx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, classifyCallError(err, fmt.Sprintf("%s call failed", method))
	}

	values, err := t.abi.Unpack(method, out)
	if err != nil {
		return nil, WrapDecodingError(err, fmt.Sprintf("failed to decode %s result", method))
	}
	return values, nil
}

func (t *EthTransport) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	tx, pending, err := t.backend.TransactionByHash(callCtx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, false, err
		}
		return nil, false, classifyCallError(err, fmt.Sprintf("failed to get transaction %s", hash.Hex()))
	}
	return tx, pending, nil
}

// LatestGasLimit returns the gas limit of the latest block
func (t *EthTransport) LatestGasLimit(ctx context.Context) (uint64, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	header, err := t.backend.HeaderByNumber(callCtx, nil)
	if err != nil {
		return 0, classifyCallError(err, "failed to get latest block")
	}
	return header.GasLimit, nil
}
