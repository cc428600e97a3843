package testutil

// backend.go provides an in-memory ledger.Backend that simulates the B/L token contract.
//
// Transactions are mined immediately (one block per transaction) unless PendingPolls is set.
// Nonces are checked the way a node does: a transaction must use the sender's next nonce.

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
)

// RPCError is a JSON-RPC error response (implements rpc.Error and rpc.DataError)
type RPCError struct {
	Code    int
	Message string
	Data    any
}

func (e *RPCError) Error() string  { return e.Message }
func (e *RPCError) ErrorCode() int { return e.Code }
func (e *RPCError) ErrorData() any { return e.Data }

// RevertError returns the error a node returns for a call that reverted with reason
func RevertError(reason string) *RPCError {
	return &RPCError{
		Code:    3,
		Message: "execution reverted: " + reason,
		Data:    hexutil.Encode(RevertData(reason)),
	}
}

// RevertData ABI encodes reason as Error(string)
func RevertData(reason string) []byte {
	stringType, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return append([]byte{0x08, 0xc3, 0x79, 0xa0}, packed...)
}

// Token is the simulated contract state of one token
type Token struct {
	Owner       common.Address
	Hash        string
	History     []common.Address
	Pending     *common.Address
	Used        bool
	Invalidated bool
}

// Backend is an in-memory ledger.Backend
type Backend struct {
	mu sync.Mutex

	chainID  *big.Int
	contract common.Address
	abi      *abi.ABI
	signer   types.Signer

	nonces   map[common.Address]uint64
	txs      map[common.Hash]*types.Transaction
	receipts map[common.Hash]*types.Receipt
	pending  map[common.Hash]int
	tokens   map[uint64]*Token
	nextID   uint64
	block    uint64

	// Sent lists the transactions accepted by SendTransaction in order
	Sent []*types.Transaction

	// Calls counts eth_call invocations per method
	Calls map[string]int

	// SendErr is returned by SendTransaction when set
	SendErr error

	// CallErr is returned by CallContract when set
	CallErr error

	// ReceiptErr is returned by TransactionReceipt when set
	ReceiptErr error

	// PendingPolls is the number of receipt polls that report the transaction as not yet mined
	PendingPolls int

	// SuppressTransferLogs mines mint transactions without emitting the Transfer event
	SuppressTransferLogs bool

	// BlockGasLimit is reported by HeaderByNumber
	BlockGasLimit uint64
}

// NewBackend returns a backend with the token contract deployed at contract
func NewBackend(contract common.Address, chainID int64) *Backend {
	contractABI, err := ledger.ContractABI()
	if err != nil {
		panic(err)
	}
	id := big.NewInt(chainID)
	return &Backend{
		chainID:       id,
		contract:      contract,
		abi:           contractABI,
		signer:        types.LatestSignerForChainID(id),
		nonces:        make(map[common.Address]uint64),
		txs:           make(map[common.Hash]*types.Transaction),
		receipts:      make(map[common.Hash]*types.Receipt),
		pending:       make(map[common.Hash]int),
		tokens:        make(map[uint64]*Token),
		nextID:        1,
		Calls:         make(map[string]int),
		BlockGasLimit: 30_000_000,
	}
}

// Token returns a copy of the simulated state of token id
func (b *Backend) Token(id uint64) (Token, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tokens[id]
	if !ok {
		return Token{}, false
	}
	c := *t
	c.History = append([]common.Address(nil), t.History...)
	return c, true
}

// SentCount returns the number of transactions accepted
func (b *Backend) SentCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Sent)
}

func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(b.chainID), nil
}

func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SendErr != nil {
		return b.SendErr
	}

	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return &RPCError{Code: -32000, Message: "invalid sender: " + err.Error()}
	}
	switch next := b.nonces[from]; {
	case tx.Nonce() < next:
		return &RPCError{Code: -32000, Message: fmt.Sprintf("nonce too low: next nonce %d, tx nonce %d", next, tx.Nonce())}
	case tx.Nonce() > next:
		return &RPCError{Code: -32000, Message: fmt.Sprintf("nonce too high: next nonce %d, tx nonce %d", next, tx.Nonce())}
	}
	if tx.To() == nil || *tx.To() != b.contract {
		return &RPCError{Code: -32000, Message: "unknown contract"}
	}

	b.nonces[from]++
	b.block++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.block),
		GasUsed:     21000,
	}
	_, logs, reason := b.execute(from, tx.Data(), true)
	if reason != "" {
		receipt.Status = types.ReceiptStatusFailed
	} else {
		for i, l := range logs {
			l.TxHash = tx.Hash()
			l.BlockNumber = b.block
			l.Index = uint(i)
		}
		receipt.Logs = logs
	}

	b.Sent = append(b.Sent, tx)
	b.txs[tx.Hash()] = tx
	b.receipts[tx.Hash()] = receipt
	b.pending[tx.Hash()] = b.PendingPolls
	return nil
}

func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ReceiptErr != nil {
		return nil, b.ReceiptErr
	}
	if b.pending[txHash] > 0 {
		b.pending[txHash]--
		return nil, ethereum.NotFound
	}
	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *Backend) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[hash]
	if !ok {
		return nil, false, ethereum.NotFound
	}
	return tx, b.pending[hash] > 0, nil
}

func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.block), GasLimit: b.BlockGasLimit}, nil
}

func (b *Backend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.CallErr != nil {
		return nil, b.CallErr
	}
	if call.To == nil || *call.To != b.contract {
		// no code at the address
		return nil, nil
	}
	out, _, reason := b.execute(call.From, call.Data, false)
	if reason != "" {
		return nil, RevertError(reason)
	}
	return out, nil
}

// execute runs a contract call. State is only changed when commit is true.
// A non-empty reason means the call reverted.
func (b *Backend) execute(from common.Address, data []byte, commit bool) ([]byte, []*types.Log, string) {
	if len(data) < 4 {
		return nil, nil, "missing selector"
	}
	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, "unknown selector"
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, "invalid arguments"
	}
	if !commit {
		b.Calls[method.Name]++
	}

	var (
		out  []any
		logs []*types.Log
	)

	switch method.Name {
	case "mint":
		id := b.nextID
		if commit {
			b.nextID++
			b.tokens[id] = &Token{Owner: from, Hash: args[0].(string), History: []common.Address{from}}
			if !b.SuppressTransferLogs {
				logs = append(logs, b.transferLog(common.Address{}, from, id))
			}
		}
		out = []any{new(big.Int).SetUint64(id)}

	case "requestTransfer":
		t, reason := b.ownedToken(args[0].(*big.Int), from)
		if reason != "" {
			return nil, nil, reason
		}
		to := args[1].(common.Address)
		if to == (common.Address{}) {
			return nil, nil, "transfer to the zero address"
		}
		if commit {
			t.Pending = &to
		}

	case "acceptTransfer":
		t, reason := b.activeToken(args[0].(*big.Int))
		if reason != "" {
			return nil, nil, reason
		}
		if t.Pending == nil || *t.Pending != from {
			return nil, nil, "caller is not the requested recipient"
		}
		if commit {
			logs = append(logs, b.transferLog(t.Owner, from, args[0].(*big.Int).Uint64()))
			t.Owner = from
			t.Hash = args[1].(string)
			t.History = append(t.History, from)
			t.Pending = nil
		}

	case "invalidate", "use":
		t, reason := b.ownedToken(args[0].(*big.Int), from)
		if reason != "" {
			return nil, nil, reason
		}
		if commit {
			if method.Name == "use" {
				t.Used = true
			} else {
				t.Invalidated = true
			}
		}

	case "verify":
		t, ok := b.tokens[args[0].(*big.Int).Uint64()]
		out = []any{ok && t.Hash == args[1].(string)}

	case "ownerOf", "data", "used", "invalidated":
		t, ok := b.tokens[args[0].(*big.Int).Uint64()]
		if !ok {
			return nil, nil, "token does not exist"
		}
		switch method.Name {
		case "ownerOf":
			out = []any{t.Owner}
		case "data":
			out = []any{t.Hash}
		case "used":
			out = []any{t.Used}
		case "invalidated":
			out = []any{t.Invalidated}
		}

	case "ownershipHistoryLength":
		n := 0
		if t, ok := b.tokens[args[0].(*big.Int).Uint64()]; ok {
			n = len(t.History)
		}
		out = []any{big.NewInt(int64(n))}

	case "ownershipHistory":
		t, ok := b.tokens[args[0].(*big.Int).Uint64()]
		idx := args[1].(*big.Int)
		if !ok || !idx.IsUint64() || idx.Uint64() >= uint64(len(t.History)) {
			return nil, nil, "index out of range"
		}
		out = []any{t.History[idx.Uint64()]}

	default:
		return nil, nil, "not implemented"
	}

	packed, err := method.Outputs.Pack(out...)
	if err != nil {
		panic(fmt.Sprintf("packing %s outputs: %v", method.Name, err))
	}
	return packed, logs, ""
}

func (b *Backend) activeToken(id *big.Int) (*Token, string) {
	t, ok := b.tokens[id.Uint64()]
	if !ok {
		return nil, "token does not exist"
	}
	if t.Used {
		return nil, "token has been used"
	}
	if t.Invalidated {
		return nil, "token has been invalidated"
	}
	return t, ""
}

func (b *Backend) ownedToken(id *big.Int, caller common.Address) (*Token, string) {
	t, reason := b.activeToken(id)
	if reason != "" {
		return nil, reason
	}
	if t.Owner != caller {
		return nil, "caller is not the owner"
	}
	return t, ""
}

func (b *Backend) transferLog(from, to common.Address, id uint64) *types.Log {
	return &types.Log{
		Address: b.contract,
		Topics: []common.Hash{
			ledger.TransferEventID(b.abi),
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(new(big.Int).SetUint64(id)),
		},
	}
}
