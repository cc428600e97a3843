package ledger_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/information-sharing-networks/bl-custody/internal/ledger/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testChainID = 1337
	docHash     = "0x5fd924625f6ab16a19cc9807c7c506ae1813490e4ba675f843d5a10e0baacdb8"
)

var contractAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func newTestTransport(t *testing.T) (*ledger.EthTransport, *testutil.Backend) {
	t.Helper()
	backend := testutil.NewBackend(contractAddress, testChainID)
	tr, err := ledger.New(backend, ledger.Config{
		ContractAddress:     contractAddress,
		GasLimit:            0x1ffffffffffffe,
		Timeout:             2 * time.Second,
		ReceiptPollInterval: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)
	return tr, backend
}

func testAccount(t *testing.T) ledger.Account {
	t.Helper()
	acct, err := ledger.NewAccount(testAddress, testKeyHex)
	require.NoError(t, err)
	return acct
}

func TestNewAccount(t *testing.T) {
	tests := []struct {
		name    string
		address string
		key     string
		wantErr bool
	}{
		{"matching address", testAddress, testKeyHex, false},
		{"lower case address", "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", "0x" + testKeyHex, false},
		{"address derived from key", "", testKeyHex, false},
		{"address mismatch", "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", testKeyHex, true},
		{"invalid key", testAddress, "0x1234", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct, err := ledger.NewAccount(tt.address, tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, ledger.ErrCodeSigning, ledger.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testAddress, acct.Address.Hex())
			assert.NotContains(t, acct.String(), testKeyHex[:16])
		})
	}
}

func TestAccountWipe(t *testing.T) {
	acct := testAccount(t)
	require.NoError(t, acct.Validate())

	acct.Wipe()
	assert.Zero(t, acct.PrivateKey.D.Sign())
	assert.Error(t, acct.Validate())
}

func TestEncodeCall(t *testing.T) {
	tr, _ := newTestTransport(t)

	tests := []struct {
		name     string
		method   string
		args     []any
		wantCode ledger.ErrorCode
	}{
		{"mint", "mint", []any{docHash}, ""},
		{"requestTransfer", "requestTransfer", []any{big.NewInt(1), common.HexToAddress(testAddress)}, ""},
		{"unknown method", "burn", []any{big.NewInt(1)}, ledger.ErrCodeEncoding},
		{"wrong argument type", "mint", []any{big.NewInt(1)}, ledger.ErrCodeEncoding},
		{"missing argument", "acceptTransfer", []any{big.NewInt(1)}, ledger.ErrCodeEncoding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tr.EncodeCall(tt.method, tt.args...)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, ledger.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tr.ABI().Methods[tt.method].ID, data[:4])
		})
	}
}

func TestDecodeInput(t *testing.T) {
	tr, _ := newTestTransport(t)

	data, err := tr.EncodeCall("acceptTransfer", big.NewInt(42), docHash)
	require.NoError(t, err)

	call, err := tr.DecodeInput(data)
	require.NoError(t, err)
	assert.Equal(t, "acceptTransfer", call.Method)
	assert.Equal(t, 0, big.NewInt(42).Cmp(call.Args["tokenId"].(*big.Int)))
	assert.Equal(t, docHash, call.Args["newHash"])

	_, err = tr.DecodeInput([]byte{0x01, 0x02})
	assert.Equal(t, ledger.ErrCodeDecoding, ledger.CodeOf(err))

	_, err = tr.DecodeInput([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Equal(t, ledger.ErrCodeDecoding, ledger.CodeOf(err))
}

func TestBuildAndSign(t *testing.T) {
	tr, _ := newTestTransport(t)
	acct := testAccount(t)

	tx, err := tr.BuildAndSign(context.Background(), acct, "mint", docHash)
	require.NoError(t, err)

	assert.Equal(t, uint64(0x1ffffffffffffe), tx.Gas())
	assert.Equal(t, contractAddress, *tx.To())
	assert.Equal(t, uint64(0), tx.Nonce())
	assert.Equal(t, int64(testChainID), tx.ChainId().Int64())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(testChainID)), tx)
	require.NoError(t, err)
	assert.Equal(t, acct.Address, from)
}

func TestBuildAndSign_RejectsInvalidAccount(t *testing.T) {
	tr, backend := newTestTransport(t)
	acct := testAccount(t)
	acct.Address = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")

	_, err := tr.BuildAndSign(context.Background(), acct, "mint", docHash)
	assert.Equal(t, ledger.ErrCodeSigning, ledger.CodeOf(err))
	assert.Zero(t, backend.SentCount())
}

func TestSubmit_NonceMonotonicity(t *testing.T) {
	tr, backend := newTestTransport(t)
	acct := testAccount(t)
	ctx := context.Background()

	var nonces []uint64
	for range 3 {
		tx, err := tr.BuildAndSign(ctx, acct, "mint", docHash)
		require.NoError(t, err)
		receipt, err := tr.Submit(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
		nonces = append(nonces, tx.Nonce())
	}

	require.Len(t, backend.Sent, 3)
	for i := 1; i < len(nonces); i++ {
		assert.Greater(t, nonces[i], nonces[i-1])
	}
}

func TestSubmit_StaleNonceIsSubmissionError(t *testing.T) {
	tr, _ := newTestTransport(t)
	acct := testAccount(t)
	ctx := context.Background()

	first, err := tr.BuildAndSign(ctx, acct, "mint", docHash)
	require.NoError(t, err)
	second, err := tr.BuildAndSign(ctx, acct, "mint", docHash)
	require.NoError(t, err)
	require.Equal(t, first.Nonce(), second.Nonce())

	_, err = tr.Submit(ctx, first)
	require.NoError(t, err)

	_, err = tr.Submit(ctx, second)
	require.Error(t, err)
	assert.Equal(t, ledger.ErrCodeSubmission, ledger.CodeOf(err))
	assert.Contains(t, err.Error(), "nonce too low")
}

func TestSubmit_WaitsForReceipt(t *testing.T) {
	tr, backend := newTestTransport(t)
	backend.PendingPolls = 3

	tx, err := tr.BuildAndSign(context.Background(), testAccount(t), "mint", docHash)
	require.NoError(t, err)

	receipt, err := tr.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), receipt.TxHash)
}

func TestSubmit_ReceiptTimeout(t *testing.T) {
	backend := testutil.NewBackend(contractAddress, testChainID)
	backend.PendingPolls = 1_000_000
	tr, err := ledger.New(backend, ledger.Config{
		ContractAddress:     contractAddress,
		GasLimit:            0x1ffffffffffffe,
		Timeout:             50 * time.Millisecond,
		ReceiptPollInterval: 5 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	tx, err := tr.BuildAndSign(context.Background(), testAccount(t), "mint", docHash)
	require.NoError(t, err)

	_, err = tr.Submit(context.Background(), tx)
	require.Error(t, err)
	assert.Equal(t, ledger.ErrCodeTransport, ledger.CodeOf(err))
	assert.True(t, ledger.IsTimeout(err))
}

func TestSubmit_RevertedTransaction(t *testing.T) {
	tr, _ := newTestTransport(t)
	ctx := context.Background()

	// token 99 does not exist so the contract reverts
	tx, err := tr.BuildAndSign(ctx, testAccount(t), "use", big.NewInt(99))
	require.NoError(t, err)

	receipt, err := tr.Submit(ctx, tx)
	require.Error(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)
	assert.Equal(t, ledger.ErrCodeSubmission, ledger.CodeOf(err))
	assert.Equal(t, "token does not exist", ledger.RevertReason(err))
}

func TestSubmit_RejectedWithRevertData(t *testing.T) {
	tr, backend := newTestTransport(t)
	ctx := context.Background()

	tx, err := tr.BuildAndSign(ctx, testAccount(t), "mint", docHash)
	require.NoError(t, err)

	backend.SendErr = testutil.RevertError("hash already registered")
	_, err = tr.Submit(ctx, tx)
	assert.Equal(t, ledger.ErrCodeSubmission, ledger.CodeOf(err))
	assert.Equal(t, "hash already registered", ledger.RevertReason(err))

	// revert reason in the message only
	backend.SendErr = &testutil.RPCError{Code: -32000, Message: "execution reverted: not allowed"}
	_, err = tr.Submit(ctx, tx)
	assert.Equal(t, "not allowed", ledger.RevertReason(err))
}

func TestSubmit_NetworkFailureIsTransportError(t *testing.T) {
	tr, backend := newTestTransport(t)
	ctx := context.Background()

	tx, err := tr.BuildAndSign(ctx, testAccount(t), "mint", docHash)
	require.NoError(t, err)

	backend.SendErr = errors.New("dial tcp 127.0.0.1:8545: connect: connection refused")
	_, err = tr.Submit(ctx, tx)
	assert.Equal(t, ledger.ErrCodeTransport, ledger.CodeOf(err))
	assert.False(t, ledger.IsTimeout(err))
}

func TestRead(t *testing.T) {
	tr, _ := newTestTransport(t)
	ctx := context.Background()

	out, err := tr.Read(ctx, "ownershipHistoryLength", big.NewInt(1))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(0), out[0].(*big.Int).Int64())

	tx, err := tr.BuildAndSign(ctx, testAccount(t), "mint", docHash)
	require.NoError(t, err)
	_, err = tr.Submit(ctx, tx)
	require.NoError(t, err)

	out, err = tr.Read(ctx, "data", big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, docHash, out[0])

	_, err = tr.Read(ctx, "ownerOf", big.NewInt(7))
	assert.Equal(t, ledger.ErrCodeSubmission, ledger.CodeOf(err))
	assert.Equal(t, "token does not exist", ledger.RevertReason(err))

	_, err = tr.Read(ctx, "balanceOf", common.HexToAddress(testAddress))
	assert.Equal(t, ledger.ErrCodeEncoding, ledger.CodeOf(err))
}

func TestTransactionByHashAndGasLimit(t *testing.T) {
	tr, _ := newTestTransport(t)
	ctx := context.Background()

	tx, err := tr.BuildAndSign(ctx, testAccount(t), "mint", docHash)
	require.NoError(t, err)
	_, err = tr.Submit(ctx, tx)
	require.NoError(t, err)

	got, pending, err := tr.TransactionByHash(ctx, tx.Hash())
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, tx.Hash(), got.Hash())

	limit, err := tr.LatestGasLimit(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(30_000_000), limit)
}

func TestFindTransferTokenID(t *testing.T) {
	tr, _ := newTestTransport(t)
	eventID := ledger.TransferEventID(tr.ABI())
	other := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	transfer := func(addr common.Address, id int64) *types.Log {
		return &types.Log{Address: addr, Topics: []common.Hash{
			eventID, {}, common.BytesToHash(common.HexToAddress(testAddress).Bytes()), common.BigToHash(big.NewInt(id)),
		}}
	}

	tests := []struct {
		name   string
		logs   []*types.Log
		wantID int64
		wantOK bool
	}{
		{"single transfer", []*types.Log{transfer(contractAddress, 5)}, 5, true},
		{"first matching log wins", []*types.Log{transfer(contractAddress, 5), transfer(contractAddress, 6)}, 5, true},
		{"other contract ignored", []*types.Log{transfer(other, 9), transfer(contractAddress, 3)}, 3, true},
		{"other event ignored", []*types.Log{{Address: contractAddress, Topics: []common.Hash{{0x01}, {}, {}, {}}}}, 0, false},
		{"wrong topic count", []*types.Log{{Address: contractAddress, Topics: []common.Hash{eventID, {}, {}}}}, 0, false},
		{"no logs", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ledger.FindTransferTokenID(tt.logs, contractAddress, eventID)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, id.Int64())
			}
		})
	}
}

func TestTransferEventID(t *testing.T) {
	tr, _ := newTestTransport(t)
	assert.Equal(t,
		"0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef",
		ledger.TransferEventID(tr.ABI()).Hex())
}
