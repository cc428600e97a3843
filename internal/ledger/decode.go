package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DecodedCall is a contract call decoded from transaction input data
type DecodedCall struct {
	Method string         `json:"method"`
	Args   map[string]any `json:"args"`
}

// DecodeInput decodes transaction input data against the contract interface
func (t *EthTransport) DecodeInput(data []byte) (*DecodedCall, error) {
	if len(data) < 4 {
		return nil, NewDecodingError("input data is too short to contain a method selector")
	}
	method, err := t.abi.MethodById(data[:4])
	if err != nil {
		return nil, WrapDecodingError(err, "unknown method selector")
	}
	args := make(map[string]any)
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, WrapDecodingError(err, fmt.Sprintf("failed to decode %s arguments", method.Name))
	}
	return &DecodedCall{Method: method.Name, Args: args}, nil
}

// FindTransferTokenID returns the token id from the first Transfer event emitted by contract in logs.
// The event has three indexed arguments so a matching log has four topics; the token id is the last.
func FindTransferTokenID(logs []*types.Log, contract common.Address, eventID common.Hash) (*big.Int, bool) {
	for _, l := range logs {
		if l == nil || l.Address != contract {
			continue
		}
		if len(l.Topics) != 4 || l.Topics[0] != eventID {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[3].Bytes()), true
	}
	return nil, false
}
