package ledger

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

//go:embed abi/bl_nft.json
var contractABIJSON []byte

// TransferEvent is the event emitted when a token is created or changes owner:
// Transfer(address indexed from, address indexed to, uint256 indexed tokenId)
const TransferEvent = "Transfer"

// ContractABI returns the parsed B/L token contract interface
func ContractABI() (*abi.ABI, error) {
	parsed, err := abi.JSON(bytes.NewReader(contractABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return &parsed, nil
}

// TransferEventID returns topic0 of the Transfer event: keccak256("Transfer(address,address,uint256)")
func TransferEventID(contractABI *abi.ABI) common.Hash {
	return contractABI.Events[TransferEvent].ID
}
