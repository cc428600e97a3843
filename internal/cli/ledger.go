package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/information-sharing-networks/bl-custody/internal/api"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/custody"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/spf13/cobra"
)

// tokenDetail is printed by blctl detail
type tokenDetail struct {
	ID               string   `json:"bl_id"`
	Hash             string   `json:"bl_hash"`
	Owner            string   `json:"owner"`
	OwnershipHistory []string `json:"ownershipHistory"`
	Invalidated      bool     `json:"invalidated"`
	Used             bool     `json:"used"`
}

func (a *app) detailCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detail <bl_id>",
		Short: "Show the ledger state of a B/L token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCustody(cmd.Context(), func(ctx context.Context, client *custody.Client) error {
				id, err := api.ParseBLID(args[0])
				if err != nil {
					return err
				}
				token, err := client.Detail(ctx, id.BigInt())
				if err != nil {
					return err
				}

				out := tokenDetail{
					ID:          token.ID.String(),
					Hash:        token.Hash,
					Owner:       token.Owner.Hex(),
					Invalidated: token.Invalidated,
					Used:        token.Used,
				}
				for _, owner := range token.OwnershipHistory {
					out.OwnershipHistory = append(out.OwnershipHistory, owner.Hex())
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <bl_id>",
		Short: "List the owners of a B/L token, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCustody(cmd.Context(), func(ctx context.Context, client *custody.Client) error {
				id, err := api.ParseBLID(args[0])
				if err != nil {
					return err
				}
				history, err := client.OwnershipHistory(ctx, id.BigInt())
				if err != nil {
					return err
				}
				owners := make([]string, 0, len(history))
				for _, owner := range history {
					owners = append(owners, owner.Hex())
				}
				return writeJSON(cmd.OutOrStdout(), owners)
			})
		},
	}
}

// txInfo is printed by blctl tx
type txInfo struct {
	Hash    string              `json:"tx_hash"`
	Pending bool                `json:"pending"`
	To      string              `json:"to,omitempty"`
	Nonce   uint64              `json:"nonce"`
	Gas     uint64              `json:"gas"`
	Call    *ledger.DecodedCall `json:"call,omitempty"`
}

// nodeInfo is printed by blctl node
type nodeInfo struct {
	Contract      string `json:"contract"`
	BlockGasLimit uint64 `json:"block_gas_limit"`
}

func (a *app) txCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tx <tx_hash>",
		Short: "Show a transaction and decode its call to the B/L contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hexutil.Decode(args[0])
			if err != nil || len(raw) != common.HashLength {
				return fmt.Errorf("invalid transaction hash %q: expected 0x-prefixed 32 byte hex", args[0])
			}
			hash := common.BytesToHash(raw)

			return a.withTransport(cmd.Context(), func(ctx context.Context, transport ledger.Transport) error {
				tx, pending, err := transport.TransactionByHash(ctx, hash)
				if err != nil {
					return err
				}

				out := txInfo{
					Hash:    tx.Hash().Hex(),
					Pending: pending,
					Nonce:   tx.Nonce(),
					Gas:     tx.Gas(),
				}
				if to := tx.To(); to != nil {
					out.To = to.Hex()
					// calls to other contracts are shown without a decoded call
					if *to == transport.ContractAddress() {
						out.Call, err = transport.DecodeInput(tx.Data())
						if err != nil {
							return err
						}
					}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func (a *app) nodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "node",
		Short: "Show the contract address and the latest block gas limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withTransport(cmd.Context(), func(ctx context.Context, transport ledger.Transport) error {
				gasLimit, err := transport.LatestGasLimit(ctx)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), nodeInfo{
					Contract:      transport.ContractAddress().Hex(),
					BlockGasLimit: gasLimit,
				})
			})
		},
	}
}

// withTransport dials the ledger and runs fn with a context bounded by LEDGER_TIMEOUT
func (a *app) withTransport(ctx context.Context, fn func(ctx context.Context, transport ledger.Transport) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := a.cfg.LedgerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	transport, closeFn, err := a.dial(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, transport)
}

// withCustody runs fn with a custody client over the ledger transport
func (a *app) withCustody(ctx context.Context, fn func(ctx context.Context, client *custody.Client) error) error {
	schema, err := bl.NewSchema(a.cfg.SignatureDomainName)
	if err != nil {
		return err
	}
	return a.withTransport(ctx, func(ctx context.Context, transport ledger.Transport) error {
		return fn(ctx, custody.New(transport, a.logger, custody.WithSchema(schema)))
	})
}
