// Package cli implements blctl, the operator command line tool for B/L custody.
//
// Signing, verification and hashing are local operations. detail, history, tx and node make read-only calls to the
// ledger (LEDGER_RPC_URL, BL_CONTRACT_ADDRESS) and never need a key.
package cli

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"

	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/config"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/information-sharing-networks/bl-custody/internal/logger"
	"github.com/information-sharing-networks/bl-custody/internal/version"
	"github.com/spf13/cobra"
)

// defaultChainID is used in verificationMethod when neither --chain-id nor CHAIN_ID is set
const defaultChainID int64 = 1

// DialFunc returns a transport for read-only ledger calls and a function that releases it
type DialFunc func(ctx context.Context, cfg *config.ClientEnvironment, logger *slog.Logger) (ledger.Transport, func(), error)

// app holds the state shared by the commands of one invocation
type app struct {
	cfg    *config.ClientEnvironment
	logger *slog.Logger
	dial   DialFunc
}

// NewRootCmd returns the blctl command tree. dial is used by the ledger commands; nil dials LEDGER_RPC_URL.
func NewRootCmd(dial DialFunc) *cobra.Command {
	if dial == nil {
		dial = dialLedger
	}
	a := &app{dial: dial}

	rootCmd := &cobra.Command{
		Use:               "blctl",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "B/L custody operator CLI",
		Long:              `blctl signs, verifies and hashes B/L documents and queries B/L tokens on the ledger`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a.cfg, err = config.NewClientConfig()
			if err != nil {
				log.Printf("failed to load configuration: %v", err.Error())
				return err
			}

			a.logger = logger.InitLogger(logger.ParseLogLevel(a.cfg.LogLevel), a.cfg.Environment)
			return nil
		},
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	rootCmd.AddCommand(
		a.keygenCmd(),
		a.signCmd(),
		a.verifyCmd(),
		a.hashCmd(),
		a.detailCmd(),
		a.historyCmd(),
		a.txCmd(),
		a.nodeCmd(),
	)
	return rootCmd
}

func Execute() {
	if err := NewRootCmd(nil).Execute(); err != nil {
		os.Exit(1)
	}
}

// schema returns the typed data schema for SIGNATURE_DOMAIN_NAME
func (a *app) schema() (*crypto.TypedDataSchema, error) {
	return bl.NewSchema(a.cfg.SignatureDomainName)
}

func dialLedger(ctx context.Context, cfg *config.ClientEnvironment, logger *slog.Logger) (ledger.Transport, func(), error) {
	if cfg.LedgerRPCURL == "" || cfg.ContractAddress == "" {
		return nil, nil, fmt.Errorf("LEDGER_RPC_URL and BL_CONTRACT_ADDRESS must be set")
	}
	contract, err := crypto.ParseAddress(cfg.ContractAddress)
	if err != nil {
		return nil, nil, fmt.Errorf("BL_CONTRACT_ADDRESS: %w", err)
	}

	ledgerCfg := ledger.Config{
		ContractAddress: contract,
		GasLimit:        config.DefaultGasLimit,
		Timeout:         cfg.LedgerTimeout,
		// only read calls are made
		ReceiptPollInterval: cfg.LedgerTimeout,
	}
	if cfg.ChainID > 0 {
		ledgerCfg.ChainID = big.NewInt(cfg.ChainID)
	}

	t, err := ledger.Dial(ctx, cfg.LedgerRPCURL, ledgerCfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return t, t.Close, nil
}
