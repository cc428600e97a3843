package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/config"
	"github.com/information-sharing-networks/bl-custody/internal/custody"
	"github.com/information-sharing-networks/bl-custody/internal/database"
	"github.com/information-sharing-networks/bl-custody/internal/ledger"
	"github.com/information-sharing-networks/bl-custody/internal/logger"
	"github.com/information-sharing-networks/bl-custody/internal/server"
	"github.com/information-sharing-networks/bl-custody/internal/services"
	"github.com/information-sharing-networks/bl-custody/internal/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

//	@title			bl-server
//	@description	bl-server records custody of electronic bills of lading (B/L) on an EVM ledger.
//	@description
//	@description	A B/L is a JSON credential signed with an EIP-712 typed-data signature.
//	@description	The hash of the signed document is minted as a token and the token is passed between parties
//	@description	with a request/accept handshake. Each party is identified by a customer id (CID) that maps to a server-held wallet.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description	- `502` The ledger node could not be reached
//	@description	- `504` The ledger did not confirm the transaction in time
//	@description
//	@description	Transactions rejected by the contract return `409` with the revert reason when the node reports one.
//	@description
//	@description	## Request Limits
//	@description	- **Rate limiting**: Configurable requests per second (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 1MB
//	@description
//	@description	## Authentication & Authorization
//	@description
//	@description	The demo API does not authenticate callers: any caller that knows a CID can act for it.
//	@description	Deploy behind a gateway that authenticates clients and restricts the CIDs they can use.
//	@description
//	@license.name	MIT

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			B/L
//	@tag.description	Register, transfer and settle bills of lading

//	@tag.name			Signatures
//	@tag.description	Check document signatures without touching the ledger

//	@tag.name			Common
//	@tag.description	Server API endpoints (health, readiness, version)

func main() {
	cmd := &cobra.Command{
		Use:   "bl-server",
		Short: "B/L custody API server",
		Long:  `bl-server signs bills of lading and records their custody on an EVM ledger`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	// DATABASE_URL and AMQP_URL may carry credentials and are not logged
	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("LEDGER_RPC_URL", cfg.LedgerRPCURL),
		slog.String("BL_CONTRACT_ADDRESS", cfg.ContractAddress),
		slog.Int64("CHAIN_ID", cfg.ChainID),
		slog.Duration("LEDGER_TIMEOUT", cfg.LedgerTimeout),
		slog.String("SIGNATURE_DOMAIN_NAME", cfg.SignatureDomainName),
		slog.Bool("AUDIT_EVENTS", cfg.AMQPURL != ""),
	)

	dbCtx, dbCancel := context.WithTimeout(context.Background(), cfg.DatabasePingTimeout)
	defer dbCancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		appLogger.Error("Failed to parse database URL", slog.String("error", err.Error()))
		os.Exit(1)
	}

	poolConfig.MaxConns = cfg.DBMaxConnections
	poolConfig.MinConns = cfg.DBMinConnections
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.DBConnectTimeout

	pool, err := pgxpool.NewWithConfig(dbCtx, poolConfig)
	if err != nil {
		appLogger.Error("Unable to create connection pool", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err = pool.Ping(dbCtx); err != nil {
		appLogger.Error("Error pinging database via pool", slog.String("error", err.Error()))
		os.Exit(1)
	}

	appLogger.Info("connected to PostgreSQL")

	// get the sqlc generated database queries
	queries := database.New(pool)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport, chainID, err := dialLedger(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to connect to the ledger", slog.String("error", err.Error()))
		pool.Close()
		os.Exit(1)
	}
	defer transport.Close()

	appLogger.Info("connected to ledger", slog.Int64("chain_id", chainID))

	schema, err := bl.NewSchema(cfg.SignatureDomainName)
	if err != nil {
		appLogger.Error("Invalid signature schema", slog.String("error", err.Error()))
		pool.Close()
		os.Exit(1)
	}

	svc, err := services.NewServices(cfg, queries, appLogger)
	if err != nil {
		appLogger.Error("Failed to create services", slog.String("error", err.Error()))
		pool.Close()
		os.Exit(1)
	}

	custodyClient := custody.New(transport, appLogger, custody.WithSchema(schema))

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	server, err := server.NewServer(
		pool,
		queries,
		cfg,
		appLogger,
		custodyClient,
		svc,
		schema,
		chainID,
	)
	if err != nil {
		appLogger.Error("Failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer server.Shutdown()

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}

// dialLedger connects to the ledger node. When CHAIN_ID is 0 the node's chain id is used.
func dialLedger(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*ledger.EthTransport, int64, error) {
	gasLimit, err := cfg.GasLimitValue()
	if err != nil {
		return nil, 0, err
	}

	ledgerCfg := ledger.Config{
		ContractAddress:     common.HexToAddress(cfg.ContractAddress),
		GasLimit:            gasLimit,
		Timeout:             cfg.LedgerTimeout,
		ReceiptPollInterval: cfg.ReceiptPollInterval,
	}
	if cfg.ChainID != 0 {
		ledgerCfg.ChainID = big.NewInt(cfg.ChainID)
	}

	transport, err := ledger.Dial(ctx, cfg.LedgerRPCURL, ledgerCfg, logger)
	if err != nil {
		return nil, 0, err
	}

	chainCtx, cancel := context.WithTimeout(ctx, cfg.LedgerTimeout)
	defer cancel()

	chainID, err := transport.ChainID(chainCtx)
	if err != nil {
		transport.Close()
		return nil, 0, err
	}
	if !chainID.IsInt64() {
		transport.Close()
		return nil, 0, fmt.Errorf("chain id %s is out of range", chainID)
	}
	return transport, chainID.Int64(), nil
}
