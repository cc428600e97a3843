// walletgen prepares the credential store: it applies the database migrations and creates a wallet for each CID.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/information-sharing-networks/bl-custody/internal/config"
	"github.com/information-sharing-networks/bl-custody/internal/database"
	"github.com/information-sharing-networks/bl-custody/internal/logger"
	"github.com/information-sharing-networks/bl-custody/internal/version"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
	"github.com/information-sharing-networks/bl-custody/sql/schema"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var cidsFile string

func main() {
	rootCmd := &cobra.Command{
		Use:               "walletgen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Credential store setup for bl-server",
		Long:              "Apply the credential store migrations and provision ledger wallets for customer ids (CIDs)",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}

	provisionCmd := &cobra.Command{
		Use:   "provision",
		Short: "Create a wallet for every CID that does not have one",
		Long: `Read CIDs (one per line) and create a wallet with a new random key for each CID without one.
Existing wallets are never replaced. Use --cids-file - to read from stdin.`,
		Args: cobra.NoArgs,
		RunE: runProvision,
	}
	provisionCmd.Flags().StringVarP(&cidsFile, "cids-file", "f", "", "File with one CID per line, or - for stdin [required]")
	provisionCmd.MarkFlagRequired("cids-file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List CIDs and their wallet addresses",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	rootCmd.AddCommand(migrateCmd, provisionCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect(ctx context.Context) (*pgxpool.Pool, *slog.Logger, error) {
	cfg, err := config.NewWalletgenConfig()
	if err != nil {
		return nil, nil, err
	}
	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DatabasePingTimeout)
	defer cancel()

	pool, err := pgxpool.New(pingCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, appLogger, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	pool, appLogger, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	// goose expects database/sql
	var db *sql.DB = stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(schema.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.UpContext(cmd.Context(), db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	current, err := goose.GetDBVersionContext(cmd.Context(), db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	appLogger.Info("migrations applied", slog.Int64("version", current))
	return nil
}

func runProvision(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if cidsFile != "-" {
		f, err := os.Open(cidsFile)
		if err != nil {
			return fmt.Errorf("failed to open CIDs file: %w", err)
		}
		defer f.Close()
		in = f
	}

	cids, err := wallet.ReadCIDs(in)
	if err != nil {
		return err
	}
	if len(cids) == 0 {
		return fmt.Errorf("no CIDs found in %s", cidsFile)
	}

	pool, appLogger, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	res, err := wallet.Provision(cmd.Context(), database.New(pool), cids, appLogger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created: %d skipped: %d\n", res.Created, res.Skipped)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	pool, _, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := database.New(pool).ListWalletAddresses(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list wallets: %w", err)
	}
	for _, row := range rows {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", row.Cid, row.WalletAddress)
	}
	return nil
}
