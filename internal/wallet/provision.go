package wallet

// provision.go creates wallets for a list of CIDs.

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/information-sharing-networks/bl-custody/internal/database"
)

// Store is the subset of database.Queries used to provision wallets
type Store interface {
	WalletExistsForCID(ctx context.Context, cid string) (bool, error)
	CreateWallet(ctx context.Context, arg database.CreateWalletParams) (database.CreateWalletRow, error)
}

// ProvisionResult counts the CIDs processed by Provision
type ProvisionResult struct {
	Created int
	Skipped int
}

// ReadCIDs reads one CID per line. Blank lines are ignored and surrounding whitespace is removed.
func ReadCIDs(r io.Reader) ([]string, error) {
	var cids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		cid := strings.TrimSpace(scanner.Text())
		if cid == "" {
			continue
		}
		cids = append(cids, cid)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read CIDs: %w", err)
	}
	return cids, nil
}

// Provision creates a wallet with a new random key for every CID that does not have one.
// CIDs that already have a wallet are skipped.
func Provision(ctx context.Context, store Store, cids []string, logger *slog.Logger) (ProvisionResult, error) {
	var res ProvisionResult
	for _, cid := range cids {
		exists, err := store.WalletExistsForCID(ctx, cid)
		if err != nil {
			return res, fmt.Errorf("failed to check wallet for %s: %w", cid, err)
		}
		if exists {
			logger.Info("wallet already exists, skipping", slog.String("cid", cid))
			res.Skipped++
			continue
		}

		w, err := Generate(cid)
		if err != nil {
			return res, fmt.Errorf("failed to generate wallet for %s: %w", cid, err)
		}
		if _, err := store.CreateWallet(ctx, database.CreateWalletParams{
			Cid:           w.CID,
			WalletAddress: w.Address,
			PrivateKey:    w.PrivateKeyHex,
		}); err != nil {
			return res, fmt.Errorf("failed to store wallet for %s: %w", cid, err)
		}
		logger.Info("wallet created", slog.String("cid", cid), slog.String("address", w.Address))
		res.Created++
	}
	return res, nil
}
