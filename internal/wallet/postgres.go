package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/information-sharing-networks/bl-custody/internal/database"
	"github.com/jackc/pgx/v5"
)

type walletQueries interface {
	GetWalletByCID(ctx context.Context, cid string) (database.Wallet, error)
}

// PostgresProvider reads wallets from the wallets table
type PostgresProvider struct {
	queries walletQueries
}

// NewPostgresProvider returns a provider backed by queries
func NewPostgresProvider(queries *database.Queries) *PostgresProvider {
	return &PostgresProvider{queries: queries}
}

func (p *PostgresProvider) GetWallet(ctx context.Context, cid string) (*Wallet, error) {
	row, err := p.queries.GetWalletByCID(ctx, cid)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &Wallet{
		CID:           row.Cid,
		Address:       row.WalletAddress,
		PrivateKeyHex: row.PrivateKey,
	}, nil
}
