package services

// services provides external service integrations for the B/L custody server (credential store, audit events)

import (
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/bl-custody/internal/config"
	"github.com/information-sharing-networks/bl-custody/internal/database"
	"github.com/information-sharing-networks/bl-custody/internal/events"
	"github.com/information-sharing-networks/bl-custody/internal/wallet"
)

// Services aggregates all external service integrations used by the server.
type Services struct {
	Wallets  wallet.Provider
	Events   events.Publisher
	Accounts *AccountLocks
}

// NewServices creates service implementations based on configuration.
// This is the single entry point for initializing all external service integrations.
func NewServices(cfg *config.ServerEnvironment, queries *database.Queries, logger *slog.Logger) (*Services, error) {
	s := &Services{
		Wallets:  wallet.NewPostgresProvider(queries),
		Accounts: NewAccountLocks(),
	}

	if cfg.AMQPURL == "" {
		logger.Info("AMQP_URL not set, custody events will not be published")
		s.Events = events.NoopPublisher{}
		return s, nil
	}

	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	s.Events = publisher
	return s, nil
}

// Close releases service connections
func (s *Services) Close() error {
	if s.Events != nil {
		return s.Events.Close()
	}
	return nil
}
