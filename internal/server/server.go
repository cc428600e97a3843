package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/information-sharing-networks/bl-custody/internal/config"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/information-sharing-networks/bl-custody/internal/custody"
	"github.com/information-sharing-networks/bl-custody/internal/database"
	"github.com/information-sharing-networks/bl-custody/internal/logger"
	"github.com/information-sharing-networks/bl-custody/internal/server/handlers"
	"github.com/information-sharing-networks/bl-custody/internal/server/middleware"
	"github.com/information-sharing-networks/bl-custody/internal/services"
	"github.com/information-sharing-networks/bl-custody/internal/version"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Server struct {
	pool     *pgxpool.Pool
	queries  *database.Queries
	config   *config.ServerEnvironment
	logger   *slog.Logger
	router   *chi.Mux
	custody  *custody.Client
	services *services.Services

	// schema is the EIP-712 schema documents are signed with
	schema *crypto.TypedDataSchema

	// chainID is the ledger chain id (resolved from the node when CHAIN_ID is 0)
	chainID int64
}

// NewServer wires the router. pool and queries may be nil when the credential store is not postgres (tests).
func NewServer(
	pool *pgxpool.Pool,
	queries *database.Queries,
	cfg *config.ServerEnvironment,
	logger *slog.Logger,
	custodyClient *custody.Client,
	svc *services.Services,
	schema *crypto.TypedDataSchema,
	chainID int64,
) (*Server, error) {
	if custodyClient == nil {
		return nil, fmt.Errorf("custody client is required")
	}
	if svc == nil || svc.Wallets == nil {
		return nil, fmt.Errorf("a wallet provider is required")
	}

	server := &Server{
		pool:     pool,
		queries:  queries,
		config:   cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		custody:  custodyClient,
		services: svc,
		schema:   schema,
		chainID:  chainID,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// Router returns the configured handler (used by tests to serve requests without a listener)
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.RequestSizeLimit(s.config.MaxRequestSize))
	s.router.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(chimiddleware.Timeout(s.config.RequestTimeout))
}

func (s *Server) registerRoutes() {
	var db handlers.DatabaseChecker
	if s.queries != nil {
		db = s.queries
	}

	s.router.Get("/health/live", handlers.HandleHealth)
	s.router.Get("/health/ready", handlers.HandleReadiness(db))
	s.router.Get("/version", handlers.HandleVersion(version.Get()))

	blHandler := handlers.NewBLHandler(s.custody, s.services, s.schema, s.chainID)
	signatureHandler := handlers.NewSignatureHandler(s.services.Wallets, s.schema)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireJSON)

		r.Route("/bl", func(r chi.Router) {
			r.Post("/register", blHandler.HandleRegister)
			r.Post("/transfer", blHandler.HandleTransfer)
			r.Post("/approve", blHandler.HandleApprove)
			r.Post("/verify", blHandler.HandleVerify)
			r.Get("/detail", blHandler.HandleDetail)
			r.Post("/deactivate", blHandler.HandleDeactivate)
			r.Post("/use", blHandler.HandleUse)
		})

		r.Post("/signatures/verify", signatureHandler.HandleVerifySignature)
	})
}

func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.Int64("chain_id", s.chainID))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	// in-flight custody calls finish (or hit LEDGER_TIMEOUT) before the listener closes
	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Shutdown releases the services and the database pool
func (s *Server) Shutdown() {
	if err := s.services.Close(); err != nil {
		s.logger.Warn("failed to close services", slog.String("error", err.Error()))
	}
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("database connection closed")
	}
}
