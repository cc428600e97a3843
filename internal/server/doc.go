// Package server provides the HTTP server for the B/L custody API.
//
// the server is configured through environment variables
// (see internal/config/config.go for details)
//
// Routes:
//   - /v1/bl/* custody operations on B/L tokens (register, transfer, approve, verify, detail, deactivate, use)
//   - /v1/signatures/verify off-ledger proof check
//   - /health/live, /health/ready, /version
//
// handlers are in internal/server/handlers and middleware is in internal/server/middleware
package server
