// Package services provides external service integrations for the B/L custody server.
//
// This package abstracts external dependencies (the credential store, the audit event broker)
// to support both local implementations (dev/test) and remote services (production).
//
// It also provides the per-account single-writer serialization required when submitting ledger
// transactions: two transactions sent concurrently from the same account would otherwise be built
// with the same nonce.
package services
