// Package handlers provides the HTTP handlers for the B/L custody API
// and the general infrastructure handlers (health, readiness, version).
//
// The B/L handlers resolve the caller's wallet from its CID, run the custody operation with the wallet's
// account and publish an audit event once the transaction is mined. Every mutating call holds the
// account's lock (services.AccountLocks) from nonce fetch to receipt.
package handlers
