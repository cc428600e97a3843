// Package integration contains end-to-end tests for bl-server.
//
// These tests verify the server handles API requests correctly (expected responses,
// error handling, wallets read from the credential store). Each test runs against a temporary
// database with migrations applied, and the server is started in-process over the in-memory ledger.
//
// These tests assume the bl, ledger and custody packages are working correctly (tested separately).
// If bugs are introduced in lower-level packages, there will be cascading failures here -
// fix the low-level problems first.
package integration
