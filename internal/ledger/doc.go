// package ledger provides the transaction pipeline used to drive the B/L token contract over JSON-RPC.
//
// The Transport encodes contract calls against the embedded contract ABI, fetches account nonces,
// builds and signs legacy (EIP-155) transactions locally, submits them and waits for the receipt.
// Read-only calls are made with eth_call and need no account.
//
// The signing account is passed explicitly on every mutating call - a Transport holds no signer state and
// can be shared. It does not serialize submissions: callers sending concurrently from the same account
// must hold a per-account lock from BuildAndSign until Submit returns, otherwise both transactions
// may be built with the same nonce.
//
// Errors:
//   - EncodingError: the method is not part of the contract interface or the arguments do not match
//   - SubmissionError: the ledger rejected or reverted the transaction (the revert reason is included when available)
//   - TransportError: the node could not be reached or did not respond before the configured timeout
//   - DecodingError: a receipt, event or return value could not be decoded
//
// No call is retried. A TransportError during Submit does not mean the transaction was dropped: it may still be
// mined, so the caller should re-query ledger state before resubmitting.
package ledger
