// package custody drives the B/L token lifecycle on the ledger.
//
// The lifecycle is: mint -> (requestTransfer -> acceptTransfer)* -> invalidate | use.
// used and invalidated are terminal. The contract enforces the state machine; the client only checks that a
// token exists before acting on it. The contract has no "exists" query: a token exists when its
// ownership history is not empty.
//
// Each mutating operation is exactly one ledger transaction, built and signed for the account passed to
// the call. The client does not serialize calls from the same account - see services.AccountLocks.
//
// Accepting a transfer requires evidence that the current owner signed the document being handed over.
// AcceptSignedTransfer checks the proof against the on-ledger owner, and the document hash against the
// recorded hash, before anything is submitted;
// AcceptTransfer is the unchecked primitive and should only be used when the caller has done that check itself.
package custody
