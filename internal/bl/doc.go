// package bl provides the signed Bill of Lading document model.
//
// A B/L document is a small verifiable credential (credentialSubject, issuer, validity window) signed by the
// account that owns it using an EIP-712 typed data signature. The signature is carried in the document's proof.
//
// The ledger does not store documents. It stores the document hash (see Document.Hash) of the currently valid
// signed document against the token that represents the B/L.
//
// Typical use:
//
//	signer, err := bl.NewSigner(bl.DefaultSchema, key, chainID)
//	signed, err := signer.Create(doc)
//	hash, err := signed.Hash()
//
//	ok, err := bl.VerifySigned(bl.DefaultSchema, ownerAddress, signed)
package bl
