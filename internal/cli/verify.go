package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/information-sharing-networks/bl-custody/internal/bl"
	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/spf13/cobra"
)

func (a *app) signCmd() *cobra.Command {
	var (
		keyFile      string
		documentPath string
		chainID      int64
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a B/L document",
		Long: `Sign a B/L document with the key in --key-file and print the signed document.

id, @context, type, validFrom and validUntil are set before signing; any existing proof is replaced.

Example:
  blctl sign --key-file ./keys/carrier.key --document ./bl.json > bl.signed.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(documentPath)
			if err != nil {
				return err
			}
			schema, err := a.schema()
			if err != nil {
				return err
			}

			key, err := crypto.ReadPrivateKeyFile(filepath.Dir(keyFile), filepath.Base(keyFile))
			if err != nil {
				return err
			}
			defer crypto.ZeroPrivateKey(key)

			if chainID == 0 {
				chainID = a.cfg.ChainID
			}
			if chainID == 0 {
				chainID = defaultChainID
			}

			signer, err := bl.NewSigner(schema, key, chainID)
			if err != nil {
				return err
			}
			signed, err := signer.Create(doc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), signed)
		},
	}

	cmd.Flags().StringVar(&keyFile, "key-file", "", "Path to the hex encoded private key [required]")
	cmd.Flags().StringVar(&documentPath, "document", "", "Path to the B/L JSON document, - for stdin [required]")
	cmd.Flags().Int64Var(&chainID, "chain-id", 0, "Chain id used in the verificationMethod (default CHAIN_ID, or 1)")
	_ = cmd.MarkFlagRequired("key-file")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

// verifyResult is printed by blctl verify
type verifyResult struct {
	Address       string `json:"address"`
	IsValid       bool   `json:"isValid"`
	TypedDataHash string `json:"typedDataHash"`
}

func (a *app) verifyCmd() *cobra.Command {
	var (
		address      string
		documentPath string
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the proof on a signed B/L document",
		Long: `Verify that the proof on a signed B/L document was made by --address.

The command exits with an error when the proof was made by another account or the content was changed.

Example:
  blctl verify --address 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 --document ./bl.signed.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := crypto.ParseAddress(address); err != nil {
				return err
			}
			doc, err := readDocument(documentPath)
			if err != nil {
				return err
			}
			schema, err := a.schema()
			if err != nil {
				return err
			}

			ok, err := bl.VerifySigned(schema, address, doc)
			if err != nil {
				return err
			}
			digest, err := bl.TypedDataHash(schema, doc)
			if err != nil {
				return err
			}

			if err := writeJSON(cmd.OutOrStdout(), verifyResult{Address: address, IsValid: ok, TypedDataHash: digest}); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("document was not signed by %s", address)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Expected signer address [required]")
	cmd.Flags().StringVar(&documentPath, "document", "", "Path to the signed B/L JSON document, - for stdin [required]")
	_ = cmd.MarkFlagRequired("address")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

// hashResult is printed by blctl hash
type hashResult struct {
	// Hash is the fingerprint recorded on the ledger
	Hash string `json:"hash"`

	// TypedDataHash is the EIP-712 digest a proof over the document signs
	TypedDataHash string `json:"typedDataHash"`
}

func (a *app) hashCmd() *cobra.Command {
	var documentPath string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the ledger hash of a B/L document",
		Long: `Print the ledger fingerprint of a document (keccak-256 of its canonical JSON, proof included)
and the EIP-712 digest covered by its proof.

Example:
  blctl hash --document ./bl.signed.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(documentPath)
			if err != nil {
				return err
			}
			schema, err := a.schema()
			if err != nil {
				return err
			}

			hash, err := doc.Hash()
			if err != nil {
				return err
			}
			digest, err := bl.TypedDataHash(schema, doc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), hashResult{Hash: hash, TypedDataHash: digest})
		},
	}

	cmd.Flags().StringVar(&documentPath, "document", "", "Path to the B/L JSON document, - for stdin [required]")
	_ = cmd.MarkFlagRequired("document")
	return cmd
}

// readDocument reads a B/L document from path ("-" is stdin)
func readDocument(path string) (*bl.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		// #nosec G304 -- the path is supplied by the operator running the command
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return bl.ParseDocument(data)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
