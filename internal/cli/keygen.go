package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/information-sharing-networks/bl-custody/internal/crypto"
	"github.com/spf13/cobra"
)

func (a *app) keygenCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secp256k1 account key",
		Long: `Generate a new secp256k1 private key and write it hex encoded to a file (mode 0600).

The key is not encrypted. Use it with blctl sign or load it into the credential store.

Example:
  blctl keygen --output ./keys/carrier.key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, name := filepath.Split(outputPath)
			if dir == "" {
				dir = "."
			}
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("failed to create %s: %w", dir, err)
			}
			if _, err := os.Stat(outputPath); err == nil {
				return fmt.Errorf("%s already exists", outputPath)
			}

			key, err := crypto.GenerateKey()
			if err != nil {
				return err
			}
			defer crypto.ZeroPrivateKey(key)

			if err := crypto.SavePrivateKeyFile(key, dir, name); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nkey file: %s\n", crypto.AddressFromPrivateKey(key).Hex(), outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Path of the key file to create [required]")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
