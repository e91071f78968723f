package cli

import (
	"fmt"

	"bankcards/internal/utils/cardcrypto"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(keygenCmd)
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a fresh base64 encoded 256-bit ENCRYPTION_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := cardcrypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
		return err
	},
}
