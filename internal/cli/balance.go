package cli

import (
	"fmt"

	"bankcards/internal/services/ledger"
	"bankcards/internal/services/masking"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(balanceCmd)
}

var balanceCmd = &cobra.Command{
	Use:   "balance CARD_ID",
	Short: "Print the committed balance of a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cardID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid card id %q: %w", args[0], err)
		}

		env, closeFn, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		svc := ledger.NewService(env.store, masking.NewResolver(env.codec, nil, env.log))
		balance, err := svc.CardBalance(cmd.Context(), cardID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cardID, balance.StringFixed(2))
		return err
	},
}
