package cli

import (
	"fmt"

	"bankcards/internal/services/card"
	"bankcards/internal/services/expiry"
	"bankcards/internal/services/masking"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sweepCmd)
}

var sweepCmd = &cobra.Command{
	Use:   "sweep-expired",
	Short: "Mark every card past its expiry date as EXPIRED",
	Long: `Runs one expiry sweep immediately. Cards are moved to EXPIRED through the
same locked status update the API uses, so a sweep is safe while the server
is running.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, closeFn, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		masks := masking.NewResolver(env.codec, nil, env.log)
		cards := card.NewService(env.store, env.users, env.codec, masks, env.log, nil)
		expired, err := expiry.NewSweeper(env.store, cards, env.log).Sweep(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "expired %d cards\n", expired)
		return err
	},
}
