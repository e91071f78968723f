package cli

import (
	"errors"
	"fmt"

	"bankcards/internal/repositories"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the users, cards and transfers tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, closeFn, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer closeFn()

		if env.db == nil {
			return errors.New("migrate needs a database connection")
		}
		if err := repositories.AutoMigrate(env.db); err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return err
	},
}
