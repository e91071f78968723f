package cli

import (
	"errors"
	"fmt"

	"bankcards/internal/models"
	"bankcards/internal/repositories"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(seedUserCmd)

	seedUserCmd.Flags().String("username", "", "Username of the account")
	seedUserCmd.Flags().String("email", "", "Email of the account")
	seedUserCmd.Flags().Bool("admin", false, "Give the account the ADMIN role")
	_ = seedUserCmd.MarkFlagRequired("username")
	_ = seedUserCmd.MarkFlagRequired("email")
}

var seedUserCmd = &cobra.Command{
	Use:   "seed-user",
	Short: "Add an account to the user directory for development setups",
	Long: `Inserts a row into the users table so cards can be issued to it. Accounts
are normally mirrored from the identity service; running seed-user twice
with the same email leaves the existing row untouched.`,
	Args: cobra.NoArgs,
	RunE: runSeedUser,
}

func runSeedUser(cmd *cobra.Command, args []string) error {
	username, _ := cmd.Flags().GetString("username")
	email, _ := cmd.Flags().GetString("email")
	admin, _ := cmd.Flags().GetBool("admin")

	role := models.RoleUser
	if admin {
		role = models.RoleAdmin
	}

	env, closeFn, err := openEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer closeFn()
	if env.db == nil {
		return errors.New("seed-user needs a database connection")
	}

	user := &models.User{Username: username, Email: email, Role: role}
	created, err := repositories.EnsureUser(cmd.Context(), env.db, user)
	if err != nil {
		return err
	}
	if !created {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "user %d already exists\n", user.ID)
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", user.ID, user.Role)
	return err
}
