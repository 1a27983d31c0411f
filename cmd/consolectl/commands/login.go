package commands

import (
	"github.com/spf13/cobra"

	"odoodeploy.io/console/cmd/consolectl/handlers"
)

// Login returns the command that stores a backend session.
func Login() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the platform backend",
		Long: `Authenticate against the platform backend and store the session token,
encrypted, in the console config directory.

Missing credentials are prompted for interactively.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Login(cmd.Context(), cmd.OutOrStdout(), email, password)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Account password (prompted when omitted)")

	return cmd
}

// Logout returns the command that clears the stored session.
func Logout() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Logout(cmd.Context(), cmd.OutOrStdout())
		},
	}
}
