// Package commands defines the consolectl command tree and flag bindings.
// Execution is delegated to the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for consolectl.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "consolectl",
		Short:         "Deploy and manage Odoo instances on the platform backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Session
	cmd.AddCommand(Login())
	cmd.AddCommand(Logout())

	// Catalog
	cmd.AddCommand(Templates())
	cmd.AddCommand(Domains())

	// Lifecycle
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Subscribe())

	cmd.AddCommand(Version())

	return cmd
}
