package commands

import (
	"github.com/spf13/cobra"

	"odoodeploy.io/console/cmd/consolectl/handlers"
)

// Templates returns the command listing deployable templates.
func Templates() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List deployable templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Templates(cmd.Context(), cmd.OutOrStdout(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputTable, "Output format: table, yaml or json")

	return cmd
}

// Domains returns the command listing an instance's domains.
func Domains() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "domains <instance-id>",
		Short: "List domains mapped to an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Domains(cmd.Context(), cmd.OutOrStdout(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", handlers.OutputTable, "Output format: table, yaml or json")

	return cmd
}
