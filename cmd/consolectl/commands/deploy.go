package commands

import (
	"github.com/spf13/cobra"

	"odoodeploy.io/console/cmd/consolectl/handlers"
)

// Deploy returns the command that runs the deployment wizard.
func Deploy() *cobra.Command {
	var opts handlers.DeployOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a new Odoo instance",
		Long: `Run the deployment wizard: pick a template, configure the instance,
confirm the name is available, then create it while showing progress.

Values not given as flags are prompted for. The command returns once the
instance is ready or the deployment failed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.TemplateID, "template", "t", "", "Template ID")
	cmd.Flags().StringVarP(&opts.InstanceName, "name", "n", "", "Instance name (lowercase letters, digits, hyphens)")
	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "Admin login email for the new instance")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "Admin password for the new instance")
	cmd.Flags().BoolVar(&opts.IncludeAddons, "addons", false, "Include custom addons")

	return cmd
}
