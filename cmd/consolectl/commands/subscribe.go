package commands

import (
	"github.com/spf13/cobra"

	"odoodeploy.io/console/cmd/consolectl/handlers"
)

// Subscribe returns the command that activates a subscription after a
// manually recorded payment.
func Subscribe() *cobra.Command {
	var opts handlers.SubscribeOptions

	cmd := &cobra.Command{
		Use:   "subscribe <instance-id>",
		Short: "Record a payment and activate a subscription",
		Long: `Create a subscription for the plan, mark it paid and activate it.

If a later step fails after the subscription was created, the command
reports that manual reconciliation is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.InstanceID = args[0]
			return handlers.Subscribe(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.PlanID, "plan", "", "Plan ID")
	cmd.Flags().StringVar(&opts.PlanName, "plan-name", "", "Plan display name")
	cmd.Flags().Float64Var(&opts.Price, "price", 0, "Amount paid")
	cmd.Flags().StringVarP(&opts.Method, "method", "m", "", "Payment method: bank_transfer, card or cash")
	cmd.Flags().StringVarP(&opts.Reference, "reference", "r", "", "Payment reference (generated when empty)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
