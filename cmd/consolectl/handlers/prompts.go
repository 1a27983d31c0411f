package handlers

import (
	"context"

	"github.com/charmbracelet/huh"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/usecase"
	"odoodeploy.io/console/internal/validation"
)

// Interactive prompts. Tests replace these.
var (
	askCredentials   = promptCredentials
	askDeployOptions = promptDeployOptions
	askPaymentMethod = promptPaymentMethod
)

func validateEmail(s string) error    { return validation.Email(s).Error() }
func validateName(s string) error     { return validation.InstanceName(s).Error() }
func validatePassword(s string) error { return validation.Password(s).Error() }

func promptCredentials(ctx context.Context, email, password *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(password),
		).Title("Log in"),
	).RunWithContext(ctx)
}

// promptDeployOptions walks the Template and Configure steps. Values
// already given as flags are kept as defaults.
func promptDeployOptions(ctx context.Context, templates []backend.Template, opts *DeployOptions) error {
	if opts.TemplateID == "" {
		options := make([]huh.Option[string], len(templates))
		for i, t := range templates {
			options[i] = huh.NewOption(t.Name, t.ID.String())
		}
		if err := huh.NewForm(
			huh.NewGroup(
				huh.NewSelect[string]().
					Title("Template").
					Description("What should the new instance start from").
					Options(options...).
					Value(&opts.TemplateID),
			).Title("Choose a template"),
		).RunWithContext(ctx); err != nil {
			return err
		}
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Instance Name").
				Description("Lowercase letters, numbers and hyphens").
				Placeholder("my-company").
				Value(&opts.InstanceName).
				Validate(validateName),
			huh.NewInput().
				Title("Admin Email").
				Value(&opts.Email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Admin Password").
				EchoMode(huh.EchoModePassword).
				Value(&opts.Password).
				Validate(validatePassword),
			huh.NewConfirm().
				Title("Include custom addons?").
				Value(&opts.IncludeAddons),
		).Title("Configure"),
	).RunWithContext(ctx)
}

func promptPaymentMethod(ctx context.Context, opts *SubscribeOptions) error {
	method := string(usecase.DefaultPaymentMethod)
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Payment Method").
				Options(
					huh.NewOption("Bank transfer", string(usecase.PaymentMethodBankTransfer)),
					huh.NewOption("Card", string(usecase.PaymentMethodCard)),
					huh.NewOption("Cash", string(usecase.PaymentMethodCash)),
				).
				Value(&method),
			huh.NewInput().
				Title("Payment Reference").
				Description("Leave empty to generate one").
				Value(&opts.Reference),
		).Title("Record payment"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	opts.Method = method
	return nil
}
