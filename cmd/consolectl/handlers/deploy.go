package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"odoodeploy.io/console/internal/availability"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/progress"
	"odoodeploy.io/console/internal/usecase"
	"odoodeploy.io/console/internal/wizard"
)

// DeployOptions are the wizard inputs given on the command line.
type DeployOptions struct {
	TemplateID    string
	InstanceName  string
	Email         string
	Password      string
	IncludeAddons bool
}

func (o DeployOptions) complete() bool {
	return o.TemplateID != "" && o.InstanceName != "" && o.Email != "" && o.Password != ""
}

// Deploy runs the deployment wizard to completion.
func Deploy(ctx context.Context, out io.Writer, opts DeployOptions) error {
	c, err := newConsole(ctx)
	if err != nil {
		return err
	}
	return deploy(ctx, out, c, opts)
}

func deploy(ctx context.Context, out io.Writer, c *console, opts DeployOptions) error {
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	templates, err := c.backend.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	if !opts.complete() {
		if err := askDeployOptions(ctx, templates, &opts); err != nil {
			return err
		}
	}

	sess := wizard.NewSession(uuid.NewString(), nil)
	log := logger.With(logger.SessionID(sess.ID()))

	// Template step.
	if err := selectTemplate(sess, templates, opts.TemplateID); err != nil {
		return err
	}

	// Configure step.
	if _, err := sess.UpdateFields(wizard.FieldPatch{
		InstanceName:  &opts.InstanceName,
		Email:         &opts.Email,
		Password:      &opts.Password,
		IncludeAddons: &opts.IncludeAddons,
	}); err != nil {
		return err
	}
	if v := wizard.Validate(sess.View().Fields); !v.AllValid() {
		return validationError(v)
	}

	suffix, err := c.backend.GetSubdomainSuffix(ctx)
	if err != nil {
		log.Warn("Subdomain suffix unavailable", zap.Error(err))
	}
	checker := availability.NewChecker(ctx, c.backend, sess.SetAvailability)
	defer checker.Stop()
	checker.SetSuffix(suffix)

	st := checker.CheckNow(ctx, opts.InstanceName)
	fmt.Fprintln(out, renderAvailability(st))
	if st.Verdict != availability.VerdictAvailable {
		return errors.New(st.Message)
	}

	// Deploying step.
	req, err := sess.BeginDeploy()
	if err != nil {
		var verr *wizard.ValidationError
		if errors.As(err, &verr) {
			return validationError(verr.Validation)
		}
		return err
	}

	uc := usecase.NewDeployInstanceUseCase(c.backend, progress.Policy{
		Duration: c.cfg.Wizard.ProgressDuration,
		Tick:     c.cfg.Wizard.ProgressTick,
	}).WithEvents(c.events)

	printer := newProgressPrinter(out)
	outcome := uc.Execute(ctx, usecase.DeployInstanceInput{
		SessionID:     sess.ID(),
		TemplateID:    req.TemplateID,
		InstanceName:  req.Fields.InstanceName,
		Email:         req.Fields.Email,
		Password:      req.Fields.Password,
		IncludeAddons: req.Fields.IncludeAddons,
	}, func(snap progress.Snapshot) {
		sess.SetProgress(snap)
		printer.Update(snap)
	})

	switch outcome.Kind {
	case usecase.DeploySucceeded:
		if err := sess.CompleteDeploy(outcome.InstanceURL); err != nil {
			return err
		}
		printer.Update(sess.View().Progress)
		fmt.Fprintln(out, renderOK("Instance ready: "+outcome.InstanceURL))
		return nil
	case usecase.DeployFailed:
		_ = sess.FailDeploy(outcome.Message)
		fmt.Fprintln(out, renderFail(outcome.Message))
		return fmt.Errorf("deploy %s: %s", req.Fields.InstanceName, outcome.Message)
	default:
		return fmt.Errorf("deploy %s cancelled", req.Fields.InstanceName)
	}
}

func selectTemplate(sess *wizard.Session, templates []backend.Template, id string) error {
	if id != "" && !hasTemplate(templates, id) {
		return fmt.Errorf("unknown template %q", id)
	}
	if err := sess.SelectTemplate(id); err != nil {
		return err
	}
	if err := sess.Next(); err != nil {
		if errors.Is(err, wizard.ErrNoTemplateSelected) {
			return errors.New(wizard.MessageSelectTemplate)
		}
		return err
	}
	return nil
}

func hasTemplate(templates []backend.Template, id string) bool {
	for _, t := range templates {
		if t.ID.String() == id {
			return true
		}
	}
	return false
}

// validationError joins the messages of every invalid field.
func validationError(v wizard.Validation) error {
	var msgs []string
	for _, r := range []struct {
		field   string
		message string
		valid   bool
	}{
		{"name", v.InstanceName.Message, v.InstanceName.Valid},
		{"email", v.Email.Message, v.Email.Valid},
		{"password", v.Password.Message, v.Password.Valid},
	} {
		if !r.valid {
			msgs = append(msgs, r.field+": "+r.message)
		}
	}
	return fmt.Errorf("invalid fields: %s", strings.Join(msgs, "; "))
}
