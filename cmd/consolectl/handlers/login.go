package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/validation"
)

const loginFailedMessage = "Login failed"

// Login authenticates and stores the session. Missing credentials are
// prompted for.
func Login(ctx context.Context, out io.Writer, email, password string) error {
	c, err := newConsole(ctx)
	if err != nil {
		return err
	}

	if email == "" || password == "" {
		if err := askCredentials(ctx, &email, &password); err != nil {
			return err
		}
	}
	return login(ctx, out, c, email, password)
}

func login(ctx context.Context, out io.Writer, c *console, email, password string) error {
	if err := validation.Email(email).Error(); err != nil {
		return err
	}
	if password == "" {
		return errors.New("password is required")
	}

	err := c.sessions.Login(ctx, c.backend, backend.Credentials{Email: email, Password: password})
	if err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			return errors.New(backend.MessageOr(err, loginFailedMessage))
		}
		return fmt.Errorf("login: %w", err)
	}

	fmt.Fprintln(out, renderOK("Logged in as "+email))
	return nil
}

// Logout forgets the stored session.
func Logout(ctx context.Context, out io.Writer) error {
	c, err := newConsole(ctx)
	if err != nil {
		return err
	}
	return logout(ctx, out, c)
}

func logout(ctx context.Context, out io.Writer, c *console) error {
	sess := c.sessions.Snapshot()
	if !sess.IsAuthenticated {
		fmt.Fprintln(out, renderDim("Not logged in"))
		return nil
	}
	if err := c.sessions.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	fmt.Fprintln(out, renderOK("Logged out "+sess.Email))
	return nil
}
