package handlers

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odoodeploy.io/console/internal/backend"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		loginErr error
		wantErr  string
	}{
		{"success", "ops@example.com", "secret", nil, ""},
		{"invalid email", "not-an-email", "secret", nil, "Please enter a valid email address"},
		{"missing password", "ops@example.com", "", nil, "password is required"},
		{"rejected credentials", "ops@example.com", "wrong", &backend.APIError{Status: 401, Message: "Invalid credentials"}, "Invalid credentials"},
		{"rejected without message", "ops@example.com", "wrong", &backend.APIError{Status: 401}, loginFailedMessage},
		{"transport failure", "ops@example.com", "secret", errors.New("connection refused"), "connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend()
			fb.loginErr = tt.loginErr
			c := testConsole(t, fb)

			var out bytes.Buffer
			err := login(context.Background(), &out, c, tt.email, tt.password)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.False(t, c.sessions.Snapshot().IsAuthenticated)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), "Logged in as ops@example.com")
			assert.True(t, c.sessions.Snapshot().IsAuthenticated)
		})
	}
}

func TestLogin_PromptsForMissingCredentials(t *testing.T) {
	c := testConsole(t, newFakeBackend())
	withConsole(t, c)

	orig := askCredentials
	defer func() { askCredentials = orig }()
	askCredentials = func(_ context.Context, email, password *string) error {
		*email = "ops@example.com"
		*password = "secret"
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, Login(context.Background(), &out, "", ""))
	assert.Equal(t, "ops@example.com", c.sessions.Snapshot().Email)
}

func TestLogout(t *testing.T) {
	t.Run("logged in", func(t *testing.T) {
		c := loggedInConsole(t, newFakeBackend())
		withConsole(t, c)

		var out bytes.Buffer
		require.NoError(t, Logout(context.Background(), &out))
		assert.Contains(t, out.String(), "Logged out ops@example.com")
		assert.False(t, c.sessions.Snapshot().IsAuthenticated)
	})

	t.Run("not logged in", func(t *testing.T) {
		c := testConsole(t, newFakeBackend())

		var out bytes.Buffer
		require.NoError(t, logout(context.Background(), &out, c))
		assert.Contains(t, out.String(), "Not logged in")
	})
}
