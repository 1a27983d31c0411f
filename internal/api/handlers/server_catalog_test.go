package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odoodeploy.io/console/internal/backend"
	apperrors "odoodeploy.io/console/internal/pkg/errors"
)

func TestListTemplates(t *testing.T) {
	h := newHarness(t, &fakeBackend{templates: []backend.Template{
		{ID: "5", Name: "Retail", Description: "POS and inventory"},
		{ID: "tpl-crm", Name: "CRM"},
	}})

	w := h.do(t, http.MethodGet, "/templates", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got := decode[[]Template](t, w)
	require.Len(t, got, 2)
	assert.Equal(t, "5", got[0].ID)
	assert.Equal(t, "tpl-crm", got[1].ID)
}

func TestListDomains(t *testing.T) {
	fb := &fakeBackend{domains: []backend.Domain{{ID: "1", Domain: "shop.apps.test", IsPrimary: true, Status: "active"}}}
	h := newHarness(t, fb)

	w := h.do(t, http.MethodGet, "/instances/42/domains", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[[]Domain](t, w)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsPrimary)
	assert.Equal(t, []string{"42"}, fb.instanceIDs)
}

func TestCatalogBackendErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{"backend answered", &backend.APIError{Status: 500, Message: "database down"}, apperrors.CodeBackendRejected, "database down"},
		{"backend unreachable", errors.New("dial tcp: connection refused"), apperrors.CodeBackendUnavailable, "Failed to load templates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, &fakeBackend{catalogErr: tt.err})

			w := h.do(t, http.MethodGet, "/templates", nil)
			require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
			body := decode[errorBody](t, w)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}
