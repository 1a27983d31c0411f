package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"odoodeploy.io/console/internal/api/middleware"
	"odoodeploy.io/console/internal/auth"
	"odoodeploy.io/console/internal/backend"
	"odoodeploy.io/console/internal/config"
	"odoodeploy.io/console/internal/pkg/logger"
	"odoodeploy.io/console/internal/pkg/worker"
	"odoodeploy.io/console/internal/progress"
	"odoodeploy.io/console/internal/service"
	"odoodeploy.io/console/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init(config.LogConfig{Level: "error", Format: "json"})
}

// fakeBackend stands in for the platform REST client.
type fakeBackend struct {
	mu sync.Mutex

	templates   []backend.Template
	domains     []backend.Domain
	catalogErr  error
	loginErr    error
	available   bool
	createErr   error
	subID       backend.ID
	paymentErr  error
	instanceIDs []string
}

func (f *fakeBackend) ListTemplates(context.Context) ([]backend.Template, error) {
	return f.templates, f.catalogErr
}

func (f *fakeBackend) ListDomains(_ context.Context, instanceID string) ([]backend.Domain, error) {
	f.mu.Lock()
	f.instanceIDs = append(f.instanceIDs, instanceID)
	f.mu.Unlock()
	return f.domains, f.catalogErr
}

func (f *fakeBackend) Login(_ context.Context, creds backend.Credentials) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "opaque-" + creds.Email, nil
}

func (f *fakeBackend) CheckAvailability(context.Context, string) (bool, error) {
	return f.available, nil
}

func (f *fakeBackend) GetSubdomainSuffix(context.Context) (string, error) {
	return "apps.test", nil
}

func (f *fakeBackend) CreateInstance(_ context.Context, req backend.CreateInstanceRequest) (*backend.CreateInstanceResult, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &backend.CreateInstanceResult{InstanceURL: "https://" + req.Instance + ".apps.test"}, nil
}

func (f *fakeBackend) CreateSubscription(_ context.Context, _ string, req backend.CreateSubscriptionRequest) (*backend.Subscription, error) {
	return &backend.Subscription{ID: f.subID, State: req.State}, nil
}

func (f *fakeBackend) UpdatePayment(context.Context, string, backend.ID, backend.PaymentUpdate) error {
	return f.paymentErr
}

func (f *fakeBackend) ActivateSubscription(context.Context, string, backend.ID) error {
	return nil
}

type stubGate struct {
	mu          sync.Mutex
	adm         auth.Admission
	revalidated int
}

func (g *stubGate) Admit(context.Context) auth.Admission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.adm
}

func (g *stubGate) Revalidate(context.Context) auth.Admission {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revalidated++
	return g.adm
}

func (g *stubGate) set(d auth.Decision) {
	g.mu.Lock()
	g.adm = auth.Admission{Decision: d}
	g.mu.Unlock()
}

type harness struct {
	router   *gin.Engine
	backend  *fakeBackend
	gate     *stubGate
	sessions *auth.Manager
}

func newHarness(t *testing.T, fb *fakeBackend) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	pools, err := worker.NewPools(ctx, worker.PoolConfig{GeneralPoolSize: 4, DeployPoolSize: 2})
	require.NoError(t, err)

	sessions := auth.NewManager(auth.NewFileStore(t.TempDir(), [32]byte{1}))
	require.NoError(t, sessions.Initialize(ctx))

	deployUC := usecase.NewDeployInstanceUseCase(fb, progress.Policy{Duration: 40 * time.Millisecond, Tick: 5 * time.Millisecond})
	wizardSvc := service.NewWizardService(ctx, fb, deployUC, pools, service.WizardOptions{Debounce: 10 * time.Millisecond})

	gate := &stubGate{adm: auth.Admission{Decision: auth.DecisionRender, Account: &backend.Account{Email: "ops@example.com"}}}
	srv := NewServer(ServerDeps{
		Catalog:    fb,
		Authn:      fb,
		Sessions:   sessions,
		Gate:       gate,
		Wizard:     wizardSvc,
		ActivateUC: usecase.NewActivateSubscriptionUseCase(fb),
		Pools:      pools,
	})

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler())
	router.Use(middleware.MustOpenAPIValidator("/api/v1", middleware.ValidatorOptions{ValidateResponses: true}))
	v1 := router.Group("/api/v1")
	protected := v1.Group("", middleware.AuthGate(gate))
	srv.RegisterRoutes(v1, protected)

	t.Cleanup(func() {
		wizardSvc.Shutdown()
		cancel()
		pools.Shutdown()
	})
	return &harness{router: router, backend: fb, gate: gate, sessions: sessions}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body=%s", w.Body.String())
	return out
}

type errorBody struct {
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Params      map[string]interface{} `json:"params"`
	FieldErrors []struct {
		Field string `json:"field"`
		Code  string `json:"code"`
	} `json:"field_errors"`
}
