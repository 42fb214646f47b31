// Package e2e provides end-to-end testing infrastructure for stockfolio.
package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stockfolio/config"
	"stockfolio/e2e/mocks"
	"stockfolio/internal/api"
	"stockfolio/internal/app"
	"stockfolio/repository"
	"stockfolio/services"

	"github.com/google/uuid"
)

var _ repository.InvestmentReader = (*PositionStore)(nil)

// TestHarness provides the infrastructure for running E2E tests.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	store      *PositionStore
	app        *app.App
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness with all dependencies initialized.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	return &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Setup initializes all test dependencies with the default test configuration.
func (h *TestHarness) Setup() error {
	return h.SetupWithConfig(nil)
}

// SetupWithConfig initializes all test dependencies. modify, when non-nil,
// adjusts the configuration before the application is built.
func (h *TestHarness) SetupWithConfig(modify func(*config.Config)) error {
	// Start mock server for external APIs
	h.mockServer = mocks.NewMockServer()
	h.store = NewPositionStore()

	h.config = h.createTestConfig()
	if modify != nil {
		modify(h.config)
	}
	if err := h.config.Validate(); err != nil {
		return err
	}

	// A fresh breaker registry keeps circuit state from leaking between tests
	breakers := services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig)
	orchestrator := app.NewOrchestratorFromConfig(h.config, breakers)
	logos := app.NewLogoServiceFromConfig(h.config, breakers)

	h.app = app.New(h.config, h.store, orchestrator, logos)

	// Create router
	handler := api.NewHandler(h.app, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}
	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// Store returns the in-memory position store.
func (h *TestHarness) Store() *PositionStore {
	return h.store
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an anonymous GET request and returns the response.
func (h *TestHarness) DoRequest(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(h.ctx)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// DoUserRequest performs a GET request on behalf of userID.
func (h *TestHarness) DoUserRequest(path string, userID uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(h.ctx)
	req.Header.Set(api.UserIDHeader, userID.String())
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *TestHarness) createTestConfig() *config.Config {
	mockURL := h.mockServer.URL()

	cfg := config.NewTestConfig()
	cfg.Finnhub.APIKey = "e2e-finnhub-key"
	cfg.Finnhub.BaseURL = mockURL + mocks.FinnhubPrefix
	cfg.AlphaVantage.APIKey = "e2e-alphavantage-key"
	cfg.AlphaVantage.BaseURL = mockURL + mocks.AlphaVantagePrefix
	cfg.Brandfetch.ClientID = "e2e-client"
	cfg.Brandfetch.BaseURL = mockURL + mocks.BrandfetchPrefix
	cfg.Quotes.RequestTimeoutSeconds = 2
	cfg.HTTP.RateLimitPerMinute = 1000

	return cfg
}
