package quotes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"stockfolio/models"
	"stockfolio/observability"
	"stockfolio/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type fakeProvider struct {
	name       string
	configured bool

	mu          sync.Mutex
	quoteCalls  int
	searchCalls int

	quoteFn  func(ctx context.Context, symbol string) (*models.Quote, error)
	searchFn func(ctx context.Context, keywords string) ([]models.SearchResult, error)
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, configured: true}
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	f.mu.Lock()
	f.quoteCalls++
	fn := f.quoteFn
	f.mu.Unlock()
	if fn == nil {
		return testQuote(symbol, "10", f.name), nil
	}
	return fn(ctx, symbol)
}

func (f *fakeProvider) Search(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	f.mu.Lock()
	f.searchCalls++
	fn := f.searchFn
	f.mu.Unlock()
	if fn == nil {
		return []models.SearchResult{{Symbol: "ABC", Name: f.name}}, nil
	}
	return fn(ctx, keywords)
}

func (f *fakeProvider) QuoteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls
}

func (f *fakeProvider) SearchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func (f *fakeProvider) failWith(err error) *fakeProvider {
	f.quoteFn = func(context.Context, string) (*models.Quote, error) { return nil, err }
	f.searchFn = func(context.Context, string) ([]models.SearchResult, error) { return nil, err }
	return f
}

func testQuote(symbol, price, provider string) *models.Quote {
	p := decimal.RequireFromString(price)
	return &models.Quote{
		Symbol:         symbol,
		Price:          p,
		Change:         decimal.Zero,
		High:           p,
		Low:            p,
		Open:           p,
		PreviousClose:  p,
		Currency:       models.DefaultCurrency,
		Timestamp:      time.Now(),
		SourceProvider: provider,
	}
}

var errDown = fmt.Errorf("test: %w: connection refused", services.ErrProviderUnavailable)

func errNotFound(symbol string) error {
	return fmt.Errorf("test: %w: %s", services.ErrSymbolNotFound, symbol)
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

func newTestOrchestrator(providers ...services.QuoteProvider) *Orchestrator {
	return NewOrchestrator(Config{
		Providers:      providers,
		Breakers:       services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig),
		Metrics:        testMetrics(),
		RequestTimeout: time.Second,
	})
}
