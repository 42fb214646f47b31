package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stockfolio/config"
	"stockfolio/models"
	"stockfolio/observability"
	"stockfolio/quotes"
	"stockfolio/repository"
	"stockfolio/services"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	positions []models.Position
	err       error
	healthErr error
	lastQuery models.InvestmentStatus
}

func (f *fakeRepo) Health(context.Context) error { return f.healthErr }

func (f *fakeRepo) GetInvestments(_ context.Context, _ uuid.UUID, status models.InvestmentStatus) ([]models.Position, error) {
	f.lastQuery = status
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Position
	for _, p := range f.positions {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetInvestment(_ context.Context, userID, id uuid.UUID) (*models.Position, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.positions {
		if p.ID == id && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, nil
}

// priceProvider answers from a fixed price table and reports unknown
// symbols as not found.
type priceProvider struct {
	mu     sync.Mutex
	prices map[string][2]string
	calls  map[string]int
}

func (p *priceProvider) Name() string     { return "fake" }
func (p *priceProvider) Configured() bool { return true }

func (p *priceProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[symbol]++
	v, ok := p.prices[symbol]
	if !ok {
		return nil, fmt.Errorf("fake: %w: %s", services.ErrSymbolNotFound, symbol)
	}
	return &models.Quote{
		Symbol:         symbol,
		Price:          decimal.RequireFromString(v[0]),
		Change:         decimal.RequireFromString(v[1]),
		Currency:       models.DefaultCurrency,
		Timestamp:      time.Now(),
		SourceProvider: "fake",
	}, nil
}

func (p *priceProvider) Search(_ context.Context, keywords string) ([]models.SearchResult, error) {
	return []models.SearchResult{{Symbol: keywords, Name: "Fake"}}, nil
}

func (p *priceProvider) Calls(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[symbol]
}

type fakeLogos struct{ configured bool }

func (f fakeLogos) Configured() bool { return f.configured }
func (f fakeLogos) GetLogo(_ context.Context, ticker string) (*models.Logo, error) {
	return &models.Logo{Ticker: ticker, Available: true, LogoURL: "https://logo.test/" + ticker}, nil
}

func scenarioProvider() *priceProvider {
	return &priceProvider{prices: map[string][2]string{
		"AMZN": {"178.20", "0.90"},
		"AAPL": {"230.50", "3.25"},
		"CMG":  {"62.80", "1.15"},
	}}
}

func pos(symbol, shares, cost string) models.Position {
	return models.Position{
		ID:          uuid.New(),
		Symbol:      symbol,
		Shares:      decimal.RequireFromString(shares),
		AverageCost: decimal.RequireFromString(cost),
		Status:      models.InvestmentStatusActive,
	}
}

func testApp(repo *fakeRepo, provider services.QuoteProvider, logos services.LogoServiceInterface) *App {
	cfg := config.NewTestConfig()
	cfg.Quotes.RequestTimeoutSeconds = 1
	orch := quotes.NewOrchestrator(quotes.Config{
		Providers:      []services.QuoteProvider{provider},
		Breakers:       services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig),
		Metrics:        observability.NewMetrics(prometheus.NewRegistry()),
		RequestTimeout: time.Second,
	})
	var reader repository.InvestmentReader
	if repo != nil {
		reader = repo
	}
	return New(cfg, reader, orch, logos)
}

func TestApp_Portfolio_Scenario(t *testing.T) {
	repo := &fakeRepo{positions: []models.Position{
		pos("AMZN", "4", "190"),
		pos("AAPL", "2", "200"),
		pos("CMG", "10", "45"),
	}}
	a := testApp(repo, scenarioProvider(), nil)

	view, err := a.Portfolio(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Portfolio() error: %v", err)
	}

	if len(view.Positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(view.Positions))
	}
	if !view.Summary.TotalValue.Equal(decimal.RequireFromString("1801.80")) {
		t.Errorf("TotalValue = %s, want 1801.80", view.Summary.TotalValue)
	}
	if !view.Summary.DayChange.Equal(decimal.RequireFromString("21.60")) {
		t.Errorf("DayChange = %s, want 21.60", view.Summary.DayChange)
	}
	if len(view.Insights) != 3 {
		t.Errorf("expected 3 insights, got %d", len(view.Insights))
	}
	if view.Summary.StaleCount != 0 {
		t.Errorf("StaleCount = %d, want 0", view.Summary.StaleCount)
	}
}

func TestApp_Portfolio_UnknownSymbolIsStale(t *testing.T) {
	repo := &fakeRepo{positions: []models.Position{
		pos("AAPL", "1", "100"),
		pos("GONE", "5", "20"),
	}}
	a := testApp(repo, scenarioProvider(), nil)

	view, err := a.Portfolio(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Portfolio() error: %v", err)
	}
	if len(view.Positions) != 2 {
		t.Fatalf("holding dropped: got %d positions", len(view.Positions))
	}
	gone := view.Positions[1]
	if !gone.Stale || !gone.CurrentPrice.Equal(decimal.NewFromInt(20)) {
		t.Errorf("GONE should be stale at average cost, got stale=%v price=%s", gone.Stale, gone.CurrentPrice)
	}
}

func TestApp_Portfolio_SoldPositionsSkipProviders(t *testing.T) {
	sold := pos("AMZN", "2", "100")
	sold.Status = models.InvestmentStatusSold
	sold.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(150))

	repo := &fakeRepo{positions: []models.Position{sold, pos("AAPL", "1", "200"), pos("aapl", "1", "210")}}
	provider := scenarioProvider()
	a := testApp(repo, provider, nil)

	view, err := a.Portfolio(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Portfolio() error: %v", err)
	}
	if provider.Calls("AMZN") != 0 {
		t.Errorf("sold position should not be quoted, got %d calls", provider.Calls("AMZN"))
	}
	if provider.Calls("AAPL") != 1 {
		t.Errorf("duplicate symbols should be fetched once, got %d calls", provider.Calls("AAPL"))
	}
	if view.Positions[0].PriceSource != models.PriceSourceSale {
		t.Errorf("sold PriceSource = %q", view.Positions[0].PriceSource)
	}
}

func TestApp_Portfolio_ChunksLargePortfolios(t *testing.T) {
	provider := &priceProvider{prices: map[string][2]string{}}
	var positions []models.Position
	for i := 0; i < 45; i++ {
		sym := fmt.Sprintf("S%02d", i)
		provider.prices[sym] = [2]string{"10", "0"}
		positions = append(positions, pos(sym, "1", "5"))
	}
	a := testApp(&fakeRepo{positions: positions}, provider, nil)

	view, err := a.Portfolio(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Portfolio() error: %v", err)
	}
	if view.Summary.StaleCount != 0 {
		t.Errorf("StaleCount = %d, want 0", view.Summary.StaleCount)
	}
	if !view.Summary.TotalValue.Equal(decimal.NewFromInt(450)) {
		t.Errorf("TotalValue = %s, want 450", view.Summary.TotalValue)
	}
}

func TestApp_Portfolio_StatusFilter(t *testing.T) {
	watch := pos("CMG", "1", "50")
	watch.Status = models.InvestmentStatusWatchlist
	repo := &fakeRepo{positions: []models.Position{pos("AAPL", "1", "100"), watch}}
	a := testApp(repo, scenarioProvider(), nil)

	view, err := a.Portfolio(context.Background(), uuid.New(), models.InvestmentStatusWatchlist)
	if err != nil {
		t.Fatalf("Portfolio() error: %v", err)
	}
	if repo.lastQuery != models.InvestmentStatusWatchlist {
		t.Errorf("status not passed to repository: %q", repo.lastQuery)
	}
	if len(view.Positions) != 1 || view.Positions[0].Symbol != "CMG" {
		t.Errorf("unexpected positions: %+v", view.Positions)
	}

	if _, err := a.Portfolio(context.Background(), uuid.New(), "closed"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestApp_Portfolio_RepositoryError(t *testing.T) {
	a := testApp(&fakeRepo{err: errors.New("connection reset")}, scenarioProvider(), nil)

	if _, err := a.Portfolio(context.Background(), uuid.New(), ""); err == nil {
		t.Error("expected error when repository fails")
	}
}

func TestApp_Portfolio_NoRepository(t *testing.T) {
	a := testApp(nil, scenarioProvider(), nil)

	view, err := a.Portfolio(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Portfolio() error: %v", err)
	}
	if len(view.Positions) != 0 || view.Summary.PositionsCount != 0 {
		t.Errorf("expected empty portfolio, got %+v", view.Summary)
	}
	if view.Insights == nil {
		t.Error("insights should be an empty list, not nil")
	}
}

func TestApp_Investment(t *testing.T) {
	user := uuid.New()
	held := pos("aapl ", "2", "200")
	held.UserID = user
	sold := pos("AMZN", "2", "100")
	sold.UserID = user
	sold.Status = models.InvestmentStatusSold
	sold.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(150))
	unknown := pos("GONE", "5", "20")
	unknown.UserID = user

	repo := &fakeRepo{positions: []models.Position{held, sold, unknown}}
	provider := scenarioProvider()
	a := testApp(repo, provider, nil)
	ctx := context.Background()

	t.Run("priced from provider", func(t *testing.T) {
		ep, err := a.Investment(ctx, user, held.ID)
		if err != nil {
			t.Fatalf("Investment() error: %v", err)
		}
		if ep.Stale || !ep.CurrentPrice.Equal(decimal.RequireFromString("230.50")) {
			t.Errorf("unexpected enrichment: stale=%v price=%s", ep.Stale, ep.CurrentPrice)
		}
		if !ep.TotalGainLoss.Equal(decimal.NewFromInt(61)) {
			t.Errorf("TotalGainLoss = %s, want 61", ep.TotalGainLoss)
		}
	})

	t.Run("sold uses sale price", func(t *testing.T) {
		ep, err := a.Investment(ctx, user, sold.ID)
		if err != nil {
			t.Fatalf("Investment() error: %v", err)
		}
		if ep.PriceSource != models.PriceSourceSale {
			t.Errorf("PriceSource = %s, want %s", ep.PriceSource, models.PriceSourceSale)
		}
		if provider.Calls("AMZN") != 0 {
			t.Errorf("sold position should not be quoted")
		}
	})

	t.Run("unknown symbol is stale", func(t *testing.T) {
		ep, err := a.Investment(ctx, user, unknown.ID)
		if err != nil {
			t.Fatalf("Investment() error: %v", err)
		}
		if !ep.Stale || !ep.CurrentPrice.Equal(decimal.NewFromInt(20)) {
			t.Errorf("expected stale at cost, got stale=%v price=%s", ep.Stale, ep.CurrentPrice)
		}
	})

	t.Run("not found", func(t *testing.T) {
		for _, tc := range []struct {
			user, id uuid.UUID
		}{
			{user, uuid.New()},
			{uuid.New(), held.ID},
		} {
			if _, err := a.Investment(ctx, tc.user, tc.id); !errors.Is(err, ErrInvestmentNotFound) {
				t.Errorf("expected ErrInvestmentNotFound, got %v", err)
			}
		}
	})

	t.Run("repository error", func(t *testing.T) {
		failing := testApp(&fakeRepo{err: errors.New("connection refused")}, provider, nil)
		_, err := failing.Investment(ctx, user, held.ID)
		if err == nil || errors.Is(err, ErrInvestmentNotFound) {
			t.Errorf("expected storage error, got %v", err)
		}
	})

	t.Run("no repository", func(t *testing.T) {
		bare := testApp(nil, provider, nil)
		if _, err := bare.Investment(ctx, user, held.ID); !errors.Is(err, ErrInvestmentNotFound) {
			t.Errorf("expected ErrInvestmentNotFound, got %v", err)
		}
	})
}

func TestApp_Logo(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		a := testApp(nil, scenarioProvider(), nil)
		if _, err := a.Logo(context.Background(), "AAPL"); !errors.Is(err, ErrLogosNotConfigured) {
			t.Errorf("expected ErrLogosNotConfigured, got %v", err)
		}

		a = testApp(nil, scenarioProvider(), fakeLogos{configured: false})
		if _, err := a.Logo(context.Background(), "AAPL"); !errors.Is(err, ErrLogosNotConfigured) {
			t.Errorf("expected ErrLogosNotConfigured, got %v", err)
		}
	})

	t.Run("invalid ticker", func(t *testing.T) {
		a := testApp(nil, scenarioProvider(), fakeLogos{configured: true})
		if _, err := a.Logo(context.Background(), "not a ticker"); !errors.Is(err, quotes.ErrInvalidSymbol) {
			t.Errorf("expected ErrInvalidSymbol, got %v", err)
		}
	})

	t.Run("normalizes ticker", func(t *testing.T) {
		a := testApp(nil, scenarioProvider(), fakeLogos{configured: true})
		logo, err := a.Logo(context.Background(), " aapl ")
		if err != nil {
			t.Fatalf("Logo() error: %v", err)
		}
		if logo.Ticker != "AAPL" {
			t.Errorf("Ticker = %q, want AAPL", logo.Ticker)
		}
	})
}

func TestApp_Health(t *testing.T) {
	tests := []struct {
		name         string
		repo         *fakeRepo
		wantStatus   string
		wantDatabase string
	}{
		{"no database", nil, "ok", "not_configured"},
		{"connected", &fakeRepo{}, "ok", "connected"},
		{"disconnected", &fakeRepo{healthErr: errors.New("refused")}, "degraded", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testApp(tt.repo, scenarioProvider(), fakeLogos{configured: true})
			h := a.Health(context.Background())
			if h.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", h.Status, tt.wantStatus)
			}
			if h.Database != tt.wantDatabase {
				t.Errorf("Database = %q, want %q", h.Database, tt.wantDatabase)
			}
			if !h.Providers["fake"] || !h.Providers["brandfetch"] {
				t.Errorf("unexpected providers: %v", h.Providers)
			}
		})
	}
}

func TestApp_QuoteAndSearch(t *testing.T) {
	a := testApp(nil, scenarioProvider(), nil)

	q, err := a.Quote(context.Background(), "aapl")
	if err != nil {
		t.Fatalf("Quote() error: %v", err)
	}
	if q.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", q.Symbol)
	}

	if _, err := a.Quote(context.Background(), "NOPE"); !errors.Is(err, services.ErrSymbolNotFound) {
		t.Errorf("expected ErrSymbolNotFound, got %v", err)
	}

	results, err := a.Search(context.Background(), "apple")
	if err != nil || len(results) != 1 {
		t.Errorf("Search() = %v, %v", results, err)
	}

	if _, err := a.Search(context.Background(), "a"); !errors.Is(err, quotes.ErrQueryTooShort) {
		t.Errorf("expected ErrQueryTooShort, got %v", err)
	}

	status := a.APIStatus()
	if len(status.Providers) != 1 || status.Providers[0].Name != "fake" {
		t.Errorf("unexpected status: %+v", status)
	}
}
