package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockfolio/config"
	"stockfolio/models"
	"stockfolio/observability"
	"stockfolio/portfolio"
	"stockfolio/quotes"
	"stockfolio/repository"
	"stockfolio/services"

	"github.com/google/uuid"
)

// ErrLogosNotConfigured is returned by Logo when no logo service is set up.
var ErrLogosNotConfigured = errors.New("logo service not configured")

// ErrInvestmentNotFound is returned when the user has no investment with the requested id.
var ErrInvestmentNotFound = errors.New("investment not found")

// ErrInvalidStatus is returned for an unknown investment status filter.
var ErrInvalidStatus = errors.New("invalid investment status")

// App struct holds application dependencies using interfaces for testability
type App struct {
	cfg     *config.Config
	repo    repository.InvestmentReader
	quotes  *quotes.Orchestrator
	batch   *quotes.BatchFetcher
	logos   services.LogoServiceInterface
	metrics *observability.Metrics
}

// New creates a new App. repo and logos may be nil: without a repository
// every portfolio is empty, and without a logo service Logo fails with
// ErrLogosNotConfigured.
func New(cfg *config.Config, repo repository.InvestmentReader, orchestrator *quotes.Orchestrator, logos services.LogoServiceInterface) *App {
	metrics := observability.GetMetrics()
	return &App{
		cfg:    cfg,
		repo:   repo,
		quotes: orchestrator,
		batch: quotes.NewBatchFetcher(orchestrator, quotes.BatchConfig{
			MaxBatchSize:  cfg.Quotes.MaxBatchSize,
			MaxConcurrent: cfg.Quotes.MaxConcurrent,
			Timeout:       cfg.BatchTimeout(),
			Metrics:       metrics,
		}),
		logos:   logos,
		metrics: metrics,
	}
}

// Search finds symbols matching keywords
func (a *App) Search(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	return a.quotes.Search(ctx, keywords)
}

// Quote returns the current quote for one symbol
func (a *App) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	return a.quotes.Quote(ctx, symbol)
}

// Portfolio loads a user's positions, prices them and derives the summary
// and insights. Provider outages degrade positions to stale; only a
// storage failure is returned as an error.
func (a *App) Portfolio(ctx context.Context, userID uuid.UUID, status models.InvestmentStatus) (*models.PortfolioView, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	positions, err := a.positions(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	var symbols []string
	for i := range positions {
		if positions[i].NeedsQuote() {
			symbols = append(symbols, positions[i].Symbol)
		}
	}

	prices := a.fetchQuotes(ctx, symbols)

	enriched, summary := portfolio.Enrich(positions, prices)
	a.metrics.RecordStalePositions(summary.StaleCount)
	if summary.StaleCount > 0 {
		observability.Warn("portfolio has stale positions",
			"user_id", userID.String(),
			"stale", summary.StaleCount,
			"positions", summary.PositionsCount)
	}

	return &models.PortfolioView{
		Positions: enriched,
		Summary:   summary,
		Insights:  portfolio.GenerateInsights(enriched, summary),
	}, nil
}

// Investment prices a single stored position of the user.
func (a *App) Investment(ctx context.Context, userID, id uuid.UUID) (*models.EnrichedPosition, error) {
	if a.repo == nil {
		return nil, ErrInvestmentNotFound
	}

	p, err := a.repo.GetInvestment(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load investment: %w", err)
	}
	if p == nil {
		return nil, ErrInvestmentNotFound
	}

	var q *models.Quote
	if p.NeedsQuote() {
		q = a.fetchQuotes(ctx, []string{p.Symbol})[models.SymbolKey(p.Symbol)]
	}

	ep := portfolio.EnrichPosition(*p, q)
	if ep.Stale {
		observability.Warn("investment priced at average cost",
			"user_id", userID.String(),
			"investment_id", id.String(),
			"symbol", p.Symbol)
	}
	return &ep, nil
}

func (a *App) positions(ctx context.Context, userID uuid.UUID, status models.InvestmentStatus) ([]models.Position, error) {
	if a.repo == nil {
		return []models.Position{}, nil
	}
	positions, err := a.repo.GetInvestments(ctx, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to load investments: %w", err)
	}
	return positions, nil
}

// fetchQuotes resolves symbols in chunks no larger than the batch cap, so
// a portfolio with many holdings is never rejected as a whole.
func (a *App) fetchQuotes(ctx context.Context, symbols []string) map[string]*models.Quote {
	unique := quotes.DedupSymbols(symbols)
	prices := make(map[string]*models.Quote, len(unique))

	size := a.batch.MaxBatchSize()
	for start := 0; start < len(unique); start += size {
		end := min(start+size, len(unique))
		got, err := a.batch.FetchAll(ctx, unique[start:end])
		if err != nil {
			observability.Error("batch quote fetch failed", "error", err, "symbols", strings.Join(unique[start:end], ","))
			continue
		}
		for sym, q := range got {
			prices[sym] = q
		}
	}

	return prices
}

// APIStatus reports per-provider configuration, quota and circuit state
func (a *App) APIStatus() models.APIStatus {
	return a.quotes.Status()
}

// Logo looks up the company logo for ticker
func (a *App) Logo(ctx context.Context, ticker string) (*models.Logo, error) {
	if a.logos == nil || !a.logos.Configured() {
		return nil, ErrLogosNotConfigured
	}
	symbol, err := quotes.NormalizeSymbol(ticker)
	if err != nil {
		return nil, err
	}
	return a.logos.GetLogo(ctx, symbol)
}

// Health is the service health document
type Health struct {
	Status    string          `json:"status"`
	Database  string          `json:"database"`
	Providers map[string]bool `json:"providers"`
}

// Health checks storage connectivity and reports which providers are
// configured. Status is "degraded" when the database is unreachable or a
// provider circuit is open.
func (a *App) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Database: "not_configured", Providers: map[string]bool{}}

	if a.repo != nil {
		if err := a.repo.Health(ctx); err != nil {
			observability.Warn("database health check failed", "error", err)
			h.Database = "disconnected"
			h.Status = "degraded"
		} else {
			h.Database = "connected"
		}
	}

	for _, p := range a.quotes.Status().Providers {
		h.Providers[p.Name] = p.Configured
		if p.CircuitState == "open" {
			h.Status = "degraded"
		}
	}
	if a.logos != nil {
		h.Providers["brandfetch"] = a.logos.Configured()
	}

	return h
}
