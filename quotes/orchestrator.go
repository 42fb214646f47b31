// Package quotes resolves quotes and symbol searches across the market
// data providers in priority order.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"stockfolio/models"
	"stockfolio/observability"
	"stockfolio/ratelimit"
	"stockfolio/services"
)

var (
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrQueryTooShort = errors.New("search query must be at least 2 characters")
)

// MinSearchLength is the shortest accepted search query.
const MinSearchLength = 2

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// NormalizeSymbol upper-cases and validates a ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := models.SymbolKey(symbol)
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// Outcome labels used for metrics.
const (
	outcomeSuccess     = "success"
	outcomeNotFound    = "not_found"
	outcomeUnavailable = "unavailable"
)

// Config wires an Orchestrator.
type Config struct {
	// Providers in priority order: primary first.
	Providers []services.QuoteProvider
	// Synthetic answers when every provider is unavailable. Defaults to
	// services.NewSyntheticProvider().
	Synthetic services.MarketDataProvider
	Tracker   *ratelimit.Tracker
	Breakers  *services.CircuitBreakerRegistry
	Metrics   *observability.Metrics
	// RequestTimeout bounds each provider call.
	RequestTimeout time.Duration
}

// Orchestrator walks the provider chain for each request:
// primary, secondary, and so on, then the synthetic provider.
// A not-found answer ends the walk.
type Orchestrator struct {
	providers      []services.QuoteProvider
	synthetic      services.MarketDataProvider
	tracker        *ratelimit.Tracker
	breakers       *services.CircuitBreakerRegistry
	metrics        *observability.Metrics
	requestTimeout time.Duration
}

func NewOrchestrator(cfg Config) *Orchestrator {
	o := &Orchestrator{
		providers:      cfg.Providers,
		synthetic:      cfg.Synthetic,
		tracker:        cfg.Tracker,
		breakers:       cfg.Breakers,
		metrics:        cfg.Metrics,
		requestTimeout: cfg.RequestTimeout,
	}
	if o.synthetic == nil {
		o.synthetic = services.NewSyntheticProvider()
	}
	if o.tracker == nil {
		o.tracker = ratelimit.NewTracker(nil)
	}
	if o.breakers == nil {
		o.breakers = services.GetGlobalRegistry()
	}
	if o.metrics == nil {
		o.metrics = observability.GetMetrics()
	}
	if o.requestTimeout <= 0 {
		o.requestTimeout = services.DefaultRequestTimeout
	}
	return o
}

// Quote resolves a quote for symbol. It fails only with ErrInvalidSymbol,
// ErrSymbolNotFound (a provider said the symbol does not exist), or the
// context's error when ctx ends first. Provider outages fall through to
// the next provider and finally to a synthetic quote.
func (o *Orchestrator) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	for _, p := range o.providers {
		if !o.admit(p.Name(), p.Configured()) {
			continue
		}

		q, err := o.callQuote(ctx, p, symbol)
		switch {
		case err == nil:
			o.metrics.RecordQuoteResolution(p.Name())
			return q, nil
		case errors.Is(err, services.ErrSymbolNotFound):
			observability.Info("symbol not found", "provider", p.Name(), "symbol", symbol)
			o.metrics.RecordQuoteResolution(outcomeNotFound)
			return nil, err
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			observability.Warn("provider quote failed, trying next",
				"provider", p.Name(),
				"symbol", symbol,
				"error", err)
		}
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	q, err := o.synthetic.Quote(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("synthetic quote for %s: %w", symbol, err)
	}
	observability.Warn("all providers unavailable, using synthetic quote", "symbol", symbol)
	o.metrics.RecordQuoteResolution(models.ProviderSynthetic)
	return q, nil
}

// Search runs a symbol search on the providers that support it. The first
// provider that answers decides the result, even when it found nothing.
// When none answers, the synthetic table is searched. Search never fails
// for a query of at least MinSearchLength characters.
func (o *Orchestrator) Search(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	keywords = strings.TrimSpace(keywords)
	if len([]rune(keywords)) < MinSearchLength {
		return nil, ErrQueryTooShort
	}

	for _, qp := range o.providers {
		p, ok := qp.(services.SearchProvider)
		if !ok || !o.admit(p.Name(), p.Configured()) {
			continue
		}

		results, err := o.callSearch(ctx, p, keywords)
		switch {
		case err == nil:
			if results == nil {
				results = []models.SearchResult{}
			}
			return models.TruncateSearchResults(results), nil
		case errors.Is(err, services.ErrSymbolNotFound):
			return []models.SearchResult{}, nil
		case ctx.Err() != nil:
			return []models.SearchResult{}, nil
		default:
			observability.Warn("provider search failed, trying next",
				"provider", p.Name(),
				"query", keywords,
				"error", err)
		}
	}

	results, err := o.synthetic.Search(ctx, keywords)
	if err != nil || results == nil {
		return []models.SearchResult{}, nil
	}
	observability.Warn("all providers unavailable, using synthetic search", "query", keywords)
	return results, nil
}

// admit skips unconfigured providers and takes one unit of quota.
func (o *Orchestrator) admit(name string, configured bool) bool {
	if !configured {
		return false
	}
	if !o.tracker.TryAcquire(name) {
		observability.Debug("provider quota exhausted", "provider", name)
		o.metrics.RecordQuotaDenial(name)
		return false
	}
	return true
}

func (o *Orchestrator) callQuote(ctx context.Context, p services.QuoteProvider, symbol string) (*models.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	timer := o.metrics.NewTimer()
	q, err := p.Quote(callCtx, symbol)
	timer.ObserveProvider(p.Name(), "quote", outcomeOf(err))
	if err == nil && q == nil {
		return nil, fmt.Errorf("%s: %w: empty quote", p.Name(), services.ErrProviderUnavailable)
	}
	return q, err
}

func (o *Orchestrator) callSearch(ctx context.Context, p services.SearchProvider, keywords string) ([]models.SearchResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.requestTimeout)
	defer cancel()

	timer := o.metrics.NewTimer()
	results, err := p.Search(callCtx, keywords)
	timer.ObserveProvider(p.Name(), "search", outcomeOf(err))
	return results, err
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, services.ErrSymbolNotFound):
		return outcomeNotFound
	default:
		return outcomeUnavailable
	}
}

// Status reports each provider's configuration, quota and circuit state.
func (o *Orchestrator) Status() models.APIStatus {
	status := models.APIStatus{
		Providers: make([]models.ProviderStatus, 0, len(o.providers)),
		Timestamp: time.Now().UTC(),
	}

	for _, p := range o.providers {
		usage := o.tracker.Usage(p.Name())
		circuit := o.breakers.State(p.Name())

		ps := models.ProviderStatus{
			Name:          p.Name(),
			Configured:    p.Configured(),
			CallsInWindow: usage.CallsInWindow,
			Limit:         usage.Limit,
			Remaining:     usage.Remaining,
			CircuitState:  circuit,
		}
		if usage.Limited {
			ps.Window = usage.Window.String()
		}
		ps.Available = ps.Configured &&
			(!usage.Limited || usage.Remaining > 0) &&
			!o.breakers.IsOpen(p.Name())

		status.Providers = append(status.Providers, ps)
	}

	return status
}
