package app

import (
	"time"

	"stockfolio/config"
	"stockfolio/models"
	"stockfolio/observability"
	"stockfolio/quotes"
	"stockfolio/ratelimit"
	"stockfolio/services"
)

// Quotas derives each provider's rolling-window quota from configuration.
func Quotas(cfg *config.Config) map[string]ratelimit.Quota {
	return map[string]ratelimit.Quota{
		models.ProviderFinnhub:      {MaxCalls: cfg.Finnhub.MaxCallsPerMinute, Window: time.Minute},
		models.ProviderAlphaVantage: {MaxCalls: cfg.AlphaVantage.MaxCallsPerDay, Window: 24 * time.Hour},
		models.ProviderAlpaca:       {MaxCalls: cfg.Alpaca.MaxCallsPerMinute, Window: time.Minute},
	}
}

// NewOrchestratorFromConfig builds the provider chain in priority order:
// Finnhub, Alpha Vantage, then Alpaca when credentials are present.
func NewOrchestratorFromConfig(cfg *config.Config, breakers *services.CircuitBreakerRegistry) *quotes.Orchestrator {
	if breakers == nil {
		breakers = services.GetGlobalRegistry()
	}
	opts := func(baseURL string) services.ProviderOptions {
		return services.ProviderOptions{BaseURL: baseURL, Timeout: cfg.RequestTimeout(), Breakers: breakers}
	}

	providers := []services.QuoteProvider{
		services.NewFinnhubService(cfg.Finnhub.APIKey, opts(cfg.Finnhub.BaseURL)),
		services.NewAlphaVantageService(cfg.AlphaVantage.APIKey, opts(cfg.AlphaVantage.BaseURL)),
	}
	if cfg.HasAlpaca() {
		providers = append(providers, services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, breakers))
	}

	for _, p := range providers {
		if !p.Configured() {
			observability.Warn("market data provider not configured", "provider", p.Name())
		}
	}

	return quotes.NewOrchestrator(quotes.Config{
		Providers:      providers,
		Synthetic:      services.NewSyntheticProvider(),
		Tracker:        ratelimit.NewTracker(Quotas(cfg)),
		Breakers:       breakers,
		Metrics:        observability.GetMetrics(),
		RequestTimeout: cfg.RequestTimeout(),
	})
}

// NewLogoServiceFromConfig returns the logo service, or nil when no client
// id is configured.
func NewLogoServiceFromConfig(cfg *config.Config, breakers *services.CircuitBreakerRegistry) services.LogoServiceInterface {
	if !cfg.HasBrandfetch() {
		observability.Warn("BRANDFETCH_CLIENT_ID not set, logo lookup disabled")
		return nil
	}
	return services.NewBrandfetchService(cfg.Brandfetch.ClientID, services.ProviderOptions{
		BaseURL:  cfg.Brandfetch.BaseURL,
		Timeout:  cfg.RequestTimeout(),
		Breakers: breakers,
	})
}
