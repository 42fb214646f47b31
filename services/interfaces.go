package services

import (
	"context"

	"stockfolio/models"
)

// QuoteProvider fetches a normalized quote for one symbol. Implementations
// fail with ErrSymbolNotFound for an authoritative "no such symbol" and with
// ErrProviderUnavailable for everything else.
type QuoteProvider interface {
	Name() string
	Configured() bool
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
}

// SearchProvider runs a symbol/name search.
type SearchProvider interface {
	Name() string
	Configured() bool
	Search(ctx context.Context, keywords string) ([]models.SearchResult, error)
}

// MarketDataProvider supports both quotes and search.
type MarketDataProvider interface {
	QuoteProvider
	Search(ctx context.Context, keywords string) ([]models.SearchResult, error)
}

// LogoServiceInterface looks up company logos.
type LogoServiceInterface interface {
	Configured() bool
	GetLogo(ctx context.Context, ticker string) (*models.Logo, error)
}

// Compile-time interface verification
var _ MarketDataProvider = (*FinnhubService)(nil)
var _ MarketDataProvider = (*AlphaVantageService)(nil)
var _ MarketDataProvider = (*SyntheticProvider)(nil)
var _ QuoteProvider = (*AlpacaService)(nil)
var _ LogoServiceInterface = (*BrandfetchService)(nil)
