package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider names reported in Quote.SourceProvider.
const (
	ProviderFinnhub      = "finnhub"
	ProviderAlphaVantage = "alphavantage"
	ProviderAlpaca       = "alpaca"
	ProviderSynthetic    = "synthetic"
)

// SymbolKey is the canonical form of a ticker used to key quotes.
func SymbolKey(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// DefaultCurrency is used when a provider does not report one.
const DefaultCurrency = "USD"

// Quote is a point-in-time market snapshot for one symbol. A refresh
// produces a new Quote; existing values are never modified.
type Quote struct {
	Symbol         string          `json:"symbol"`
	Price          decimal.Decimal `json:"price"`
	Change         decimal.Decimal `json:"change"`
	ChangePercent  float64         `json:"change_percent"`
	High           decimal.Decimal `json:"high"`
	Low            decimal.Decimal `json:"low"`
	Open           decimal.Decimal `json:"open"`
	PreviousClose  decimal.Decimal `json:"previous_close"`
	Volume         int64           `json:"volume"`
	Currency       string          `json:"currency"`
	Timestamp      time.Time       `json:"timestamp"`
	SourceProvider string          `json:"source_provider"`
}

// IsSynthetic reports whether the quote is a placeholder rather than market data.
func (q *Quote) IsSynthetic() bool {
	return q.SourceProvider == ProviderSynthetic
}

// SearchResult is a single symbol search match.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

// MaxSearchResults caps every search result list.
const MaxSearchResults = 10

// TruncateSearchResults keeps at most MaxSearchResults entries, preserving order.
func TruncateSearchResults(results []SearchResult) []SearchResult {
	if len(results) > MaxSearchResults {
		return results[:MaxSearchResults]
	}
	return results
}

// Logo describes the result of a company logo lookup.
type Logo struct {
	Ticker      string `json:"ticker"`
	LogoURL     string `json:"logo_url,omitempty"`
	Available   bool   `json:"available"`
	ContentType string `json:"content_type,omitempty"`
	Message     string `json:"message,omitempty"`
}
