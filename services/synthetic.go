package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"stockfolio/models"

	"github.com/shopspring/decimal"
)

type syntheticEntry struct {
	name          string
	price         string
	change        string
	changePercent float64
	high          string
	low           string
}

// syntheticTable holds plausible placeholder prices for well-known symbols.
var syntheticTable = map[string]syntheticEntry{
	"AAPL":  {"Apple Inc.", "178.50", "2.35", 1.33, "180.25", "176.80"},
	"MSFT":  {"Microsoft Corporation", "412.30", "-1.20", -0.29, "415.50", "410.00"},
	"GOOGL": {"Alphabet Inc. Class A", "142.80", "3.45", 2.48, "143.90", "139.50"},
	"AMZN":  {"Amazon.com Inc.", "178.20", "0.90", 0.51, "179.30", "176.50"},
	"META":  {"Meta Platforms Inc.", "485.60", "8.30", 1.74, "488.50", "478.20"},
	"TSLA":  {"Tesla Inc.", "242.80", "-5.40", -2.18, "248.90", "241.20"},
	"NVDA":  {"NVIDIA Corporation", "875.30", "12.50", 1.45, "880.00", "865.00"},
	"NFLX":  {"Netflix Inc.", "625.40", "-3.80", -0.60, "630.00", "622.00"},
	"AMD":   {"Advanced Micro Devices Inc.", "165.80", "3.25", 2.00, "167.50", "163.20"},
	"INTC":  {"Intel Corporation", "42.15", "-0.85", -1.98, "43.20", "41.90"},
	"QCOM":  {"Qualcomm Inc.", "148.90", "2.10", 1.43, "149.80", "147.00"},
	"JPM":   {"JPMorgan Chase & Co.", "185.50", "1.20", 0.65, "186.00", "183.50"},
	"BAC":   {"Bank of America Corp.", "38.75", "0.35", 0.91, "39.00", "38.20"},
	"V":     {"Visa Inc.", "285.30", "2.80", 0.99, "286.50", "283.00"},
	"WMT":   {"Walmart Inc.", "165.20", "1.10", 0.67, "166.00", "164.00"},
	"PG":    {"Procter & Gamble Co.", "158.90", "0.50", 0.32, "159.50", "157.80"},
	"KO":    {"Coca-Cola Co.", "62.30", "0.25", 0.40, "62.60", "61.90"},
	"MCD":   {"McDonald's Corp.", "295.40", "-1.50", -0.51, "297.50", "294.00"},
	"CMG":   {"Chipotle Mexican Grill Inc.", "2850.75", "45.30", 1.61, "2875.00", "2810.50"},
	"SBUX":  {"Starbucks Corporation", "98.50", "-0.80", -0.81, "99.50", "97.80"},
	"JNJ":   {"Johnson & Johnson", "162.80", "0.90", 0.56, "163.50", "161.50"},
	"UNH":   {"UnitedHealth Group Inc.", "548.30", "3.20", 0.59, "550.00", "545.00"},
}

var genericSynthetic = syntheticEntry{price: "100.00", change: "0", changePercent: 0, high: "105.00", low: "95.00"}

const syntheticVolume = 1_000_000

// SyntheticProvider produces labeled placeholder data when every real
// provider is unavailable. It never fails.
type SyntheticProvider struct {
	now func() time.Time
}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{now: time.Now}
}

// WithClock overrides the timestamp source.
func (p *SyntheticProvider) WithClock(now func() time.Time) *SyntheticProvider {
	p.now = now
	return p
}

func (p *SyntheticProvider) Name() string { return models.ProviderSynthetic }

func (p *SyntheticProvider) Configured() bool { return true }

// Quote returns the table entry for symbol or a generic flat quote.
func (p *SyntheticProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	symbol = strings.ToUpper(symbol)
	entry, ok := syntheticTable[symbol]
	if !ok {
		entry = genericSynthetic
	}

	price := decimal.RequireFromString(entry.price)
	change := decimal.RequireFromString(entry.change)

	return &models.Quote{
		Symbol:         symbol,
		Price:          price,
		Change:         change,
		ChangePercent:  entry.changePercent,
		High:           decimal.RequireFromString(entry.high),
		Low:            decimal.RequireFromString(entry.low),
		Open:           price,
		PreviousClose:  price.Sub(change),
		Volume:         syntheticVolume,
		Currency:       models.DefaultCurrency,
		Timestamp:      p.now().UTC(),
		SourceProvider: models.ProviderSynthetic,
	}, nil
}

// Search matches keywords against the table's symbols and names.
func (p *SyntheticProvider) Search(_ context.Context, keywords string) ([]models.SearchResult, error) {
	upper := strings.ToUpper(strings.TrimSpace(keywords))
	lower := strings.ToLower(upper)
	if upper == "" {
		return []models.SearchResult{}, nil
	}

	results := []models.SearchResult{}
	for symbol, entry := range syntheticTable {
		if strings.Contains(symbol, upper) || strings.Contains(strings.ToLower(entry.name), lower) {
			results = append(results, models.SearchResult{
				Symbol:   symbol,
				Name:     entry.name,
				Type:     "Equity",
				Region:   "United States",
				Currency: models.DefaultCurrency,
			})
		}
	}

	// exact symbol first, then alphabetical
	sort.Slice(results, func(i, j int) bool {
		ei, ej := results[i].Symbol == upper, results[j].Symbol == upper
		if ei != ej {
			return ei
		}
		return results[i].Symbol < results[j].Symbol
	})

	return models.TruncateSearchResults(results), nil
}

// HasSyntheticQuote reports whether symbol has a table entry.
func HasSyntheticQuote(symbol string) bool {
	_, ok := syntheticTable[strings.ToUpper(symbol)]
	return ok
}
