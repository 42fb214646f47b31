// Package portfolio values stored positions against market quotes.
package portfolio

import (
	"stockfolio/models"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the precision of summary money fields.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Enrich joins positions with quotes keyed by models.SymbolKey. It never
// fails: a position without a quote is valued at its average cost and
// marked stale, and a sold position is valued at its sale price.
func Enrich(positions []models.Position, quotes map[string]*models.Quote) ([]models.EnrichedPosition, models.PortfolioSummary) {
	enriched := make([]models.EnrichedPosition, 0, len(positions))
	for _, p := range positions {
		enriched = append(enriched, EnrichPosition(p, quotes[models.SymbolKey(p.Symbol)]))
	}
	return enriched, Summarize(enriched)
}

// EnrichPosition derives the metrics of one position. q may be nil.
func EnrichPosition(p models.Position, q *models.Quote) models.EnrichedPosition {
	ep := models.EnrichedPosition{Position: p}

	switch {
	case !p.NeedsQuote():
		ep.CurrentPrice = p.SalePrice.Decimal
		ep.DayChange = decimal.Zero
		ep.PriceSource = models.PriceSourceSale
	case q != nil:
		ep.Quote = q
		ep.CurrentPrice = q.Price
		ep.DayChange = p.Shares.Mul(q.Change)
		ep.DayChangePercent = q.ChangePercent
		ep.PriceSource = q.SourceProvider
	default:
		ep.CurrentPrice = p.AverageCost
		ep.DayChange = decimal.Zero
		ep.PriceSource = models.PriceSourceAverageCost
		ep.Stale = true
	}

	cost := p.CostBasis()
	ep.TotalValue = p.Shares.Mul(ep.CurrentPrice)
	ep.TotalGainLoss = ep.TotalValue.Sub(cost)
	ep.TotalGainLossPercent = percent(ep.TotalGainLoss, cost)

	return ep
}

// Summarize aggregates enriched positions. Sums are exact; money fields
// are rounded to CurrencyPlaces only after summation.
func Summarize(positions []models.EnrichedPosition) models.PortfolioSummary {
	totalValue := decimal.Zero
	totalInvested := decimal.Zero
	dayChange := decimal.Zero
	stale := 0

	for _, p := range positions {
		totalValue = totalValue.Add(p.TotalValue)
		totalInvested = totalInvested.Add(p.CostBasis())
		dayChange = dayChange.Add(p.DayChange)
		if p.Stale {
			stale++
		}
	}

	gainLoss := totalValue.Sub(totalInvested)

	return models.PortfolioSummary{
		TotalValue:           totalValue.Round(CurrencyPlaces),
		TotalInvested:        totalInvested.Round(CurrencyPlaces),
		TotalGainLoss:        gainLoss.Round(CurrencyPlaces),
		TotalGainLossPercent: percent(gainLoss, totalInvested),
		DayChange:            dayChange.Round(CurrencyPlaces),
		// relative to the prior day's value
		DayChangePercent: percent(dayChange, totalValue.Sub(dayChange)),
		PositionsCount:   len(positions),
		StaleCount:       stale,
	}
}

// percent returns part/whole*100 rounded to two places, 0 when whole is 0.
func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
}
