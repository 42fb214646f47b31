package portfolio

import (
	"fmt"

	"stockfolio/models"

	"github.com/shopspring/decimal"
)

// Insight thresholds.
const (
	MinDiversifiedPositions  = 5
	StrongPerformancePercent = 10.0
	WeakPerformancePercent   = -10.0
)

// ConcentrationLimit is the largest share of total value one position may
// hold before a concentration warning.
var ConcentrationLimit = decimal.RequireFromString("0.30")

// GenerateInsights applies the threshold rules to an enriched portfolio.
// Every rule is evaluated; an empty portfolio yields no insights.
func GenerateInsights(positions []models.EnrichedPosition, summary models.PortfolioSummary) []models.Insight {
	insights := []models.Insight{}
	if summary.PositionsCount == 0 {
		return insights
	}

	if summary.PositionsCount < MinDiversifiedPositions {
		insights = append(insights, models.Insight{
			Type:    models.InsightWarning,
			Title:   "Low diversification",
			Message: fmt.Sprintf("You hold only %d position(s). Consider spreading across at least %d to 10 companies to reduce risk.", summary.PositionsCount, MinDiversifiedPositions),
			Icon:    "⚠️",
		})
	} else {
		insights = append(insights, models.Insight{
			Type:    models.InsightSuccess,
			Title:   "Good diversification",
			Message: fmt.Sprintf("Your portfolio is spread across %d positions.", summary.PositionsCount),
			Icon:    "✅",
		})
	}

	switch {
	case summary.TotalGainLossPercent > StrongPerformancePercent:
		insights = append(insights, models.Insight{
			Type:    models.InsightSuccess,
			Title:   "Strong performance",
			Message: fmt.Sprintf("Your portfolio is up %+.2f%%.", summary.TotalGainLossPercent),
			Icon:    "🚀",
		})
	case summary.TotalGainLossPercent < WeakPerformancePercent:
		insights = append(insights, models.Insight{
			Type:    models.InsightWarning,
			Title:   "Significant losses",
			Message: fmt.Sprintf("Your portfolio is down %.2f%%. Review your positions.", summary.TotalGainLossPercent),
			Icon:    "📉",
		})
	}

	if largest, share, ok := largestPosition(positions, summary.TotalValue); ok && share.GreaterThan(ConcentrationLimit) {
		pct := share.Mul(hundred).Round(1).InexactFloat64()
		insights = append(insights, models.Insight{
			Type:    models.InsightWarning,
			Title:   "High concentration",
			Message: fmt.Sprintf("%s makes up %.1f%% of your portfolio. Consider rebalancing.", largest.Symbol, pct),
			Icon:    "⚖️",
		})
	}

	return insights
}

// largestPosition returns the position with the highest value and its
// share of total.
func largestPosition(positions []models.EnrichedPosition, total decimal.Decimal) (models.EnrichedPosition, decimal.Decimal, bool) {
	if len(positions) == 0 || !total.IsPositive() {
		return models.EnrichedPosition{}, decimal.Zero, false
	}

	largest := positions[0]
	for _, p := range positions[1:] {
		if p.TotalValue.GreaterThan(largest.TotalValue) {
			largest = p
		}
	}
	return largest, largest.TotalValue.Div(total), true
}
