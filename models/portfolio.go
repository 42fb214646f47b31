package models

import (
	"github.com/shopspring/decimal"
)

// EnrichedPosition joins a Position with its quote and derived metrics.
// Stale is set when no quote was available and CurrentPrice fell back to
// the average cost.
type EnrichedPosition struct {
	Position
	Quote                *Quote          `json:"quote,omitempty"`
	CurrentPrice         decimal.Decimal `json:"current_price"`
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalGainLoss        decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent float64         `json:"total_gain_loss_percent"`
	DayChange            decimal.Decimal `json:"day_change"`
	DayChangePercent     float64         `json:"day_change_percent"`
	PriceSource          string          `json:"price_source"`
	Stale                bool            `json:"stale"`
}

// Price sources that are not market data providers.
const (
	PriceSourceSale        = "sale_price"
	PriceSourceAverageCost = "average_cost"
)

// PortfolioSummary aggregates every EnrichedPosition of one snapshot.
type PortfolioSummary struct {
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalInvested        decimal.Decimal `json:"total_invested"`
	TotalGainLoss        decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent float64         `json:"total_gain_loss_percent"`
	DayChange            decimal.Decimal `json:"day_change"`
	DayChangePercent     float64         `json:"day_change_percent"`
	PositionsCount       int             `json:"positions_count"`
	StaleCount           int             `json:"stale_count"`
}

type InsightType string

const (
	InsightWarning InsightType = "warning"
	InsightSuccess InsightType = "success"
)

type Insight struct {
	Type    InsightType `json:"type"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Icon    string      `json:"icon"`
}

// PortfolioView is the full enriched portfolio response.
type PortfolioView struct {
	Positions []EnrichedPosition `json:"positions"`
	Summary   PortfolioSummary   `json:"summary"`
	Insights  []Insight          `json:"insights"`
}
