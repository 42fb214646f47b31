package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Position is a stored holding as read from the investments table.
type Position struct {
	ID           uuid.UUID           `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	Symbol       string              `json:"symbol"`
	Name         string              `json:"name,omitempty"`
	Shares       decimal.Decimal     `json:"shares"`
	AverageCost  decimal.Decimal     `json:"average_cost"`
	PurchaseDate time.Time           `json:"purchase_date"`
	Status       InvestmentStatus    `json:"status"`
	SalePrice    decimal.NullDecimal `json:"sale_price"`
	SaleDate     *time.Time          `json:"sale_date,omitempty"`
}

type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusSold      InvestmentStatus = "sold"
	InvestmentStatusWatchlist InvestmentStatus = "watchlist"
)

// IsValid reports whether s is a known status.
func (s InvestmentStatus) IsValid() bool {
	switch s {
	case InvestmentStatusActive, InvestmentStatusSold, InvestmentStatusWatchlist:
		return true
	}
	return false
}

// CostBasis returns shares × average cost.
func (p *Position) CostBasis() decimal.Decimal {
	return p.Shares.Mul(p.AverageCost)
}

// NeedsQuote reports whether a live quote is required to value the position.
// Sold positions are valued at their sale price.
func (p *Position) NeedsQuote() bool {
	if p.Status == InvestmentStatusSold && p.SalePrice.Valid {
		return false
	}
	return true
}
