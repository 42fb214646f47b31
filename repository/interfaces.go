package repository

import (
	"context"

	"stockfolio/models"

	"github.com/google/uuid"
)

// InvestmentReader is the read boundary of the portfolio storage layer.
type InvestmentReader interface {
	Health(ctx context.Context) error
	// GetInvestments returns a user's positions ordered by purchase date.
	// An empty status returns every position.
	GetInvestments(ctx context.Context, userID uuid.UUID, status models.InvestmentStatus) ([]models.Position, error)
	// GetInvestment returns nil, nil when the position does not exist or
	// belongs to another user.
	GetInvestment(ctx context.Context, userID, id uuid.UUID) (*models.Position, error)
}

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	InvestmentReader
	Close()
}

// Compile-time interface verification
var _ RepositoryInterface = (*Repository)(nil)
