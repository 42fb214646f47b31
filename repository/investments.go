package repository

import (
	"context"
	"fmt"

	"stockfolio/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const investmentColumns = `id, user_id, symbol, COALESCE(name, ''), shares, average_cost,
	purchase_date, status, sale_price, sale_date`

// GetInvestments returns a user's positions, optionally filtered by status
func (r *Repository) GetInvestments(ctx context.Context, userID uuid.UUID, status models.InvestmentStatus) ([]models.Position, error) {
	timer := r.metrics.NewTimer()

	query := `SELECT ` + investmentColumns + ` FROM investments WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY purchase_date, created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.metrics.RecordDBError("select", "investments")
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	positions := []models.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			r.metrics.RecordDBError("select", "investments")
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		r.metrics.RecordDBError("select", "investments")
		return nil, fmt.Errorf("failed to read investments: %w", err)
	}

	timer.ObserveDB("select", "investments")
	return positions, nil
}

// GetInvestment returns one of the user's positions, or nil when no position
// with that id belongs to the user.
func (r *Repository) GetInvestment(ctx context.Context, userID, id uuid.UUID) (*models.Position, error) {
	timer := r.metrics.NewTimer()

	p, err := scanPosition(r.db.QueryRow(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = $1 AND user_id = $2`, id, userID))
	if err == pgx.ErrNoRows {
		timer.ObserveDB("select", "investments")
		return nil, nil
	}
	if err != nil {
		r.metrics.RecordDBError("select", "investments")
		return nil, fmt.Errorf("failed to query investment: %w", err)
	}

	timer.ObserveDB("select", "investments")
	return &p, nil
}

func scanPosition(row pgx.Row) (models.Position, error) {
	var p models.Position
	var status string
	err := row.Scan(&p.ID, &p.UserID, &p.Symbol, &p.Name, &p.Shares, &p.AverageCost,
		&p.PurchaseDate, &status, &p.SalePrice, &p.SaleDate)
	if err != nil {
		return models.Position{}, err
	}
	p.Status = models.InvestmentStatus(status)
	return p, nil
}
