package e2e

import (
	"context"
	"sort"
	"sync"

	"stockfolio/models"

	"github.com/google/uuid"
)

// PositionStore is an in-memory investments table.
type PositionStore struct {
	mu        sync.RWMutex
	positions map[uuid.UUID][]models.Position
	healthErr error
}

// NewPositionStore creates an empty store.
func NewPositionStore() *PositionStore {
	return &PositionStore{positions: make(map[uuid.UUID][]models.Position)}
}

// Add stores positions for userID.
func (s *PositionStore) Add(userID uuid.UUID, positions ...models.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range positions {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Status == "" {
			p.Status = models.InvestmentStatusActive
		}
		p.UserID = userID
		s.positions[userID] = append(s.positions[userID], p)
	}
}

// SetHealthError makes Health fail with err.
func (s *PositionStore) SetHealthError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthErr = err
}

// Reset removes every stored position.
func (s *PositionStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = make(map[uuid.UUID][]models.Position)
	s.healthErr = nil
}

func (s *PositionStore) Health(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthErr
}

func (s *PositionStore) GetInvestments(_ context.Context, userID uuid.UUID, status models.InvestmentStatus) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Position{}
	for _, p := range s.positions[userID] {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PurchaseDate.Before(out[j].PurchaseDate)
	})
	return out, nil
}

func (s *PositionStore) GetInvestment(_ context.Context, userID, id uuid.UUID) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.positions[userID] {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}
