// Package memory provides an in-process Store used as the default backend
// and by tests. Records live in per-user slices in insertion order; listings
// return newest first, matching the persistence service contract.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"finvoice/internal/core"
	"finvoice/internal/store"
)

type Store struct {
	mu          sync.Mutex
	expenses    map[string][]core.Expense
	budgets     map[string][]core.Budget
	goals       map[string][]core.Goal
	investments map[string][]core.Investment
	cards       map[string][]core.Card

	// now is swappable so tests control assigned timestamps.
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		expenses:    make(map[string][]core.Expense),
		budgets:     make(map[string][]core.Budget),
		goals:       make(map[string][]core.Goal),
		investments: make(map[string][]core.Investment),
		cards:       make(map[string][]core.Card),
		now:         time.Now,
	}
}

// SetClock overrides the timestamp source. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func newID() string {
	return uuid.NewString()
}

// reversed returns a newest-first copy of in.
func reversed[T any](in []T) []T {
	out := make([]T, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// Expenses

func (s *Store) ListExpenses(_ context.Context, userID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.expenses[userID]), nil
}

func (s *Store) GetExpense(_ context.Context, userID, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses[userID] {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, &core.NotFoundError{Collection: core.CollectionExpenses, ID: id}
}

func (s *Store) InsertExpense(_ context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = newID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	s.expenses[userID] = append(s.expenses[userID], e)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, userID string, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.expenses[userID]
	for i := range items {
		if items[i].ID == e.ID {
			e.CreatedAt = items[i].CreatedAt
			items[i] = e
			return e, nil
		}
	}
	return core.Expense{}, &core.NotFoundError{Collection: core.CollectionExpenses, ID: e.ID}
}

func (s *Store) DeleteExpense(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.expenses[userID]
	for i := range items {
		if items[i].ID == id {
			s.expenses[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{Collection: core.CollectionExpenses, ID: id}
}

// Budgets

func (s *Store) ListBudgets(_ context.Context, userID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.budgets[userID]), nil
}

func (s *Store) GetBudget(_ context.Context, userID, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets[userID] {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Budget{}, &core.NotFoundError{Collection: core.CollectionBudgets, ID: id}
}

func (s *Store) InsertBudget(_ context.Context, userID string, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = newID()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}
	s.budgets[userID] = append(s.budgets[userID], b)
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, userID string, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.budgets[userID]
	for i := range items {
		if items[i].ID == b.ID {
			b.CreatedAt = items[i].CreatedAt
			items[i] = b
			return b, nil
		}
	}
	return core.Budget{}, &core.NotFoundError{Collection: core.CollectionBudgets, ID: b.ID}
}

func (s *Store) DeleteBudget(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.budgets[userID]
	for i := range items {
		if items[i].ID == id {
			s.budgets[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{Collection: core.CollectionBudgets, ID: id}
}

// Goals

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.goals[userID]), nil
}

func (s *Store) GetGoal(_ context.Context, userID, id string) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.goals[userID] {
		if g.ID == id {
			return g, nil
		}
	}
	return core.Goal{}, &core.NotFoundError{Collection: core.CollectionGoals, ID: id}
}

func (s *Store) InsertGoal(_ context.Context, userID string, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == "" {
		g.ID = newID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.goals[userID] = append(s.goals[userID], g)
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, userID string, g core.Goal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.goals[userID]
	for i := range items {
		if items[i].ID == g.ID {
			g.CreatedAt = items[i].CreatedAt
			items[i] = g
			return g, nil
		}
	}
	return core.Goal{}, &core.NotFoundError{Collection: core.CollectionGoals, ID: g.ID}
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.goals[userID]
	for i := range items {
		if items[i].ID == id {
			s.goals[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{Collection: core.CollectionGoals, ID: id}
}

// Investments

func (s *Store) ListInvestments(_ context.Context, userID string) ([]core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.investments[userID]), nil
}

func (s *Store) InsertInvestment(_ context.Context, userID string, inv core.Investment) (core.Investment, error) {
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = newID()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}
	s.investments[userID] = append(s.investments[userID], inv)
	return inv, nil
}

func (s *Store) UpdateInvestment(_ context.Context, userID string, inv core.Investment) (core.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.investments[userID]
	for i := range items {
		if items[i].ID == inv.ID {
			inv.CreatedAt = items[i].CreatedAt
			items[i] = inv
			return inv, nil
		}
	}
	return core.Investment{}, &core.NotFoundError{Collection: core.CollectionInvestments, ID: inv.ID}
}

func (s *Store) DeleteInvestment(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.investments[userID]
	for i := range items {
		if items[i].ID == id {
			s.investments[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{Collection: core.CollectionInvestments, ID: id}
}

// Cards

func (s *Store) ListCards(_ context.Context, userID string) ([]core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return reversed(s.cards[userID]), nil
}

func (s *Store) InsertCard(_ context.Context, userID string, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.cards[userID] = append(s.cards[userID], c)
	return c, nil
}

func (s *Store) UpdateCard(_ context.Context, userID string, c core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.cards[userID]
	for i := range items {
		if items[i].ID == c.ID {
			c.CreatedAt = items[i].CreatedAt
			items[i] = c
			return c, nil
		}
	}
	return core.Card{}, &core.NotFoundError{Collection: core.CollectionCards, ID: c.ID}
}

func (s *Store) DeleteCard(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.cards[userID]
	for i := range items {
		if items[i].ID == id {
			s.cards[userID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return &core.NotFoundError{Collection: core.CollectionCards, ID: id}
}
