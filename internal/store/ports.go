// Package store defines the persistence ports of the ledger. Every call is
// scoped to a user ID and may suspend on network or disk I/O; implementations
// translate their failures into the core error taxonomy (NotFoundError for
// unknown ids, StoreError for transport or engine failures).
package store

import (
	"context"

	"finvoice/internal/core"
)

type (
	ExpenseStore interface {
		ListExpenses(ctx context.Context, userID string) ([]core.Expense, error)
		GetExpense(ctx context.Context, userID, id string) (core.Expense, error)
		// InsertExpense persists e and returns it with an id and creation
		// timestamp, generating either when absent so replicated records
		// keep their identity.
		InsertExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, userID, id string) error
	}

	BudgetStore interface {
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		GetBudget(ctx context.Context, userID, id string) (core.Budget, error)
		InsertBudget(ctx context.Context, userID string, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, userID string, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, userID, id string) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
		GetGoal(ctx context.Context, userID, id string) (core.Goal, error)
		InsertGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error)
		UpdateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error)
		DeleteGoal(ctx context.Context, userID, id string) error
	}

	InvestmentStore interface {
		ListInvestments(ctx context.Context, userID string) ([]core.Investment, error)
		InsertInvestment(ctx context.Context, userID string, inv core.Investment) (core.Investment, error)
		UpdateInvestment(ctx context.Context, userID string, inv core.Investment) (core.Investment, error)
		DeleteInvestment(ctx context.Context, userID, id string) error
	}

	CardStore interface {
		ListCards(ctx context.Context, userID string) ([]core.Card, error)
		InsertCard(ctx context.Context, userID string, c core.Card) (core.Card, error)
		UpdateCard(ctx context.Context, userID string, c core.Card) (core.Card, error)
		DeleteCard(ctx context.Context, userID, id string) error
	}

	// Store is the unified persistence port consumed by the ledger
	// coordinator. The aggregate-maintenance logic is implemented once
	// against this interface, never per backend.
	Store interface {
		ExpenseStore
		BudgetStore
		GoalStore
		InvestmentStore
		CardStore
	}
)
