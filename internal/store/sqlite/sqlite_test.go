package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"finvoice/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "finvoice.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestExpenseRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := core.Expense{
		Amount:      129.99,
		Category:    "Groceries",
		Description: "weekly shop",
		Date:        core.NewDate(2025, 4, 12),
		VoiceNote:   "picked up extras",
	}
	created, err := repo.InsertExpense(ctx, "u1", in)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp, got %+v", created)
	}

	got, err := repo.GetExpense(ctx, "u1", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != in.Amount || got.Category != in.Category || got.VoiceNote != in.VoiceNote {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Date.String() != "2025-04-12" {
		t.Errorf("date = %s, want 2025-04-12", got.Date)
	}
}

func TestExpenseUserIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.InsertExpense(ctx, "alice", core.Expense{
		Amount: 10, Category: "Food", Description: "snack", Date: core.NewDate(2025, 1, 1),
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := repo.GetExpense(ctx, "bob", created.ID); !core.IsNotFound(err) {
		t.Fatalf("expected NotFound for other user, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, "bob", created.ID); !core.IsNotFound(err) {
		t.Fatalf("expected NotFound delete for other user, got %v", err)
	}
}

func TestUpdateBudgetSpent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	b, err := repo.InsertBudget(ctx, "u1", core.Budget{Category: "Travel", Amount: 1000, Period: core.Monthly})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	b.Spent = 420
	updated, err := repo.UpdateBudget(ctx, "u1", b)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Spent != 420 {
		t.Errorf("Spent = %v, want 420", updated.Spent)
	}
}

func TestUpdateUnknownGoal(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.UpdateGoal(context.Background(), "u1", core.Goal{
		ID: "nope", Title: "x", TargetAmount: 1, Deadline: core.NewDate(2026, 1, 1),
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two"} {
		if _, err := repo.InsertInvestment(ctx, "u1", core.Investment{Name: name, Type: "etf", Amount: 100}); err != nil {
			t.Fatalf("insert %s: %v", name, err)
		}
	}

	got, err := repo.ListInvestments(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Name != "two" {
		t.Fatalf("expected newest first, got %+v", got)
	}
}
