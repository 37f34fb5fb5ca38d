package worker

import (
	"context"
	"testing"

	"finvoice/internal/amqp"
	"finvoice/internal/core"
	"finvoice/internal/identity"
	"finvoice/internal/ledger"
	"finvoice/internal/store/memory"
)

const testUser = "user-1"

func seedLocalExpense(t *testing.T, local *memory.Store) core.Expense {
	t.Helper()
	created, err := local.InsertExpense(context.Background(), testUser, core.Expense{
		Amount:      42,
		Category:    "Food",
		Description: "groceries",
		Date:        core.NewDate(2026, 8, 10),
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return created
}

func TestHandleChangeInsertsMissingRecord(t *testing.T) {
	local, remote := memory.New(), memory.New()
	w := NewSyncWorker(local, remote, 10, nil)
	expense := seedLocalExpense(t, local)

	msg := amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpInsert, testUser, expense.ID)
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}

	got, err := remote.ListExpenses(context.Background(), testUser)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Amount != 42 {
		t.Fatalf("remote expenses = %+v", got)
	}
}

func TestHandleChangeUpdatesExistingRecord(t *testing.T) {
	local, remote := memory.New(), memory.New()
	w := NewSyncWorker(local, remote, 10, nil)
	expense := seedLocalExpense(t, local)

	// First push creates, second push after a local edit updates.
	msg := amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpInsert, testUser, expense.ID)
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	expense.Amount = 99
	if _, err := local.UpdateExpense(context.Background(), testUser, expense); err != nil {
		t.Fatal(err)
	}
	msg = amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpUpdate, testUser, expense.ID)
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatal(err)
	}

	got, _ := remote.ListExpenses(context.Background(), testUser)
	if len(got) != 1 {
		t.Fatalf("remote expenses = %d, want 1 (no duplicate)", len(got))
	}
}

func TestHandleChangeSkipsLocallyDeletedRecord(t *testing.T) {
	local, remote := memory.New(), memory.New()
	w := NewSyncWorker(local, remote, 10, nil)

	msg := amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpInsert, testUser, "vanished")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}
	got, _ := remote.ListExpenses(context.Background(), testUser)
	if len(got) != 0 {
		t.Fatalf("remote expenses = %d, want 0", len(got))
	}
}

func TestHandleChangeDeleteTolerant(t *testing.T) {
	local, remote := memory.New(), memory.New()
	w := NewSyncWorker(local, remote, 10, nil)

	// Deleting something the remote never saw is not an error.
	msg := amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpDelete, testUser, "never-synced")
	if err := w.HandleChange(context.Background(), msg); err != nil {
		t.Fatalf("HandleChange: %v", err)
	}
}

func TestHandleChangeBudgetAndGoal(t *testing.T) {
	local, remote := memory.New(), memory.New()
	w := NewSyncWorker(local, remote, 10, nil)
	ctx := context.Background()

	budget, err := local.InsertBudget(ctx, testUser, core.Budget{Category: "Food", Amount: 500, Period: core.Monthly})
	if err != nil {
		t.Fatal(err)
	}
	goal, err := local.InsertGoal(ctx, testUser, core.Goal{Title: "Vacation", TargetAmount: 1000, Deadline: core.NewDate(2027, 1, 1), Category: "savings"})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.HandleChange(ctx, amqp.NewChangeMessage(core.CollectionBudgets, amqp.OpUpdate, testUser, budget.ID)); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleChange(ctx, amqp.NewChangeMessage(core.CollectionGoals, amqp.OpUpdate, testUser, goal.ID)); err != nil {
		t.Fatal(err)
	}

	budgets, _ := remote.ListBudgets(ctx, testUser)
	goals, _ := remote.ListGoals(ctx, testUser)
	if len(budgets) != 1 || len(goals) != 1 {
		t.Fatalf("remote budgets = %d, goals = %d", len(budgets), len(goals))
	}
}

func TestReconcilePushesAllCollections(t *testing.T) {
	local, remote := memory.New(), memory.New()
	w := NewSyncWorker(local, remote, 2, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		seedLocalExpense(t, local)
	}
	if _, err := local.InsertBudget(ctx, testUser, core.Budget{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	if _, err := local.InsertGoal(ctx, testUser, core.Goal{Title: "Vacation", TargetAmount: 1000, Deadline: core.NewDate(2027, 1, 1), Category: "savings"}); err != nil {
		t.Fatal(err)
	}

	if err := w.Reconcile(ctx, testUser); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	expenses, _ := remote.ListExpenses(ctx, testUser)
	budgets, _ := remote.ListBudgets(ctx, testUser)
	goals, _ := remote.ListGoals(ctx, testUser)
	if len(expenses) != 5 || len(budgets) != 1 || len(goals) != 1 {
		t.Fatalf("remote state: %d expenses, %d budgets, %d goals", len(expenses), len(budgets), len(goals))
	}
}

type capturingPublisher struct {
	messages []*amqp.ChangeMessage
}

func (p *capturingPublisher) PublishChange(_ context.Context, msg *amqp.ChangeMessage) error {
	p.messages = append(p.messages, msg)
	return nil
}

func TestRelayTranslatesLedgerEvents(t *testing.T) {
	pub := &capturingPublisher{}
	coord := ledger.New(memory.New(), identity.Static{ID: testUser}, nil)
	relay := NewRelay(pub, testUser, nil)
	cancel := relay.Attach(coord)
	defer cancel()

	ctx := context.Background()
	created, err := coord.AddExpense(ctx, ledger.ExpenseInput{
		Amount:      10,
		Category:    "Food",
		Description: "bread",
		Date:        core.NewDate(2026, 8, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := coord.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatal(err)
	}

	if len(pub.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(pub.messages))
	}
	first, second := pub.messages[0], pub.messages[1]
	if first.Op != amqp.OpInsert || first.Collection != core.CollectionExpenses || first.RecordID != created.ID {
		t.Errorf("first = %+v", first)
	}
	if second.Op != amqp.OpDelete || second.RecordID != created.ID {
		t.Errorf("second = %+v", second)
	}
	if first.UserID != testUser {
		t.Errorf("userID = %q", first.UserID)
	}
}
