package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"finvoice/internal/core"
	"finvoice/internal/identity"
	"finvoice/internal/store"
	"finvoice/internal/store/memory"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, identity.Static{ID: "user-1"}, nil), st
}

// checkAggregates asserts that every budget's Spent equals the sum of the
// amounts of the expenses in its category.
func checkAggregates(t *testing.T, c *Coordinator) {
	t.Helper()
	ctx := context.Background()
	expenses, err := c.Expenses(ctx)
	if err != nil {
		t.Fatalf("Expenses: %v", err)
	}
	budgets, err := c.Budgets(ctx)
	if err != nil {
		t.Fatalf("Budgets: %v", err)
	}
	for _, b := range budgets {
		var want float64
		for _, e := range expenses {
			if e.Category == b.Category {
				want += e.Amount
			}
		}
		if math.Abs(b.Spent-want) > 1e-9 {
			t.Errorf("budget %q: spent = %v, expense sum = %v", b.Category, b.Spent, want)
		}
	}
}

func TestAddExpenseUpdatesBudgetSpent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatalf("AddBudget: %v", err)
	}
	if _, err := c.AddExpense(ctx, ExpenseInput{Amount: 42.50, Category: "Food", Description: "groceries", Date: core.NewDate(2026, 8, 10)}); err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	budgets, _ := c.Budgets(ctx)
	if len(budgets) != 1 || budgets[0].Spent != 42.50 {
		t.Fatalf("budget spent = %+v, want 42.50", budgets)
	}
	checkAggregates(t, c)
}

func TestAddExpenseWithoutBudget(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	created, err := c.AddExpense(ctx, ExpenseInput{Amount: 10, Category: "Misc", Description: "stamps", Date: core.NewDate(2026, 8, 1)})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated id")
	}
	checkAggregates(t, c)
}

func TestAddBudgetInitializesSpentFromExistingExpenses(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	for _, amount := range []float64{120, 80} {
		if _, err := c.AddExpense(ctx, ExpenseInput{Amount: amount, Category: "Travel", Description: "trip", Date: core.NewDate(2026, 7, 15)}); err != nil {
			t.Fatalf("AddExpense: %v", err)
		}
	}

	budget, err := c.AddBudget(ctx, BudgetInput{Category: "Travel", Amount: 1000, Period: core.Monthly})
	if err != nil {
		t.Fatalf("AddBudget: %v", err)
	}
	if budget.Spent != 200 {
		t.Fatalf("spent = %v, want 200", budget.Spent)
	}
}

func TestUpdateExpenseAmount(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatalf("AddBudget: %v", err)
	}
	created, err := c.AddExpense(ctx, ExpenseInput{Amount: 100, Category: "Food", Description: "dinner", Date: core.NewDate(2026, 8, 20)})
	if err != nil {
		t.Fatalf("AddExpense: %v", err)
	}

	amount := 60.0
	if _, err := c.UpdateExpense(ctx, created.ID, ExpensePatch{Amount: &amount}); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}

	budgets, _ := c.Budgets(ctx)
	if budgets[0].Spent != 60 {
		t.Fatalf("spent = %v, want 60", budgets[0].Spent)
	}
	checkAggregates(t, c)
}

func TestUpdateExpenseCategoryMovesSpentAcrossBudgets(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Transport", Amount: 200, Period: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	created, err := c.AddExpense(ctx, ExpenseInput{Amount: 50, Category: "Food", Description: "taxi lunch", Date: core.NewDate(2026, 8, 5)})
	if err != nil {
		t.Fatal(err)
	}

	category := "Transport"
	if _, err := c.UpdateExpense(ctx, created.ID, ExpensePatch{Category: &category}); err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}

	budgets, _ := c.Budgets(ctx)
	byCategory := map[string]float64{}
	for _, b := range budgets {
		byCategory[b.Category] = b.Spent
	}
	if byCategory["Food"] != 0 || byCategory["Transport"] != 50 {
		t.Fatalf("spent = %v, want Food 0 / Transport 50", byCategory)
	}
	checkAggregates(t, c)
}

func TestDeleteExpenseReversesSpent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	created, err := c.AddExpense(ctx, ExpenseInput{Amount: 75, Category: "Food", Description: "market", Date: core.NewDate(2026, 8, 12)})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}

	budgets, _ := c.Budgets(ctx)
	if budgets[0].Spent != 0 {
		t.Fatalf("spent = %v, want 0", budgets[0].Spent)
	}
	if err := c.DeleteExpense(ctx, created.ID); !core.IsNotFound(err) {
		t.Fatalf("second delete err = %v, want NotFoundError", err)
	}
}

func TestDeleteThenReAddRestoresSpent(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	created, err := c.AddExpense(ctx, ExpenseInput{Amount: 33, Category: "Food", Description: "bakery", Date: core.NewDate(2026, 8, 3)})
	if err != nil {
		t.Fatal(err)
	}
	before, _ := c.Budgets(ctx)

	if err := c.DeleteExpense(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddExpense(ctx, ExpenseInput{Amount: created.Amount, Category: created.Category, Description: created.Description, Date: created.Date}); err != nil {
		t.Fatal(err)
	}

	after, _ := c.Budgets(ctx)
	if before[0].Spent != after[0].Spent {
		t.Fatalf("spent before = %v, after delete+re-add = %v", before[0].Spent, after[0].Spent)
	}
}

func TestUpdateBudgetRecomputesSpentOnCategoryChange(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddExpense(ctx, ExpenseInput{Amount: 90, Category: "Transport", Description: "fuel", Date: core.NewDate(2026, 8, 2)}); err != nil {
		t.Fatal(err)
	}
	budget, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly})
	if err != nil {
		t.Fatal(err)
	}

	category := "Transport"
	updated, err := c.UpdateBudget(ctx, budget.ID, BudgetPatch{Category: &category})
	if err != nil {
		t.Fatalf("UpdateBudget: %v", err)
	}
	if updated.Spent != 90 {
		t.Fatalf("spent = %v, want 90", updated.Spent)
	}
}

func TestContributeToGoal(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	goal, err := c.AddGoal(ctx, GoalInput{Title: "Vacation", TargetAmount: 2000, Deadline: core.NewDate(2027, 6, 1), Category: "savings"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := c.ContributeToGoal(ctx, goal.ID, 150, "", core.NewDate(2026, 8, 28))
	if err != nil {
		t.Fatalf("ContributeToGoal: %v", err)
	}
	if updated.CurrentAmount != 150 {
		t.Fatalf("current = %v, want 150", updated.CurrentAmount)
	}

	expenses, _ := c.Expenses(ctx)
	if len(expenses) != 1 {
		t.Fatalf("expenses = %d, want exactly one mirrored record", len(expenses))
	}
	mirrored := expenses[0]
	if mirrored.Category != core.GoalContributionPrefix+"Vacation" {
		t.Errorf("category = %q", mirrored.Category)
	}
	if mirrored.Amount != 150 {
		t.Errorf("amount = %v, want 150", mirrored.Amount)
	}
	if mirrored.Description == "" {
		t.Error("expected a default description")
	}
}

func TestContributeToGoalValidation(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	goal, err := c.AddGoal(ctx, GoalInput{Title: "Vacation", TargetAmount: 2000, Deadline: core.NewDate(2027, 6, 1), Category: "savings"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		goalID string
		amount float64
	}{
		{"zero amount", goal.ID, 0},
		{"negative amount", goal.ID, -5},
		{"nan amount", goal.ID, math.NaN()},
		{"unknown goal", "missing", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ContributeToGoal(ctx, tt.goalID, tt.amount, "", core.Date{})
			if !core.IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}

	// Failed contributions leave no trace.
	expenses, _ := c.Expenses(ctx)
	if len(expenses) != 0 {
		t.Fatalf("expenses = %d, want 0", len(expenses))
	}
	got, _ := c.Goals(ctx)
	if got[0].CurrentAmount != 0 {
		t.Fatalf("current = %v, want 0", got[0].CurrentAmount)
	}
}

// failingStore wraps the memory store and fails InsertExpense, and
// optionally UpdateGoal, after a configurable number of successes.
type failingStore struct {
	store.Store
	failInsertExpense bool
	failGoalUpdates   int // fail UpdateGoal after this many successes, -1 never
	goalUpdates       int
}

func (f *failingStore) InsertExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if f.failInsertExpense {
		return core.Expense{}, fmt.Errorf("disk full")
	}
	return f.Store.InsertExpense(ctx, userID, e)
}

func (f *failingStore) UpdateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	if f.failGoalUpdates >= 0 && f.goalUpdates >= f.failGoalUpdates {
		return core.Goal{}, fmt.Errorf("connection reset")
	}
	f.goalUpdates++
	return f.Store.UpdateGoal(ctx, userID, g)
}

func TestContributeToGoalRollsBackOnMirroredInsertFailure(t *testing.T) {
	mem := memory.New()
	fs := &failingStore{Store: mem, failGoalUpdates: -1}
	c := New(fs, identity.Static{ID: "user-1"}, nil)
	ctx := context.Background()

	goal, err := c.AddGoal(ctx, GoalInput{Title: "Vacation", TargetAmount: 2000, Deadline: core.NewDate(2027, 6, 1), Category: "savings"})
	if err != nil {
		t.Fatal(err)
	}

	fs.failInsertExpense = true
	_, err = c.ContributeToGoal(ctx, goal.ID, 100, "", core.Date{})
	if !core.IsStore(err) {
		t.Fatalf("err = %v, want StoreError", err)
	}

	goals, _ := c.Goals(ctx)
	if goals[0].CurrentAmount != 0 {
		t.Fatalf("current = %v, want rollback to 0", goals[0].CurrentAmount)
	}
}

func TestContributeToGoalConsistencyErrorWhenRollbackFails(t *testing.T) {
	mem := memory.New()
	// One successful goal update (the increment), then every further
	// UpdateGoal fails so the rollback cannot land either.
	fs := &failingStore{Store: mem, failInsertExpense: true, failGoalUpdates: 1}
	c := New(fs, identity.Static{ID: "user-1"}, nil)
	ctx := context.Background()

	goal, err := c.AddGoal(ctx, GoalInput{Title: "Vacation", TargetAmount: 2000, Deadline: core.NewDate(2027, 6, 1), Category: "savings"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.ContributeToGoal(ctx, goal.ID, 100, "", core.Date{})
	if !core.IsConsistency(err) {
		t.Fatalf("err = %v, want ConsistencyError", err)
	}
}

func TestUpdateGoalIgnoresCurrentAmount(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	goal, err := c.AddGoal(ctx, GoalInput{Title: "Vacation", TargetAmount: 2000, Deadline: core.NewDate(2027, 6, 1), Category: "savings"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ContributeToGoal(ctx, goal.ID, 50, "", core.Date{}); err != nil {
		t.Fatal(err)
	}

	title := "Summer trip"
	updated, err := c.UpdateGoal(ctx, goal.ID, GoalPatch{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != "Summer trip" || updated.CurrentAmount != 50 {
		t.Fatalf("updated = %+v", updated)
	}
}

func TestMutationsRequireAuthentication(t *testing.T) {
	c := New(memory.New(), identity.Static{}, nil)
	ctx := context.Background()

	_, err := c.AddExpense(ctx, ExpenseInput{Amount: 10, Category: "Food", Description: "x", Date: core.Today()})
	if !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
	if _, err := c.Expenses(ctx); !errors.Is(err, core.ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestValidationRejectedBeforePersisting(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"expense negative amount", func() error {
			_, err := c.AddExpense(ctx, ExpenseInput{Amount: -1, Category: "Food", Description: "x", Date: core.Today()})
			return err
		}},
		{"expense empty category", func() error {
			_, err := c.AddExpense(ctx, ExpenseInput{Amount: 1, Category: "  ", Description: "x", Date: core.Today()})
			return err
		}},
		{"budget bad period", func() error {
			_, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 100, Period: "daily"})
			return err
		}},
		{"goal zero target", func() error {
			_, err := c.AddGoal(ctx, GoalInput{Title: "x", TargetAmount: 0, Deadline: core.Today(), Category: "savings"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !core.IsValidation(err) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}

	expenses, _ := c.Expenses(ctx)
	budgets, _ := c.Budgets(ctx)
	goals, _ := c.Goals(ctx)
	if len(expenses)+len(budgets)+len(goals) != 0 {
		t.Fatal("rejected inputs must not persist")
	}
}

func TestInvestmentAndCardCRUD(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	inv, err := c.AddInvestment(ctx, core.Investment{Name: "Index fund", Type: "stocks", Amount: 1000, CurrentValue: 1100})
	if err != nil {
		t.Fatalf("AddInvestment: %v", err)
	}
	inv.CurrentValue = 1200
	if _, err := c.UpdateInvestment(ctx, inv); err != nil {
		t.Fatalf("UpdateInvestment: %v", err)
	}
	if err := c.DeleteInvestment(ctx, inv.ID); err != nil {
		t.Fatalf("DeleteInvestment: %v", err)
	}
	if err := c.DeleteInvestment(ctx, inv.ID); !core.IsNotFound(err) {
		t.Fatalf("err = %v, want NotFoundError", err)
	}

	card, err := c.AddCard(ctx, core.Card{Name: "Everyday", Last4: "4242", Type: "credit", Bank: "ING"})
	if err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := c.DeleteCard(ctx, card.ID); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
}

func TestInvariantHoldsUnderMixedSequence(t *testing.T) {
	c, _ := newTestCoordinator(t)
	ctx := context.Background()

	if _, err := c.AddBudget(ctx, BudgetInput{Category: "Food", Amount: 500, Period: core.Monthly}); err != nil {
		t.Fatal(err)
	}
	var ids []string
	for i, amount := range []float64{12.5, 40, 7.3, 99} {
		e, err := c.AddExpense(ctx, ExpenseInput{Amount: amount, Category: "Food", Description: "item", Date: core.NewDate(2026, 8, i+1)})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e.ID)
	}
	amount := 25.0
	if _, err := c.UpdateExpense(ctx, ids[1], ExpensePatch{Amount: &amount}); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteExpense(ctx, ids[2]); err != nil {
		t.Fatal(err)
	}
	other := "Transport"
	if _, err := c.UpdateExpense(ctx, ids[3], ExpensePatch{Category: &other}); err != nil {
		t.Fatal(err)
	}

	checkAggregates(t, c)
}
