// Package ledger implements the coordinator: the single authority for
// mutations to the persisted collections. It keeps the derived budget
// aggregates consistent with the expense ledger on every mutation and
// notifies in-process subscribers through typed change events.
//
// The aggregate arithmetic lives here, once, against the store port; the
// backends never duplicate it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"finvoice/internal/core"
	"finvoice/internal/identity"
	"finvoice/internal/log"
	"finvoice/internal/store"
)

// Coordinator is constructed once per session and injected into consumers.
// It serializes nothing across calls: two sequential calls from one caller
// see each other's effects, but concurrent callers can race on the same
// budget's Spent field (last writer wins, as the persistence service has no
// versioning).
type Coordinator struct {
	store  store.Store
	ident  identity.Provider
	events *bus
	logger *log.Logger
}

func New(st store.Store, ident identity.Provider, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Coordinator{
		store:  st,
		ident:  ident,
		events: newBus(),
		logger: logger.WithComponent(log.ComponentLedger),
	}
}

// Subscribe registers fn for every change event. Callbacks run synchronously
// after the mutation has committed; the returned function cancels the
// subscription.
func (c *Coordinator) Subscribe(fn func(Event)) (cancel func()) {
	return c.events.subscribe(fn)
}

type (
	// ExpenseInput carries caller-supplied fields for a new expense; id
	// and creation timestamp are server-assigned.
	ExpenseInput struct {
		Amount      float64
		Category    string
		Description string
		Date        core.Date
		VoiceNote   string
	}

	// ExpensePatch updates an existing expense. Nil fields stay unchanged.
	ExpensePatch struct {
		Amount      *float64
		Category    *string
		Description *string
		Date        *core.Date
		VoiceNote   *string
	}

	BudgetInput struct {
		Category string
		Amount   float64
		Period   core.BudgetPeriod
	}

	// BudgetPatch never carries Spent: the derived aggregate is owned by
	// the coordinator.
	BudgetPatch struct {
		Category *string
		Amount   *float64
		Period   *core.BudgetPeriod
	}

	GoalInput struct {
		Title        string
		TargetAmount float64
		Deadline     core.Date
		Category     string
	}

	// GoalPatch never carries CurrentAmount: contributions are the only
	// way to move it.
	GoalPatch struct {
		Title        *string
		TargetAmount *float64
		Deadline     *core.Date
		Category     *string
	}
)

// storeErr wraps failures from the persistence layer into StoreError unless
// they already belong to the error taxonomy.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if core.IsValidation(err) || core.IsNotFound(err) || core.IsConsistency(err) ||
		core.IsStore(err) || errors.Is(err, core.ErrNotAuthenticated) {
		return err
	}
	return &core.StoreError{Op: op, Err: err}
}

func (c *Coordinator) user(ctx context.Context) (string, error) {
	if c.ident == nil {
		return "", core.ErrNotAuthenticated
	}
	return c.ident.UserID(ctx)
}

// Reads

func (c *Coordinator) Expenses(ctx context.Context) ([]core.Expense, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.store.ListExpenses(ctx, userID)
	return out, storeErr("list expenses", err)
}

func (c *Coordinator) Budgets(ctx context.Context) ([]core.Budget, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.store.ListBudgets(ctx, userID)
	return out, storeErr("list budgets", err)
}

func (c *Coordinator) Goals(ctx context.Context) ([]core.Goal, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.store.ListGoals(ctx, userID)
	return out, storeErr("list goals", err)
}

func (c *Coordinator) Investments(ctx context.Context) ([]core.Investment, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.store.ListInvestments(ctx, userID)
	return out, storeErr("list investments", err)
}

func (c *Coordinator) Cards(ctx context.Context) ([]core.Card, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return nil, err
	}
	out, err := c.store.ListCards(ctx, userID)
	return out, storeErr("list cards", err)
}

// Snapshot assembles a read-only view of all collections for the insight
// engine. Income sources come from the caller's profile, outside the ledger.
func (c *Coordinator) Snapshot(ctx context.Context, income []core.IncomeSource) (core.Snapshot, error) {
	expenses, err := c.Expenses(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	budgets, err := c.Budgets(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	goals, err := c.Goals(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	investments, err := c.Investments(ctx)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{
		Expenses:    expenses,
		Budgets:     budgets,
		Goals:       goals,
		Investments: investments,
		Income:      income,
	}, nil
}

// Summary computes the dashboard balance figures over the current snapshot.
func (c *Coordinator) Summary(ctx context.Context, income []core.IncomeSource) (core.Summary, error) {
	snap, err := c.Snapshot(ctx, income)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(snap), nil
}

// Expense mutations

// budgetFor finds the budget matching an expense category, if one exists.
// A budget is optional; its absence makes aggregate maintenance a no-op.
func (c *Coordinator) budgetFor(ctx context.Context, userID, category string) (core.Budget, bool, error) {
	budgets, err := c.store.ListBudgets(ctx, userID)
	if err != nil {
		return core.Budget{}, false, err
	}
	for _, b := range budgets {
		if b.Category == category {
			return b, true, nil
		}
	}
	return core.Budget{}, false, nil
}

// adjustBudgetSpent applies delta to the Spent aggregate of the budget
// covering category and publishes BudgetChanged. No matching budget, no
// change.
func (c *Coordinator) adjustBudgetSpent(ctx context.Context, userID, category string, delta float64) error {
	budget, ok, err := c.budgetFor(ctx, userID, category)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	budget.Spent += delta
	updated, err := c.store.UpdateBudget(ctx, userID, budget)
	if err != nil {
		return err
	}
	c.events.publish(BudgetChanged{Budget: updated})
	return nil
}

// AddExpense inserts a new expense and rolls its amount into the matching
// budget's Spent aggregate, when a budget for that category exists.
func (c *Coordinator) AddExpense(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	expense := core.Expense{
		Amount:      in.Amount,
		Category:    in.Category,
		Description: in.Description,
		Date:        in.Date,
		VoiceNote:   in.VoiceNote,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, err
	}

	created, err := c.store.InsertExpense(ctx, userID, expense)
	if err != nil {
		return core.Expense{}, storeErr("insert expense", err)
	}

	if err := c.adjustBudgetSpent(ctx, userID, created.Category, created.Amount); err != nil {
		return core.Expense{}, storeErr("update budget aggregate", err)
	}

	c.logger.InfoContext(ctx, "expense added",
		log.FieldRecordID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, created.Amount)
	c.events.publish(ExpenseAdded{Expense: created})
	return created, nil
}

// UpdateExpense patches an existing expense. When amount or category change,
// the old contribution is reversed on the old category's budget and the new
// one applied, in that order, before the patched record is persisted.
func (c *Coordinator) UpdateExpense(ctx context.Context, id string, patch ExpensePatch) (core.Expense, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Expense{}, err
	}

	previous, err := c.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, storeErr("get expense", err)
	}

	next := previous
	if patch.Amount != nil {
		next.Amount = *patch.Amount
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Date != nil {
		next.Date = *patch.Date
	}
	if patch.VoiceNote != nil {
		next.VoiceNote = *patch.VoiceNote
	}
	if err := next.Validate(); err != nil {
		return core.Expense{}, err
	}

	if next.Amount != previous.Amount || next.Category != previous.Category {
		if previous.Category == next.Category {
			if err := c.adjustBudgetSpent(ctx, userID, previous.Category, next.Amount-previous.Amount); err != nil {
				return core.Expense{}, storeErr("update budget aggregate", err)
			}
		} else {
			if err := c.adjustBudgetSpent(ctx, userID, previous.Category, -previous.Amount); err != nil {
				return core.Expense{}, storeErr("reverse budget aggregate", err)
			}
			if err := c.adjustBudgetSpent(ctx, userID, next.Category, next.Amount); err != nil {
				return core.Expense{}, storeErr("apply budget aggregate", err)
			}
		}
	}

	updated, err := c.store.UpdateExpense(ctx, userID, next)
	if err != nil {
		return core.Expense{}, storeErr("update expense", err)
	}

	c.events.publish(ExpenseUpdated{Previous: previous, Expense: updated})
	return updated, nil
}

// DeleteExpense removes an expense after reversing its contribution to the
// matching budget's Spent aggregate.
func (c *Coordinator) DeleteExpense(ctx context.Context, id string) error {
	userID, err := c.user(ctx)
	if err != nil {
		return err
	}

	expense, err := c.store.GetExpense(ctx, userID, id)
	if err != nil {
		return storeErr("get expense", err)
	}

	if err := c.adjustBudgetSpent(ctx, userID, expense.Category, -expense.Amount); err != nil {
		return storeErr("reverse budget aggregate", err)
	}

	if err := c.store.DeleteExpense(ctx, userID, id); err != nil {
		return storeErr("delete expense", err)
	}

	c.logger.InfoContext(ctx, "expense deleted",
		log.FieldRecordID, id,
		log.FieldCategory, expense.Category)
	c.events.publish(ExpenseDeleted{Expense: expense})
	return nil
}

// Budget mutations

// AddBudget inserts a budget with Spent initialized to the sum of the
// expenses already recorded in its category, so the aggregate invariant
// holds immediately even for expenses that pre-date the budget.
func (c *Coordinator) AddBudget(ctx context.Context, in BudgetInput) (core.Budget, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Budget{}, err
	}

	budget := core.Budget{
		Category: in.Category,
		Amount:   in.Amount,
		Period:   in.Period,
	}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}

	spent, err := c.categoryTotal(ctx, userID, budget.Category)
	if err != nil {
		return core.Budget{}, storeErr("sum category expenses", err)
	}
	budget.Spent = spent

	created, err := c.store.InsertBudget(ctx, userID, budget)
	if err != nil {
		return core.Budget{}, storeErr("insert budget", err)
	}

	c.logger.InfoContext(ctx, "budget added",
		log.FieldBudgetID, created.ID,
		log.FieldCategory, created.Category,
		log.FieldAmount, created.Amount)
	c.events.publish(BudgetChanged{Budget: created})
	return created, nil
}

func (c *Coordinator) categoryTotal(ctx context.Context, userID, category string) (float64, error) {
	expenses, err := c.store.ListExpenses(ctx, userID)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, e := range expenses {
		if e.Category == category {
			total += e.Amount
		}
	}
	return total, nil
}

// UpdateBudget patches limit, period or category. Spent is not patchable;
// when the category changes it is recomputed from the ledger so the
// invariant keeps holding.
func (c *Coordinator) UpdateBudget(ctx context.Context, id string, patch BudgetPatch) (core.Budget, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Budget{}, err
	}

	budget, err := c.store.GetBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, storeErr("get budget", err)
	}

	if patch.Category != nil && *patch.Category != budget.Category {
		budget.Category = *patch.Category
		spent, err := c.categoryTotal(ctx, userID, budget.Category)
		if err != nil {
			return core.Budget{}, storeErr("sum category expenses", err)
		}
		budget.Spent = spent
	}
	if patch.Amount != nil {
		budget.Amount = *patch.Amount
	}
	if patch.Period != nil {
		budget.Period = *patch.Period
	}
	if err := budget.Validate(); err != nil {
		return core.Budget{}, err
	}

	updated, err := c.store.UpdateBudget(ctx, userID, budget)
	if err != nil {
		return core.Budget{}, storeErr("update budget", err)
	}

	c.events.publish(BudgetChanged{Budget: updated})
	return updated, nil
}

func (c *Coordinator) DeleteBudget(ctx context.Context, id string) error {
	userID, err := c.user(ctx)
	if err != nil {
		return err
	}

	budget, err := c.store.GetBudget(ctx, userID, id)
	if err != nil {
		return storeErr("get budget", err)
	}
	if err := c.store.DeleteBudget(ctx, userID, id); err != nil {
		return storeErr("delete budget", err)
	}

	c.events.publish(BudgetDeleted{Budget: budget})
	return nil
}

// Goal mutations

func (c *Coordinator) AddGoal(ctx context.Context, in GoalInput) (core.Goal, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Goal{}, err
	}

	goal := core.Goal{
		Title:        in.Title,
		TargetAmount: in.TargetAmount,
		Deadline:     in.Deadline,
		Category:     in.Category,
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}

	created, err := c.store.InsertGoal(ctx, userID, goal)
	if err != nil {
		return core.Goal{}, storeErr("insert goal", err)
	}

	c.events.publish(GoalChanged{Goal: created})
	return created, nil
}

func (c *Coordinator) UpdateGoal(ctx context.Context, id string, patch GoalPatch) (core.Goal, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Goal{}, err
	}

	goal, err := c.store.GetGoal(ctx, userID, id)
	if err != nil {
		return core.Goal{}, storeErr("get goal", err)
	}

	if patch.Title != nil {
		goal.Title = *patch.Title
	}
	if patch.TargetAmount != nil {
		goal.TargetAmount = *patch.TargetAmount
	}
	if patch.Deadline != nil {
		goal.Deadline = *patch.Deadline
	}
	if patch.Category != nil {
		goal.Category = *patch.Category
	}
	if err := goal.Validate(); err != nil {
		return core.Goal{}, err
	}

	updated, err := c.store.UpdateGoal(ctx, userID, goal)
	if err != nil {
		return core.Goal{}, storeErr("update goal", err)
	}

	c.events.publish(GoalChanged{Goal: updated})
	return updated, nil
}

func (c *Coordinator) DeleteGoal(ctx context.Context, id string) error {
	userID, err := c.user(ctx)
	if err != nil {
		return err
	}

	goal, err := c.store.GetGoal(ctx, userID, id)
	if err != nil {
		return storeErr("get goal", err)
	}
	if err := c.store.DeleteGoal(ctx, userID, id); err != nil {
		return storeErr("delete goal", err)
	}

	c.events.publish(GoalDeleted{Goal: goal})
	return nil
}

// ContributeToGoal increments the goal's saved amount and inserts the
// mirrored expense that makes the contribution visible to budget and
// spending analytics. The two writes form one logical transaction: if the
// mirrored insert fails the increment is rolled back, and a rollback
// failure surfaces as ConsistencyError so the caller can retry the missing
// half instead of double-applying.
func (c *Coordinator) ContributeToGoal(ctx context.Context, goalID string, amount float64, note string, date core.Date) (core.Goal, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Goal{}, err
	}

	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return core.Goal{}, &core.ValidationError{Field: "amount", Reason: "must be a finite number greater than zero"}
	}

	goal, err := c.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		if core.IsNotFound(err) {
			return core.Goal{}, &core.ValidationError{Field: "goalId", Reason: "unknown goal"}
		}
		return core.Goal{}, storeErr("get goal", err)
	}

	incremented := goal
	incremented.CurrentAmount += amount
	updatedGoal, err := c.store.UpdateGoal(ctx, userID, incremented)
	if err != nil {
		return core.Goal{}, storeErr("increment goal", err)
	}

	if note == "" {
		note = fmt.Sprintf("Contribution to %s", goal.Title)
	}
	if date.IsZero() {
		date = core.Today()
	}

	mirrored := core.Expense{
		Amount:      amount,
		Category:    core.GoalContributionPrefix + goal.Title,
		Description: note,
		Date:        date,
	}
	created, err := c.store.InsertExpense(ctx, userID, mirrored)
	if err != nil {
		// Roll the increment back so the goal and the ledger stay
		// consistent. If even that fails, the partial state must be
		// surfaced distinctly.
		if _, rbErr := c.store.UpdateGoal(ctx, userID, goal); rbErr != nil {
			c.logger.ErrorContext(ctx, "contribution rollback failed",
				log.FieldGoalID, goalID,
				log.FieldError, rbErr)
			return core.Goal{}, &core.ConsistencyError{
				Op:    "contribute to goal",
				Cause: fmt.Errorf("mirrored expense insert failed (%v) and rollback failed (%v)", err, rbErr),
			}
		}
		return core.Goal{}, storeErr("insert mirrored expense", err)
	}

	if err := c.adjustBudgetSpent(ctx, userID, created.Category, created.Amount); err != nil {
		return core.Goal{}, storeErr("update budget aggregate", err)
	}

	c.logger.InfoContext(ctx, "goal contribution recorded",
		log.FieldGoalID, goalID,
		log.FieldAmount, amount)
	c.events.publish(GoalChanged{Goal: updatedGoal})
	c.events.publish(ExpenseAdded{Expense: created})
	return updatedGoal, nil
}

// Investment mutations

func (c *Coordinator) AddInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Investment{}, err
	}
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}

	created, err := c.store.InsertInvestment(ctx, userID, inv)
	if err != nil {
		return core.Investment{}, storeErr("insert investment", err)
	}
	c.events.publish(InvestmentChanged{Investment: created})
	return created, nil
}

func (c *Coordinator) UpdateInvestment(ctx context.Context, inv core.Investment) (core.Investment, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Investment{}, err
	}
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}

	updated, err := c.store.UpdateInvestment(ctx, userID, inv)
	if err != nil {
		return core.Investment{}, storeErr("update investment", err)
	}
	c.events.publish(InvestmentChanged{Investment: updated})
	return updated, nil
}

func (c *Coordinator) DeleteInvestment(ctx context.Context, id string) error {
	userID, err := c.user(ctx)
	if err != nil {
		return err
	}

	investments, err := c.store.ListInvestments(ctx, userID)
	if err != nil {
		return storeErr("list investments", err)
	}
	var deleted core.Investment
	for _, inv := range investments {
		if inv.ID == id {
			deleted = inv
			break
		}
	}
	if deleted.ID == "" {
		return &core.NotFoundError{Collection: core.CollectionInvestments, ID: id}
	}

	if err := c.store.DeleteInvestment(ctx, userID, id); err != nil {
		return storeErr("delete investment", err)
	}
	c.events.publish(InvestmentDeleted{Investment: deleted})
	return nil
}

// Card mutations

func (c *Coordinator) AddCard(ctx context.Context, card core.Card) (core.Card, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Card{}, err
	}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}

	created, err := c.store.InsertCard(ctx, userID, card)
	if err != nil {
		return core.Card{}, storeErr("insert card", err)
	}
	c.events.publish(CardChanged{Card: created})
	return created, nil
}

func (c *Coordinator) UpdateCard(ctx context.Context, card core.Card) (core.Card, error) {
	userID, err := c.user(ctx)
	if err != nil {
		return core.Card{}, err
	}
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}

	updated, err := c.store.UpdateCard(ctx, userID, card)
	if err != nil {
		return core.Card{}, storeErr("update card", err)
	}
	c.events.publish(CardChanged{Card: updated})
	return updated, nil
}

func (c *Coordinator) DeleteCard(ctx context.Context, id string) error {
	userID, err := c.user(ctx)
	if err != nil {
		return err
	}

	cards, err := c.store.ListCards(ctx, userID)
	if err != nil {
		return storeErr("list cards", err)
	}
	var deleted core.Card
	for _, card := range cards {
		if card.ID == id {
			deleted = card
			break
		}
	}
	if deleted.ID == "" {
		return &core.NotFoundError{Collection: core.CollectionCards, ID: id}
	}

	if err := c.store.DeleteCard(ctx, userID, id); err != nil {
		return storeErr("delete card", err)
	}
	c.events.publish(CardDeleted{Card: deleted})
	return nil
}
