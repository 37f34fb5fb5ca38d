package ledger

import (
	"sort"
	"sync"

	"finvoice/internal/core"
)

// Event is a change notification for one collection. Subscribers type-switch
// over the concrete variants; there is no string-keyed event name to match.
type Event interface {
	Collection() core.Collection
}

type (
	ExpenseAdded struct {
		Expense core.Expense
	}

	ExpenseUpdated struct {
		Previous core.Expense
		Expense  core.Expense
	}

	ExpenseDeleted struct {
		Expense core.Expense
	}

	// BudgetChanged covers both explicit budget edits and derived Spent
	// adjustments triggered by expense mutations.
	BudgetChanged struct {
		Budget core.Budget
	}

	BudgetDeleted struct {
		Budget core.Budget
	}

	GoalChanged struct {
		Goal core.Goal
	}

	GoalDeleted struct {
		Goal core.Goal
	}

	InvestmentChanged struct {
		Investment core.Investment
	}

	InvestmentDeleted struct {
		Investment core.Investment
	}

	CardChanged struct {
		Card core.Card
	}

	CardDeleted struct {
		Card core.Card
	}
)

func (ExpenseAdded) Collection() core.Collection      { return core.CollectionExpenses }
func (ExpenseUpdated) Collection() core.Collection    { return core.CollectionExpenses }
func (ExpenseDeleted) Collection() core.Collection    { return core.CollectionExpenses }
func (BudgetChanged) Collection() core.Collection     { return core.CollectionBudgets }
func (BudgetDeleted) Collection() core.Collection     { return core.CollectionBudgets }
func (GoalChanged) Collection() core.Collection       { return core.CollectionGoals }
func (GoalDeleted) Collection() core.Collection       { return core.CollectionGoals }
func (InvestmentChanged) Collection() core.Collection { return core.CollectionInvestments }
func (InvestmentDeleted) Collection() core.Collection { return core.CollectionInvestments }
func (CardChanged) Collection() core.Collection       { return core.CollectionCards }
func (CardDeleted) Collection() core.Collection       { return core.CollectionCards }

// bus is the process-local subscriber registry. Callbacks run synchronously
// after a mutation has committed, in subscription order.
type bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func newBus() *bus {
	return &bus{subs: make(map[int]func(Event))}
}

func (b *bus) subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.subs[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
