package worker

import (
	"context"

	"finvoice/internal/amqp"
	"finvoice/internal/core"
	"finvoice/internal/ledger"
	"finvoice/internal/log"
)

// ChangePublisher is what the relay needs from the AMQP client.
type ChangePublisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Relay bridges ledger change events onto the AMQP exchange. Publishing is
// best effort: a broker outage must not fail the mutation that already
// committed locally.
type Relay struct {
	publisher ChangePublisher
	userID    string
	logger    *log.Logger
}

func NewRelay(publisher ChangePublisher, userID string, logger *log.Logger) *Relay {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Relay{
		publisher: publisher,
		userID:    userID,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Attach subscribes the relay to the coordinator. The returned function
// detaches it.
func (r *Relay) Attach(c *ledger.Coordinator) (cancel func()) {
	return c.Subscribe(func(ev ledger.Event) {
		msg := r.translate(ev)
		if msg == nil {
			return
		}
		if err := r.publisher.PublishChange(context.Background(), msg); err != nil {
			r.logger.Warn("change publish failed",
				log.FieldCollection, string(msg.Collection),
				log.FieldRecordID, msg.RecordID,
				log.FieldError, err)
		}
	})
}

func (r *Relay) translate(ev ledger.Event) *amqp.ChangeMessage {
	switch e := ev.(type) {
	case ledger.ExpenseAdded:
		return amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpInsert, r.userID, e.Expense.ID)
	case ledger.ExpenseUpdated:
		return amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpUpdate, r.userID, e.Expense.ID)
	case ledger.ExpenseDeleted:
		return amqp.NewChangeMessage(core.CollectionExpenses, amqp.OpDelete, r.userID, e.Expense.ID)
	case ledger.BudgetChanged:
		return amqp.NewChangeMessage(core.CollectionBudgets, amqp.OpUpdate, r.userID, e.Budget.ID)
	case ledger.BudgetDeleted:
		return amqp.NewChangeMessage(core.CollectionBudgets, amqp.OpDelete, r.userID, e.Budget.ID)
	case ledger.GoalChanged:
		return amqp.NewChangeMessage(core.CollectionGoals, amqp.OpUpdate, r.userID, e.Goal.ID)
	case ledger.GoalDeleted:
		return amqp.NewChangeMessage(core.CollectionGoals, amqp.OpDelete, r.userID, e.Goal.ID)
	case ledger.InvestmentChanged:
		return amqp.NewChangeMessage(core.CollectionInvestments, amqp.OpUpdate, r.userID, e.Investment.ID)
	case ledger.InvestmentDeleted:
		return amqp.NewChangeMessage(core.CollectionInvestments, amqp.OpDelete, r.userID, e.Investment.ID)
	case ledger.CardChanged:
		return amqp.NewChangeMessage(core.CollectionCards, amqp.OpUpdate, r.userID, e.Card.ID)
	case ledger.CardDeleted:
		return amqp.NewChangeMessage(core.CollectionCards, amqp.OpDelete, r.userID, e.Card.ID)
	default:
		return nil
	}
}
