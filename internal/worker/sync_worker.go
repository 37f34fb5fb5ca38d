// Package worker replays local ledger changes against the remote
// persistence service. Change messages carry only coordinates; the worker
// re-reads the current record from the local store before pushing, so the
// most recent local state always wins over message ordering.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finvoice/internal/amqp"
	"finvoice/internal/core"
	"finvoice/internal/log"
	"finvoice/internal/store"
)

type SyncWorker struct {
	local     store.Store
	remote    store.Store
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(local, remote store.Store, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		local:     local,
		remote:    remote,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// Run consumes change messages and periodically reconciles the given users'
// full collections, until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client, interval time.Duration, userIDs []string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return client.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
			return w.HandleChange(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				for _, userID := range userIDs {
					if err := w.Reconcile(ctx, userID); err != nil {
						w.logger.ErrorContext(ctx, "reconcile failed",
							log.FieldUserID, userID, log.FieldError, err)
					}
				}
			}
		}
	})

	return g.Wait()
}

// HandleChange applies one change message. Deletes that are already gone on
// the remote side are treated as done.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "processing change message",
		log.FieldCollection, string(msg.Collection),
		log.FieldOperation, string(msg.Op),
		log.FieldRecordID, msg.RecordID)

	if msg.Op == amqp.OpDelete {
		return w.applyDelete(ctx, msg)
	}
	return w.applyUpsert(ctx, msg)
}

func (w *SyncWorker) applyDelete(ctx context.Context, msg *amqp.ChangeMessage) error {
	var err error
	switch msg.Collection {
	case core.CollectionExpenses:
		err = w.remote.DeleteExpense(ctx, msg.UserID, msg.RecordID)
	case core.CollectionBudgets:
		err = w.remote.DeleteBudget(ctx, msg.UserID, msg.RecordID)
	case core.CollectionGoals:
		err = w.remote.DeleteGoal(ctx, msg.UserID, msg.RecordID)
	case core.CollectionInvestments:
		err = w.remote.DeleteInvestment(ctx, msg.UserID, msg.RecordID)
	case core.CollectionCards:
		err = w.remote.DeleteCard(ctx, msg.UserID, msg.RecordID)
	default:
		return fmt.Errorf("unknown collection: %s", msg.Collection)
	}
	if core.IsNotFound(err) {
		return nil
	}
	return err
}

func (w *SyncWorker) applyUpsert(ctx context.Context, msg *amqp.ChangeMessage) error {
	switch msg.Collection {
	case core.CollectionExpenses:
		record, err := w.local.GetExpense(ctx, msg.UserID, msg.RecordID)
		if core.IsNotFound(err) {
			// Deleted locally since the message was published.
			return nil
		}
		if err != nil {
			return fmt.Errorf("read local expense: %w", err)
		}
		return w.pushExpense(ctx, msg.UserID, record)
	case core.CollectionBudgets:
		record, err := w.local.GetBudget(ctx, msg.UserID, msg.RecordID)
		if core.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read local budget: %w", err)
		}
		return w.pushBudget(ctx, msg.UserID, record)
	case core.CollectionGoals:
		record, err := w.local.GetGoal(ctx, msg.UserID, msg.RecordID)
		if core.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read local goal: %w", err)
		}
		return w.pushGoal(ctx, msg.UserID, record)
	case core.CollectionInvestments:
		return w.pushInvestmentByID(ctx, msg.UserID, msg.RecordID)
	case core.CollectionCards:
		return w.pushCardByID(ctx, msg.UserID, msg.RecordID)
	default:
		return fmt.Errorf("unknown collection: %s", msg.Collection)
	}
}

func (w *SyncWorker) pushExpense(ctx context.Context, userID string, e core.Expense) error {
	if _, err := w.remote.UpdateExpense(ctx, userID, e); err != nil {
		if !core.IsNotFound(err) {
			return fmt.Errorf("push expense: %w", err)
		}
		if _, err := w.remote.InsertExpense(ctx, userID, e); err != nil {
			return fmt.Errorf("push expense: %w", err)
		}
	}
	return nil
}

func (w *SyncWorker) pushBudget(ctx context.Context, userID string, b core.Budget) error {
	if _, err := w.remote.UpdateBudget(ctx, userID, b); err != nil {
		if !core.IsNotFound(err) {
			return fmt.Errorf("push budget: %w", err)
		}
		if _, err := w.remote.InsertBudget(ctx, userID, b); err != nil {
			return fmt.Errorf("push budget: %w", err)
		}
	}
	return nil
}

func (w *SyncWorker) pushGoal(ctx context.Context, userID string, g core.Goal) error {
	if _, err := w.remote.UpdateGoal(ctx, userID, g); err != nil {
		if !core.IsNotFound(err) {
			return fmt.Errorf("push goal: %w", err)
		}
		if _, err := w.remote.InsertGoal(ctx, userID, g); err != nil {
			return fmt.Errorf("push goal: %w", err)
		}
	}
	return nil
}

func (w *SyncWorker) pushInvestmentByID(ctx context.Context, userID, id string) error {
	investments, err := w.local.ListInvestments(ctx, userID)
	if err != nil {
		return fmt.Errorf("read local investments: %w", err)
	}
	for _, inv := range investments {
		if inv.ID != id {
			continue
		}
		if _, err := w.remote.UpdateInvestment(ctx, userID, inv); err != nil {
			if !core.IsNotFound(err) {
				return fmt.Errorf("push investment: %w", err)
			}
			if _, err := w.remote.InsertInvestment(ctx, userID, inv); err != nil {
				return fmt.Errorf("push investment: %w", err)
			}
		}
		return nil
	}
	return nil
}

func (w *SyncWorker) pushCardByID(ctx context.Context, userID, id string) error {
	cards, err := w.local.ListCards(ctx, userID)
	if err != nil {
		return fmt.Errorf("read local cards: %w", err)
	}
	for _, card := range cards {
		if card.ID != id {
			continue
		}
		if _, err := w.remote.UpdateCard(ctx, userID, card); err != nil {
			if !core.IsNotFound(err) {
				return fmt.Errorf("push card: %w", err)
			}
			if _, err := w.remote.InsertCard(ctx, userID, card); err != nil {
				return fmt.Errorf("push card: %w", err)
			}
		}
		return nil
	}
	return nil
}

// Reconcile pushes every local record of the user to the remote store, one
// collection per goroutine, batching to avoid hammering the service.
func (w *SyncWorker) Reconcile(ctx context.Context, userID string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		expenses, err := w.local.ListExpenses(ctx, userID)
		if err != nil {
			return fmt.Errorf("list local expenses: %w", err)
		}
		return pushBatched(ctx, expenses, w.batchSize, func(e core.Expense) error {
			return w.pushExpense(ctx, userID, e)
		})
	})
	g.Go(func() error {
		budgets, err := w.local.ListBudgets(ctx, userID)
		if err != nil {
			return fmt.Errorf("list local budgets: %w", err)
		}
		return pushBatched(ctx, budgets, w.batchSize, func(b core.Budget) error {
			return w.pushBudget(ctx, userID, b)
		})
	})
	g.Go(func() error {
		goals, err := w.local.ListGoals(ctx, userID)
		if err != nil {
			return fmt.Errorf("list local goals: %w", err)
		}
		return pushBatched(ctx, goals, w.batchSize, func(goal core.Goal) error {
			return w.pushGoal(ctx, userID, goal)
		})
	})

	if err := g.Wait(); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "reconcile complete", log.FieldUserID, userID)
	return nil
}

// pushBatched applies fn to each record, yielding to ctx between batches.
func pushBatched[T any](ctx context.Context, records []T, batchSize int, fn func(T) error) error {
	for i, record := range records {
		if i > 0 && i%batchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return nil
}
