// Package sqlite implements the local optimistic store on a SQLite file
// database. Writes land locally first; propagation to the remote store is
// handled out of band by the sync worker.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"finvoice/internal/core"
	"finvoice/internal/store"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Timestamps are stored as RFC 3339 text so they survive the driver's
// dynamic typing unambiguously.
const timeLayout = time.RFC3339Nano

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func decodeDate(s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}

// Expenses

func (r *Repository) ListExpenses(ctx context.Context, userID string) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, category, description, date, voice_note, created_at
		 FROM expenses WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var e core.Expense
		var date, createdAt string
		if err := rows.Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &date, &e.VoiceNote, &createdAt); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = decodeDate(date)
		e.CreatedAt = decodeTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) GetExpense(ctx context.Context, userID, id string) (core.Expense, error) {
	var e core.Expense
	var date, createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, amount, category, description, date, voice_note, created_at
		 FROM expenses WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&e.ID, &e.Amount, &e.Category, &e.Description, &date, &e.VoiceNote, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{Collection: core.CollectionExpenses, ID: id}
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	e.Date = decodeDate(date)
	e.CreatedAt = decodeTime(createdAt)
	return e, nil
}

func (r *Repository) InsertExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (id, user_id, amount, category, description, date, voice_note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, userID, e.Amount, e.Category, e.Description, e.Date.String(), e.VoiceNote, encodeTime(e.CreatedAt))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	return e, nil
}

func (r *Repository) UpdateExpense(ctx context.Context, userID string, e core.Expense) (core.Expense, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount = ?, category = ?, description = ?, date = ?, voice_note = ?
		 WHERE user_id = ? AND id = ?`,
		e.Amount, e.Category, e.Description, e.Date.String(), e.VoiceNote, userID, e.ID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Expense{}, &core.NotFoundError{Collection: core.CollectionExpenses, ID: e.ID}
	}
	return r.GetExpense(ctx, userID, e.ID)
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Collection: core.CollectionExpenses, ID: id}
	}
	return nil
}

// Budgets

func (r *Repository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount, spent, period, created_at
		 FROM budgets WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var createdAt string
		if err := rows.Scan(&b.ID, &b.Category, &b.Amount, &b.Spent, &b.Period, &createdAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.CreatedAt = decodeTime(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) GetBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	var b core.Budget
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, category, amount, spent, period, created_at
		 FROM budgets WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&b.ID, &b.Category, &b.Amount, &b.Spent, &b.Period, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, &core.NotFoundError{Collection: core.CollectionBudgets, ID: id}
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	b.CreatedAt = decodeTime(createdAt)
	return b, nil
}

func (r *Repository) InsertBudget(ctx context.Context, userID string, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category, amount, spent, period, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, userID, b.Category, b.Amount, b.Spent, b.Period, encodeTime(b.CreatedAt))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	return b, nil
}

func (r *Repository) UpdateBudget(ctx context.Context, userID string, b core.Budget) (core.Budget, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount = ?, spent = ?, period = ?
		 WHERE user_id = ? AND id = ?`,
		b.Category, b.Amount, b.Spent, b.Period, userID, b.ID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Budget{}, &core.NotFoundError{Collection: core.CollectionBudgets, ID: b.ID}
	}
	return r.GetBudget(ctx, userID, b.ID)
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Collection: core.CollectionBudgets, ID: id}
	}
	return nil
}

// Goals

func (r *Repository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, target_amount, current_amount, deadline, category, created_at
		 FROM goals WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var deadline, createdAt string
		if err := rows.Scan(&g.ID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &deadline, &g.Category, &createdAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Deadline = decodeDate(deadline)
		g.CreatedAt = decodeTime(createdAt)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *Repository) GetGoal(ctx context.Context, userID, id string) (core.Goal, error) {
	var g core.Goal
	var deadline, createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, target_amount, current_amount, deadline, category, created_at
		 FROM goals WHERE user_id = ? AND id = ?`, userID, id).
		Scan(&g.ID, &g.Title, &g.TargetAmount, &g.CurrentAmount, &deadline, &g.Category, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, &core.NotFoundError{Collection: core.CollectionGoals, ID: id}
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	g.Deadline = decodeDate(deadline)
	g.CreatedAt = decodeTime(createdAt)
	return g, nil
}

func (r *Repository) InsertGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, title, target_amount, current_amount, deadline, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, userID, g.Title, g.TargetAmount, g.CurrentAmount, g.Deadline.String(), g.Category, encodeTime(g.CreatedAt))
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (r *Repository) UpdateGoal(ctx context.Context, userID string, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE goals SET title = ?, target_amount = ?, current_amount = ?, deadline = ?, category = ?
		 WHERE user_id = ? AND id = ?`,
		g.Title, g.TargetAmount, g.CurrentAmount, g.Deadline.String(), g.Category, userID, g.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Goal{}, &core.NotFoundError{Collection: core.CollectionGoals, ID: g.ID}
	}
	return r.GetGoal(ctx, userID, g.ID)
}

func (r *Repository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Collection: core.CollectionGoals, ID: id}
	}
	return nil
}

// Investments

func (r *Repository) ListInvestments(ctx context.Context, userID string) ([]core.Investment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type, amount, current_value, returns, created_at
		 FROM investments WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	defer rows.Close()

	var out []core.Investment
	for rows.Next() {
		var inv core.Investment
		var createdAt string
		if err := rows.Scan(&inv.ID, &inv.Name, &inv.Type, &inv.Amount, &inv.CurrentValue, &inv.Returns, &createdAt); err != nil {
			return nil, fmt.Errorf("scan investment: %w", err)
		}
		inv.CreatedAt = decodeTime(createdAt)
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *Repository) InsertInvestment(ctx context.Context, userID string, inv core.Investment) (core.Investment, error) {
	if err := inv.Validate(); err != nil {
		return core.Investment{}, err
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO investments (id, user_id, name, type, amount, current_value, returns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, userID, inv.Name, inv.Type, inv.Amount, inv.CurrentValue, inv.Returns, encodeTime(inv.CreatedAt))
	if err != nil {
		return core.Investment{}, fmt.Errorf("insert investment: %w", err)
	}
	return inv, nil
}

func (r *Repository) UpdateInvestment(ctx context.Context, userID string, inv core.Investment) (core.Investment, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE investments SET name = ?, type = ?, amount = ?, current_value = ?, returns = ?
		 WHERE user_id = ? AND id = ?`,
		inv.Name, inv.Type, inv.Amount, inv.CurrentValue, inv.Returns, userID, inv.ID)
	if err != nil {
		return core.Investment{}, fmt.Errorf("update investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Investment{}, &core.NotFoundError{Collection: core.CollectionInvestments, ID: inv.ID}
	}
	return inv, nil
}

func (r *Repository) DeleteInvestment(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM investments WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete investment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Collection: core.CollectionInvestments, ID: id}
	}
	return nil
}

// Cards

func (r *Repository) ListCards(ctx context.Context, userID string) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, last4, type, bank, credit_limit, balance, created_at
		 FROM cards WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		var c core.Card
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Last4, &c.Type, &c.Bank, &c.Limit, &c.Balance, &createdAt); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.CreatedAt = decodeTime(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) InsertCard(ctx context.Context, userID string, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (id, user_id, name, last4, type, bank, credit_limit, balance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, userID, c.Name, c.Last4, c.Type, c.Bank, c.Limit, c.Balance, encodeTime(c.CreatedAt))
	if err != nil {
		return core.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateCard(ctx context.Context, userID string, c core.Card) (core.Card, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET name = ?, last4 = ?, type = ?, bank = ?, credit_limit = ?, balance = ?
		 WHERE user_id = ? AND id = ?`,
		c.Name, c.Last4, c.Type, c.Bank, c.Limit, c.Balance, userID, c.ID)
	if err != nil {
		return core.Card{}, fmt.Errorf("update card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Card{}, &core.NotFoundError{Collection: core.CollectionCards, ID: c.ID}
	}
	return c, nil
}

func (r *Repository) DeleteCard(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM cards WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &core.NotFoundError{Collection: core.CollectionCards, ID: id}
	}
	return nil
}
