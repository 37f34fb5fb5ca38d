package core

import (
	"math"
	"strings"
	"time"
)

const (
	Monthly BudgetPeriod = "monthly"
	Weekly  BudgetPeriod = "weekly"
	Yearly  BudgetPeriod = "yearly"
)

const (
	CollectionExpenses    Collection = "expenses"
	CollectionBudgets     Collection = "budgets"
	CollectionGoals       Collection = "goals"
	CollectionInvestments Collection = "investments"
	CollectionCards       Collection = "cards"
)

// GoalContributionPrefix is the category prefix of the expense mirrored for
// every goal contribution; the goal title is appended to it.
const GoalContributionPrefix = "Goal Contribution – "

type (
	BudgetPeriod string

	// Collection names one of the persisted entity collections.
	Collection string

	// Date is a calendar day without time-of-day, serialized as YYYY-MM-DD.
	Date struct {
		time.Time
	}

	// Expense is one ledger entry. It is the append boundary for all
	// derived aggregates.
	Expense struct {
		ID          string    `json:"id"`
		Amount      float64   `json:"amount"`
		Category    string    `json:"category"`
		Description string    `json:"description"`
		Date        Date      `json:"date"`
		VoiceNote   string    `json:"voiceNote,omitempty"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// Budget tracks a per-category spending limit. Spent is derived from
	// the ledger and must never be edited directly.
	Budget struct {
		ID        string       `json:"id"`
		Category  string       `json:"category"`
		Amount    float64      `json:"amount"`
		Spent     float64      `json:"spent"`
		Period    BudgetPeriod `json:"period"`
		CreatedAt time.Time    `json:"createdAt"`
	}

	// Goal is a savings target. CurrentAmount moves only through explicit
	// contributions, never by recomputation from expenses.
	Goal struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		TargetAmount  float64   `json:"targetAmount"`
		CurrentAmount float64   `json:"currentAmount"`
		Deadline      Date      `json:"deadline"`
		Category      string    `json:"category"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	Investment struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Type         string    `json:"type"`
		Amount       float64   `json:"amount"`
		CurrentValue float64   `json:"currentValue"`
		Returns      float64   `json:"returns"`
		CreatedAt    time.Time `json:"createdAt"`
	}

	Card struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Last4     string    `json:"last4"`
		Type      string    `json:"type"` // "credit" or "debit"
		Bank      string    `json:"bank"`
		Limit     float64   `json:"limit,omitempty"`
		Balance   float64   `json:"balance,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// IncomeSource feeds the insight engine; it is not managed by the
	// ledger coordinator.
	IncomeSource struct {
		ID        string  `json:"id"`
		Source    string  `json:"source"`
		Amount    float64 `json:"amount"`
		Frequency string  `json:"frequency"` // "monthly", "weekly", "yearly"
		Active    bool    `json:"active"`
	}
)

func (c Collection) IsValid() bool {
	switch c {
	case CollectionExpenses, CollectionBudgets, CollectionGoals, CollectionInvestments, CollectionCards:
		return true
	default:
		return false
	}
}

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case Monthly, Weekly, Yearly:
		return true
	default:
		return false
	}
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Today returns the current calendar day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM bucket key used by monthly aggregations.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// finitePositive reports whether v is a finite number greater than zero.
func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

// finiteNonNegative reports whether v is a finite number >= 0.
func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func (e Expense) Validate() error {
	if !finitePositive(e.Amount) {
		return &ValidationError{Field: "amount", Reason: "must be a finite number greater than zero"}
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Reason: "required"}
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return &ValidationError{Field: "category", Reason: "required"}
	}
	if !finitePositive(b.Amount) {
		return &ValidationError{Field: "amount", Reason: "must be a finite number greater than zero"}
	}
	if !finiteNonNegative(b.Spent) {
		return &ValidationError{Field: "spent", Reason: "must be a finite non-negative number"}
	}
	if !b.Period.IsValid() {
		return &ValidationError{Field: "period", Reason: "must be monthly, weekly or yearly"}
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if !finitePositive(g.TargetAmount) {
		return &ValidationError{Field: "targetAmount", Reason: "must be a finite number greater than zero"}
	}
	if !finiteNonNegative(g.CurrentAmount) {
		return &ValidationError{Field: "currentAmount", Reason: "must be a finite non-negative number"}
	}
	if g.Deadline.IsZero() {
		return &ValidationError{Field: "deadline", Reason: "required"}
	}
	return nil
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if strings.TrimSpace(i.Type) == "" {
		return &ValidationError{Field: "type", Reason: "required"}
	}
	if !finiteNonNegative(i.Amount) {
		return &ValidationError{Field: "amount", Reason: "must be a finite non-negative number"}
	}
	if !finiteNonNegative(i.CurrentValue) {
		return &ValidationError{Field: "currentValue", Reason: "must be a finite non-negative number"}
	}
	return nil
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if len(c.Last4) != 4 {
		return &ValidationError{Field: "last4", Reason: "must be exactly four digits"}
	}
	if c.Type != "credit" && c.Type != "debit" {
		return &ValidationError{Field: "type", Reason: "must be credit or debit"}
	}
	if strings.TrimSpace(c.Bank) == "" {
		return &ValidationError{Field: "bank", Reason: "required"}
	}
	return nil
}
