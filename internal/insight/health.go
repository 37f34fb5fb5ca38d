package insight

import (
	"time"

	"finvoice/internal/core"
)

// HealthScore composes the 0-100 wellbeing indicator from four weighted
// buckets. Each bucket degrades to a defined default on an empty collection,
// so the score is always a finite number.
type HealthScore struct {
	Score           float64 `json:"score"`
	BudgetScore     float64 `json:"budgetScore"`
	GoalScore       float64 `json:"goalScore"`
	Diversification float64 `json:"diversificationScore"`
	ExpenseTrend    float64 `json:"expenseTrendScore"`
}

// healthScore evaluates the snapshot as of now.
func healthScore(snap core.Snapshot, now time.Time) HealthScore {
	budget := budgetAdherenceScore(snap.Budgets)
	goal := goalProgressScore(snap.Goals)
	diversification := diversificationScore(snap.Investments)
	trend := expenseTrendScore(snap.Expenses, now)

	total := budget + goal + diversification + trend
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return HealthScore{
		Score:           total,
		BudgetScore:     budget,
		GoalScore:       goal,
		Diversification: diversification,
		ExpenseTrend:    trend,
	}
}

// budgetAdherenceScore starts from the full 30 points and deducts 10 for
// every budget past its limit and 5 for every budget in the 90-100% band.
func budgetAdherenceScore(budgets []core.Budget) float64 {
	score := 30.0
	for _, b := range budgets {
		if b.Amount <= 0 {
			continue
		}
		utilization := b.Spent / b.Amount
		switch {
		case utilization > 1:
			score -= 10
		case utilization > 0.9:
			score -= 5
		}
	}
	return score
}

// goalProgressScore scales the average completion ratio to 25 points.
// No goals means no points rather than a division by zero.
func goalProgressScore(goals []core.Goal) float64 {
	if len(goals) == 0 {
		return 0
	}
	var score float64
	for _, g := range goals {
		if g.TargetAmount <= 0 {
			continue
		}
		progress := g.CurrentAmount / g.TargetAmount
		score += progress * 25 / float64(len(goals))
	}
	return score
}

// diversificationScore grants 6.25 points per distinct investment type,
// capped at 25 (four or more types).
func diversificationScore(investments []core.Investment) float64 {
	types := map[string]struct{}{}
	for _, inv := range investments {
		types[inv.Type] = struct{}{}
	}
	score := float64(len(types)) * 6.25
	if score > 25 {
		return 25
	}
	return score
}

// expenseTrendScore compares the last 30 days of spend against the 30 days
// before those. Flat or falling spend keeps the full 20 points; rising spend
// loses one point per percentage point of increase.
func expenseTrendScore(expenses []core.Expense, now time.Time) float64 {
	oneMonthAgo := now.AddDate(0, -1, 0)
	twoMonthsAgo := now.AddDate(0, -2, 0)

	var recent, previous float64
	for _, e := range expenses {
		d := e.Date.Time
		switch {
		case !d.Before(oneMonthAgo):
			recent += e.Amount
		case !d.Before(twoMonthsAgo):
			previous += e.Amount
		}
	}

	if recent <= previous {
		return 20
	}
	if previous == 0 {
		// Any spend after a silent month counts as an unbounded increase.
		return 0
	}
	score := 20 - (recent-previous)/previous*100
	if score < 0 {
		return 0
	}
	return score
}
