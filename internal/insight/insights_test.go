package insight

import (
	"strings"
	"testing"
	"time"

	"finvoice/internal/core"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestEngine(cfg Config, now time.Time) *Engine {
	e := NewEngine(cfg, nil)
	e.SetClock(fixedClock(now))
	return e
}

// midAugust is outside the festival window and not near month boundaries.
var midAugust = time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

func TestBudgetWarningThresholds(t *testing.T) {
	tests := []struct {
		name         string
		spent        float64
		wantCount    int
		wantPriority Priority
	}{
		{"below threshold", 800, 0, ""},
		{"at ninety five percent", 950, 1, PriorityMedium},
		{"over limit", 1050, 1, PriorityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(Config{}, midAugust)
			snap := core.Snapshot{
				Budgets: []core.Budget{{Category: "Food", Amount: 1000, Spent: tt.spent}},
			}
			insights := e.generateInsights(snap, nil)

			var warnings []Insight
			for _, in := range insights {
				if in.Type == TypeWarning {
					warnings = append(warnings, in)
				}
			}
			if len(warnings) != tt.wantCount {
				t.Fatalf("warnings = %d, want %d", len(warnings), tt.wantCount)
			}
			if tt.wantCount == 1 {
				w := warnings[0]
				if w.Priority != tt.wantPriority {
					t.Errorf("priority = %q, want %q", w.Priority, tt.wantPriority)
				}
				if w.Impact != 8 || w.Category != "Food" {
					t.Errorf("insight = %+v", w)
				}
			}
		})
	}
}

func TestDecreasingTrendAchievement(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	patterns := []SpendingPattern{
		{Category: "Transport", Trend: TrendDecreasing, RiskLevel: RiskLow},
	}
	insights := e.generateInsights(core.Snapshot{}, patterns)

	var found *Insight
	for i := range insights {
		if insights[i].Type == TypeAchievement {
			found = &insights[i]
		}
	}
	if found == nil {
		t.Fatal("no achievement insight for decreasing trend")
	}
	if found.Priority != PriorityLow || found.Impact != 5 || found.Actionable {
		t.Errorf("insight = %+v", found)
	}
}

func TestRisingVolatileSpendingWarning(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	patterns := []SpendingPattern{
		{Category: "Shopping", Trend: TrendIncreasing, RiskLevel: RiskHigh, AverageMonthly: 420},
		{Category: "Food", Trend: TrendIncreasing, RiskLevel: RiskLow},
	}
	insights := e.generateInsights(core.Snapshot{}, patterns)

	var count int
	for _, in := range insights {
		if in.Type == TypeWarning && in.Category == "Shopping" {
			count++
			if in.Priority != PriorityMedium || in.Impact != 7 {
				t.Errorf("insight = %+v", in)
			}
		}
		if in.Category == "Food" {
			t.Error("increasing low-risk category must not warn")
		}
	}
	if count != 1 {
		t.Fatalf("shopping warnings = %d, want 1", count)
	}
}

func TestGoalBehindScheduleRecommendation(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	snap := core.Snapshot{
		Goals: []core.Goal{
			// 40% funded, deadline ~90 days out.
			{Title: "Laptop", TargetAmount: 1000, CurrentAmount: 400, Deadline: core.NewDate(2026, 11, 13)},
			// Well funded, no insight.
			{Title: "Vacation", TargetAmount: 1000, CurrentAmount: 900, Deadline: core.NewDate(2026, 11, 13)},
			// Behind but far away, no insight.
			{Title: "House", TargetAmount: 100000, CurrentAmount: 0, Deadline: core.NewDate(2030, 1, 1)},
		},
	}
	insights := e.generateInsights(snap, nil)

	var recs []Insight
	for _, in := range insights {
		if in.Type == TypeRecommendation {
			recs = append(recs, in)
		}
	}
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d, want 1", len(recs))
	}
	rec := recs[0]
	if !strings.Contains(rec.Title, "Laptop") {
		t.Errorf("title = %q", rec.Title)
	}
	if rec.Priority != PriorityHigh || rec.Impact != 9 {
		t.Errorf("insight = %+v", rec)
	}
}

func TestInvestmentOpportunity(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	snap := core.Snapshot{
		Income: []core.IncomeSource{{Amount: 100000, Frequency: "monthly", Active: true}},
		Expenses: []core.Expense{
			{Amount: 20000, Category: "Rent", Date: core.NewDate(2026, 8, 1)},
		},
	}
	insights := e.generateInsights(snap, nil)

	var found bool
	for _, in := range insights {
		if in.Type == TypeOpportunity {
			found = true
			if in.Priority != PriorityMedium || in.Impact != 6 {
				t.Errorf("insight = %+v", in)
			}
		}
	}
	if !found {
		t.Fatal("expected investment opportunity for large cash balance")
	}
}

func TestFestivalSeasonWindow(t *testing.T) {
	hasFestival := func(now time.Time) bool {
		e := newTestEngine(Config{}, now)
		for _, in := range e.generateInsights(core.Snapshot{}, nil) {
			if in.Category == "planning" {
				return true
			}
		}
		return false
	}

	if hasFestival(midAugust) {
		t.Error("august must not trigger the festival recommendation")
	}
	november := time.Date(2026, time.November, 5, 0, 0, 0, 0, time.UTC)
	if !hasFestival(november) {
		t.Error("november must trigger the festival recommendation")
	}
	december := time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC)
	if !hasFestival(december) {
		t.Error("december must trigger the festival recommendation")
	}
}

func TestEmergencyFundWarning(t *testing.T) {
	snap := core.Snapshot{
		Expenses: []core.Expense{
			{Amount: 50000, Category: "Rent", Date: core.NewDate(2026, 8, 2)},
		},
	}

	e := newTestEngine(Config{EmergencyFund: 100000}, midAugust)
	var found bool
	for _, in := range e.generateInsights(snap, nil) {
		if in.Category == "emergency" {
			found = true
			if in.Priority != PriorityHigh || in.Impact != 10 {
				t.Errorf("insight = %+v", in)
			}
		}
	}
	if !found {
		t.Fatal("two months of coverage must warn")
	}

	e = newTestEngine(Config{EmergencyFund: 200000}, midAugust)
	for _, in := range e.generateInsights(snap, nil) {
		if in.Category == "emergency" {
			t.Fatal("four months of coverage must not warn")
		}
	}
}

func TestDebtToIncomeWarning(t *testing.T) {
	snap := core.Snapshot{
		Income: []core.IncomeSource{{Amount: 50000, Frequency: "monthly", Active: true}},
	}

	e := newTestEngine(Config{MonthlyDebtPayments: 25000}, midAugust)
	var found bool
	for _, in := range e.generateInsights(snap, nil) {
		if in.Category == "debt" {
			found = true
			if in.Priority != PriorityHigh || in.Impact != 9 {
				t.Errorf("insight = %+v", in)
			}
		}
	}
	if !found {
		t.Fatal("50% debt ratio must warn")
	}

	e = newTestEngine(Config{MonthlyDebtPayments: 10000}, midAugust)
	for _, in := range e.generateInsights(snap, nil) {
		if in.Category == "debt" {
			t.Fatal("20% debt ratio must not warn")
		}
	}
}

func TestIrregularIncomeWarning(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	snap := core.Snapshot{
		Income: []core.IncomeSource{
			{Amount: 10000, Frequency: "monthly", Active: true},
			{Amount: 60000, Frequency: "monthly", Active: true},
		},
	}
	var found bool
	for _, in := range e.generateInsights(snap, nil) {
		if in.Category == "income" {
			found = true
		}
	}
	if !found {
		t.Fatal("highly uneven income sources must warn")
	}

	// A single steady source has no variability.
	snap.Income = snap.Income[:1]
	for _, in := range e.generateInsights(snap, nil) {
		if in.Category == "income" {
			t.Fatal("single income source must not warn")
		}
	}
}

func TestInsightsSortedByPriority(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	snap := core.Snapshot{
		Budgets: []core.Budget{
			{Category: "Food", Amount: 1000, Spent: 950}, // medium
		},
	}
	patterns := []SpendingPattern{
		{Category: "Transport", Trend: TrendDecreasing}, // low
		{Category: "Goal", Trend: TrendStable},
	}
	snap.Goals = []core.Goal{
		{Title: "Laptop", TargetAmount: 1000, CurrentAmount: 100, Deadline: core.NewDate(2026, 10, 1)}, // high
	}

	insights := e.generateInsights(snap, patterns)
	if len(insights) != 3 {
		t.Fatalf("insights = %d, want 3", len(insights))
	}
	ranks := make([]int, len(insights))
	for i, in := range insights {
		ranks[i] = in.Priority.rank()
	}
	for i := 1; i < len(ranks); i++ {
		if ranks[i] > ranks[i-1] {
			t.Fatalf("insights not sorted by priority: %v", ranks)
		}
	}
	if insights[0].Priority != PriorityHigh || insights[2].Priority != PriorityLow {
		t.Fatalf("order = %v", ranks)
	}
}

func TestEmptySnapshotYieldsNoInsights(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	if got := e.generateInsights(core.Snapshot{}, nil); len(got) != 0 {
		t.Fatalf("insights = %+v, want none", got)
	}
}
