package insight

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"finvoice/internal/core"
)

func TestEvaluateFullReport(t *testing.T) {
	e := newTestEngine(Config{EmergencyFund: 500000}, midAugust)
	snap := core.Snapshot{
		Expenses: expensesForMonthlyTotals("Food", []float64{100, 100, 100, 200, 200, 200}),
		Budgets:  []core.Budget{{Category: "Food", Amount: 1000, Spent: 950}},
		Goals:    []core.Goal{{Title: "Vacation", TargetAmount: 1000, CurrentAmount: 500, Deadline: core.NewDate(2027, 6, 1)}},
	}

	report := e.Evaluate(snap)

	if len(report.Patterns) != 1 || report.Patterns[0].Trend != TrendIncreasing {
		t.Fatalf("patterns = %+v", report.Patterns)
	}
	if len(report.Insights) == 0 {
		t.Fatal("expected at least the budget warning")
	}
	if math.IsNaN(report.Health.Score) || report.Health.Score < 0 || report.Health.Score > 100 {
		t.Fatalf("health score = %v", report.Health.Score)
	}
	if !report.GeneratedAt.Equal(midAugust) {
		t.Errorf("generatedAt = %v", report.GeneratedAt)
	}
}

func TestEvaluateEmptySnapshot(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	report := e.Evaluate(core.Snapshot{})

	if len(report.Patterns) != 0 || len(report.Insights) != 0 {
		t.Fatalf("report = %+v, want empty patterns and insights", report)
	}
	if math.IsNaN(report.Health.Score) {
		t.Fatal("score must not be NaN for an empty snapshot")
	}
}

func TestInteractionLogRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "interactions.log")
	e := newTestEngine(Config{InteractionLogPath: path}, midAugust)

	e.RecordInteraction("dismissed", "Food", OutcomeNegative)
	e.RecordInteraction("applied", "investments", OutcomePositive)

	got, err := e.Interactions()
	if err != nil {
		t.Fatalf("Interactions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("interactions = %d, want 2", len(got))
	}
	if got[0].Action != "dismissed" || got[0].Outcome != OutcomeNegative {
		t.Errorf("first = %+v", got[0])
	}
	if got[1].Category != "investments" {
		t.Errorf("second = %+v", got[1])
	}
}

func TestInteractionLogDisabled(t *testing.T) {
	e := newTestEngine(Config{}, midAugust)
	e.RecordInteraction("dismissed", "Food", OutcomeNegative)

	got, err := e.Interactions()
	if err != nil || got != nil {
		t.Fatalf("got %v, %v; want nil, nil", got, err)
	}
}

func TestInteractionLogMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never-written.log")
	e := newTestEngine(Config{InteractionLogPath: path}, midAugust)

	got, err := e.Interactions()
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty, nil", got, err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("reading must not create the log file")
	}
}
