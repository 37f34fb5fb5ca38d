package core

import "testing"

func TestMonthlyIncome(t *testing.T) {
	sources := []IncomeSource{
		{Source: "salary", Amount: 3000, Frequency: "monthly", Active: true},
		{Source: "freelance", Amount: 100, Frequency: "weekly", Active: true},
		{Source: "dividends", Amount: 1200, Frequency: "yearly", Active: true},
		{Source: "old job", Amount: 9999, Frequency: "monthly", Active: false},
	}

	got := MonthlyIncome(sources)
	want := 3000 + 100*4.33 + 100.0
	if got != want {
		t.Fatalf("MonthlyIncome() = %v, want %v", got, want)
	}
}

func TestSummarize(t *testing.T) {
	snap := Snapshot{
		Expenses: []Expense{
			{Amount: 200, Category: "Travel"},
			{Amount: 300, Category: "Food"},
		},
		Goals: []Goal{
			{Title: "Fund", TargetAmount: 1000, CurrentAmount: 150},
		},
		Income: []IncomeSource{
			{Source: "salary", Amount: 2000, Frequency: "monthly", Active: true},
		},
	}

	sum := Summarize(snap)
	if sum.Income != 2000 {
		t.Errorf("Income = %v, want 2000", sum.Income)
	}
	if sum.Expenses != 500 {
		t.Errorf("Expenses = %v, want 500", sum.Expenses)
	}
	if sum.Saved != 150 {
		t.Errorf("Saved = %v, want 150", sum.Saved)
	}
	if sum.Balance != 2000-500+150 {
		t.Errorf("Balance = %v, want %v", sum.Balance, 2000-500+150.0)
	}
}

func TestSummarizeEmptySnapshot(t *testing.T) {
	sum := Summarize(Snapshot{})
	if sum != (Summary{}) {
		t.Fatalf("empty snapshot should produce zero summary, got %+v", sum)
	}
}
