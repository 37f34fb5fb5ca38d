package insight

import (
	"math"
	"reflect"
	"testing"

	"finvoice/internal/core"
)

// expensesForMonthlyTotals builds one expense per month with the given
// amounts, starting at 2025-01.
func expensesForMonthlyTotals(category string, amounts []float64) []core.Expense {
	out := make([]core.Expense, 0, len(amounts))
	year, month := 2025, 1
	for _, amount := range amounts {
		out = append(out, core.Expense{
			Amount:   amount,
			Category: category,
			Date:     core.NewDate(year, month, 15),
		})
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return out
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		name   string
		totals []float64
		want   Trend
	}{
		{"step increase", []float64{100, 100, 100, 200, 200, 200}, TrendIncreasing},
		{"step decrease", []float64{200, 200, 200, 100, 100, 100}, TrendDecreasing},
		{"flat", []float64{100, 100, 100, 100, 100, 100}, TrendStable},
		{"within tolerance", []float64{100, 100, 100, 105, 105, 105}, TrendStable},
		{"short history counts missing months as zero", []float64{100, 100}, TrendIncreasing},
		{"empty", nil, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyTrend(tt.totals); got != tt.want {
				t.Errorf("classifyTrend(%v) = %q, want %q", tt.totals, got, tt.want)
			}
		})
	}
}

func TestAnalyzeSpendingPatternsTrend(t *testing.T) {
	expenses := expensesForMonthlyTotals("Food", []float64{100, 100, 100, 200, 200, 200})
	patterns := AnalyzeSpendingPatterns(expenses)
	if len(patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(patterns))
	}
	p := patterns[0]
	if p.Trend != TrendIncreasing {
		t.Errorf("trend = %q, want increasing", p.Trend)
	}
	if p.AverageMonthly != 150 {
		t.Errorf("averageMonthly = %v, want 150", p.AverageMonthly)
	}
	if p.Seasonality {
		t.Error("seasonality must need at least 12 monthly buckets")
	}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		name     string
		variance float64
		avg      float64
		want     RiskLevel
	}{
		{"high", 60, 100, RiskHigh},
		{"medium", 30, 100, RiskMedium},
		{"low", 10, 100, RiskLow},
		{"boundary at half mean stays medium", 50, 100, RiskMedium},
		{"zero everything", 0, 0, RiskLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyRisk(tt.variance, tt.avg); got != tt.want {
				t.Errorf("classifyRisk(%v, %v) = %q, want %q", tt.variance, tt.avg, got, tt.want)
			}
		})
	}
}

func TestDetectSeasonality(t *testing.T) {
	// Eleven volatile months are not enough.
	volatile := []float64{10, 500, 10, 500, 10, 500, 10, 500, 10, 500, 10}
	if detectSeasonality(volatile) {
		t.Error("eleven buckets must not flag seasonality")
	}
	// Twelve volatile months are.
	volatile = append(volatile, 500)
	if !detectSeasonality(volatile) {
		t.Error("twelve volatile buckets must flag seasonality")
	}
	// Twelve flat months are not.
	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 100
	}
	if detectSeasonality(flat) {
		t.Error("flat series must not flag seasonality")
	}
}

func TestPeakDays(t *testing.T) {
	// 2026-08-03 is a Monday, 2026-08-08 a Saturday, 2026-08-05 a
	// Wednesday.
	expenses := []core.Expense{
		{Amount: 300, Category: "Food", Date: core.NewDate(2026, 8, 3)},
		{Amount: 200, Category: "Food", Date: core.NewDate(2026, 8, 8)},
		{Amount: 50, Category: "Food", Date: core.NewDate(2026, 8, 5)},
	}
	got := peakDays(expenses)
	want := []string{"Monday", "Saturday"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("peakDays = %v, want %v", got, want)
	}
}

func TestPopulationVariance(t *testing.T) {
	got := populationVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-4) > 1e-9 {
		t.Errorf("variance = %v, want 4", got)
	}
	if populationVariance(nil) != 0 {
		t.Error("empty series must have zero variance")
	}
}

func TestAnalyzeSpendingPatternsEmptySnapshot(t *testing.T) {
	if got := AnalyzeSpendingPatterns(nil); len(got) != 0 {
		t.Fatalf("patterns = %v, want none", got)
	}
}

func TestCoefficientOfVariation(t *testing.T) {
	if got := coefficientOfVariation(nil); got != 0 {
		t.Errorf("empty series cv = %v, want 0", got)
	}
	series := []float64{45000, 48000, 42000, 50000, 46000, 44000}
	got := coefficientOfVariation(series)
	if math.IsNaN(got) || got <= 0 || got > 0.3 {
		t.Errorf("cv = %v, want a small positive value", got)
	}
}
