// Package insight derives spending patterns, a composite health score and a
// ranked insight list from a ledger snapshot. Everything in this package is a
// pure computation over the snapshot; the only side effect is the optional
// interaction log.
package insight

import (
	"math"
	"sort"
	"time"

	"finvoice/internal/core"
)

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// SpendingPattern summarizes one expense category's monthly behavior.
type SpendingPattern struct {
	Category       string    `json:"category"`
	AverageMonthly float64   `json:"averageMonthly"`
	Trend          Trend     `json:"trend"`
	Seasonality    bool      `json:"seasonality"`
	PeakDays       []string  `json:"peakDays"`
	RiskLevel      RiskLevel `json:"riskLevel"`
}

// monthlyTotals buckets expenses by calendar month and returns the totals in
// chronological order.
func monthlyTotals(expenses []core.Expense) []float64 {
	byMonth := map[string]float64{}
	for _, e := range expenses {
		byMonth[e.Date.MonthKey()] += e.Amount
	}
	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	totals := make([]float64, 0, len(keys))
	for _, k := range keys {
		totals = append(totals, byMonth[k])
	}
	return totals
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationVariance returns the population (not sample) variance.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// classifyTrend compares the mean of the three most recent monthly buckets
// against the mean of the three before those. With fewer than six buckets the
// missing ones count as zero, so a short history biases toward "increasing".
func classifyTrend(totals []float64) Trend {
	var recent, older float64
	n := len(totals)
	for i, v := range totals {
		switch {
		case i >= n-3:
			recent += v
		case i >= n-6:
			older += v
		}
	}
	recentAvg := recent / 3
	olderAvg := older / 3
	switch {
	case recentAvg > olderAvg*1.1:
		return TrendIncreasing
	case recentAvg < olderAvg*0.9:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func classifyRisk(variance, averageMonthly float64) RiskLevel {
	switch {
	case variance > averageMonthly*0.5:
		return RiskHigh
	case variance > averageMonthly*0.2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// detectSeasonality needs at least a year of monthly buckets; below that any
// variance is indistinguishable from noise.
func detectSeasonality(totals []float64) bool {
	if len(totals) < 12 {
		return false
	}
	return populationVariance(totals) > mean(totals)*0.3
}

// peakDays returns the two weekday names with the highest spend totals.
// Ties resolve in calendar order, Sunday first.
func peakDays(expenses []core.Expense) []string {
	totals := map[time.Weekday]float64{}
	for _, e := range expenses {
		totals[e.Date.Weekday()] += e.Amount
	}
	days := make([]time.Weekday, 0, len(totals))
	for d := range totals {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool {
		if totals[days[i]] != totals[days[j]] {
			return totals[days[i]] > totals[days[j]]
		}
		return days[i] < days[j]
	})
	if len(days) > 2 {
		days = days[:2]
	}
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = d.String()
	}
	return names
}

// AnalyzeSpendingPatterns computes one pattern per category present in the
// snapshot's expenses, in alphabetical category order.
func AnalyzeSpendingPatterns(expenses []core.Expense) []SpendingPattern {
	byCategory := map[string][]core.Expense{}
	for _, e := range expenses {
		byCategory[e.Category] = append(byCategory[e.Category], e)
	}
	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	patterns := make([]SpendingPattern, 0, len(categories))
	for _, category := range categories {
		catExpenses := byCategory[category]
		totals := monthlyTotals(catExpenses)
		avg := mean(totals)
		variance := populationVariance(totals)
		patterns = append(patterns, SpendingPattern{
			Category:       category,
			AverageMonthly: avg,
			Trend:          classifyTrend(totals),
			Seasonality:    detectSeasonality(totals),
			PeakDays:       peakDays(catExpenses),
			RiskLevel:      classifyRisk(variance, avg),
		})
	}
	return patterns
}

// coefficientOfVariation returns stddev/mean, or 0 when the mean is 0.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return math.Sqrt(populationVariance(values)) / m
}
