package insight

import (
	"fmt"
	"math"
	"sort"
	"time"

	"finvoice/internal/core"
)

type InsightType string

const (
	TypeWarning        InsightType = "warning"
	TypeOpportunity    InsightType = "opportunity"
	TypeAchievement    InsightType = "achievement"
	TypeRecommendation InsightType = "recommendation"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// Insight is one generated observation. Impact ranges 1 to 10.
type Insight struct {
	Type            InsightType `json:"type"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Priority        Priority    `json:"priority"`
	Actionable      bool        `json:"actionable"`
	SuggestedAction string      `json:"suggestedAction,omitempty"`
	Impact          int         `json:"impact"`
	Category        string      `json:"category"`
}

// Thresholds and defaults for the rules below. The emergency fund and debt
// figures have no collection of their own yet, so they are configured
// per engine instance.
const (
	investableCashThreshold = 50000
	emergencyFundTarget     = 3 // months of expenses
	debtRatioThreshold      = 40
	incomeVariationLimit    = 0.3
)

// generateInsights runs every rule over the snapshot. Each rule emits zero
// or more insights independently; the result is sorted by priority
// descending, ties keeping generation order.
func (e *Engine) generateInsights(snap core.Snapshot, patterns []SpendingPattern) []Insight {
	var insights []Insight
	now := e.now()

	// Budgets close to or over their limit.
	for _, budget := range snap.Budgets {
		if budget.Amount <= 0 {
			continue
		}
		spentPct := budget.Spent / budget.Amount * 100
		if spentPct < 90 {
			continue
		}
		priority := PriorityMedium
		if spentPct >= 100 {
			priority = PriorityHigh
		}
		insights = append(insights, Insight{
			Type:            TypeWarning,
			Title:           fmt.Sprintf("%s Budget Alert", budget.Category),
			Description:     fmt.Sprintf("You've spent %.1f%% of your %s budget. Consider reducing spending in this category.", spentPct, budget.Category),
			Priority:        priority,
			Actionable:      true,
			SuggestedAction: fmt.Sprintf("Review recent %s expenses and identify areas to cut back", budget.Category),
			Impact:          8,
			Category:        budget.Category,
		})
	}

	// Volatile categories trending up, and categories trending down.
	for _, pattern := range patterns {
		if pattern.Trend == TrendIncreasing && pattern.RiskLevel == RiskHigh {
			insights = append(insights, Insight{
				Type:            TypeWarning,
				Title:           fmt.Sprintf("Rising %s Spending", pattern.Category),
				Description:     fmt.Sprintf("Your %s spending has increased significantly. Average monthly: %.0f", pattern.Category, pattern.AverageMonthly),
				Priority:        PriorityMedium,
				Actionable:      true,
				SuggestedAction: fmt.Sprintf("Set a stricter budget for %s and track daily expenses", pattern.Category),
				Impact:          7,
				Category:        pattern.Category,
			})
		}
		if pattern.Trend == TrendDecreasing {
			insights = append(insights, Insight{
				Type:        TypeAchievement,
				Title:       fmt.Sprintf("Great Progress on %s", pattern.Category),
				Description: fmt.Sprintf("You've successfully reduced your %s spending. Keep up the good work!", pattern.Category),
				Priority:    PriorityLow,
				Actionable:  false,
				Impact:      5,
				Category:    pattern.Category,
			})
		}
	}

	// Goals behind schedule.
	for _, goal := range snap.Goals {
		if goal.TargetAmount <= 0 {
			continue
		}
		progress := goal.CurrentAmount / goal.TargetAmount * 100
		daysLeft := math.Ceil(goal.Deadline.Sub(now).Hours() / 24)
		if progress >= 50 || daysLeft >= 180 || daysLeft <= 0 {
			continue
		}
		monthlyRequired := (goal.TargetAmount - goal.CurrentAmount) / (daysLeft / 30)
		insights = append(insights, Insight{
			Type:            TypeRecommendation,
			Title:           fmt.Sprintf("%s Needs Attention", goal.Title),
			Description:     fmt.Sprintf("You need to save %.0f monthly to reach your goal on time.", monthlyRequired),
			Priority:        PriorityHigh,
			Actionable:      true,
			SuggestedAction: "Increase monthly savings or adjust goal timeline",
			Impact:          9,
			Category:        "goals",
		})
	}

	// Idle cash above the investable threshold.
	if cash := availableCash(snap); cash > investableCashThreshold {
		insights = append(insights, Insight{
			Type:            TypeOpportunity,
			Title:           "Investment Opportunity",
			Description:     fmt.Sprintf("You have %.0f in cash. Consider investing for better returns.", cash),
			Priority:        PriorityMedium,
			Actionable:      true,
			SuggestedAction: "Explore recurring investment plans or fixed deposits",
			Impact:          6,
			Category:        "investments",
		})
	}

	// Festival season window, November and December.
	if month := now.Month(); month == time.November || month == time.December {
		insights = append(insights, Insight{
			Type:            TypeRecommendation,
			Title:           "Festival Season Budget Planning",
			Description:     "Festival season is approaching. Plan your budget for gifts, travel, and celebrations.",
			Priority:        PriorityMedium,
			Actionable:      true,
			SuggestedAction: "Create a separate festival budget and start saving now",
			Impact:          7,
			Category:        "planning",
		})
	}

	insights = append(insights, e.identifyRisks(snap, now)...)

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].Priority.rank() > insights[j].Priority.rank()
	})
	return insights
}

// identifyRisks covers the structural warnings: thin emergency fund, heavy
// debt load, irregular income.
func (e *Engine) identifyRisks(snap core.Snapshot, now time.Time) []Insight {
	var risks []Insight

	if monthly := trailingMonthExpenses(snap.Expenses, now); monthly > 0 {
		coverage := e.cfg.EmergencyFund / monthly
		if coverage < emergencyFundTarget {
			risks = append(risks, Insight{
				Type:            TypeWarning,
				Title:           "Insufficient Emergency Fund",
				Description:     fmt.Sprintf("Your emergency fund covers only %.1f months of expenses. Aim for 6 months.", coverage),
				Priority:        PriorityHigh,
				Actionable:      true,
				SuggestedAction: "Increase emergency fund savings by 5,000 monthly",
				Impact:          10,
				Category:        "emergency",
			})
		}
	}

	if monthlyIncome := core.MonthlyIncome(snap.Income); monthlyIncome > 0 {
		debtRatio := e.cfg.MonthlyDebtPayments / monthlyIncome * 100
		if debtRatio > debtRatioThreshold {
			risks = append(risks, Insight{
				Type:            TypeWarning,
				Title:           "High Debt-to-Income Ratio",
				Description:     fmt.Sprintf("Your debt payments are %.1f%% of income. This is above the recommended %d%%.", debtRatio, debtRatioThreshold),
				Priority:        PriorityHigh,
				Actionable:      true,
				SuggestedAction: "Consider debt consolidation or increase income sources",
				Impact:          9,
				Category:        "debt",
			})
		}
	}

	if incomeVariability(snap.Income) > incomeVariationLimit {
		risks = append(risks, Insight{
			Type:            TypeWarning,
			Title:           "Irregular Income Pattern",
			Description:     "Your income shows high variability. Consider building a larger emergency fund.",
			Priority:        PriorityMedium,
			Actionable:      true,
			SuggestedAction: "Diversify income sources and maintain 8-month emergency fund",
			Impact:          7,
			Category:        "income",
		})
	}

	return risks
}

func availableCash(snap core.Snapshot) float64 {
	var income, expenses float64
	for _, src := range snap.Income {
		income += src.Amount
	}
	for _, e := range snap.Expenses {
		expenses += e.Amount
	}
	if income-expenses < 0 {
		return 0
	}
	return income - expenses
}

// trailingMonthExpenses sums the expenses of the calendar month containing
// now.
func trailingMonthExpenses(expenses []core.Expense, now time.Time) float64 {
	key := now.Format("2006-01")
	var total float64
	for _, e := range expenses {
		if e.Date.MonthKey() == key {
			total += e.Amount
		}
	}
	return total
}

// incomeVariability is the coefficient of variation of the active income
// sources' monthly-normalized amounts. A single source has no variability.
func incomeVariability(income []core.IncomeSource) float64 {
	var amounts []float64
	for _, src := range income {
		if !src.Active {
			continue
		}
		switch src.Frequency {
		case "monthly":
			amounts = append(amounts, src.Amount)
		case "weekly":
			amounts = append(amounts, src.Amount*4.33)
		case "yearly":
			amounts = append(amounts, src.Amount/12)
		}
	}
	if len(amounts) < 2 {
		return 0
	}
	return coefficientOfVariation(amounts)
}
