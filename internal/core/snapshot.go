package core

// Snapshot is a read-only, point-in-time view of all entity collections.
// The insight engine consumes it and never mutates it in place.
type Snapshot struct {
	Expenses    []Expense
	Budgets     []Budget
	Goals       []Goal
	Investments []Investment
	Income      []IncomeSource
}

// Summary holds the aggregated balance figures shown on the dashboard.
type Summary struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Balance  float64 `json:"balance"`
	Saved    float64 `json:"saved"`
}

// MonthlyIncome normalizes every active income source to a monthly amount
// and sums them. Weekly sources count 4.33 weeks per month.
func MonthlyIncome(sources []IncomeSource) float64 {
	var total float64
	for _, inc := range sources {
		if !inc.Active {
			continue
		}
		switch inc.Frequency {
		case "monthly":
			total += inc.Amount
		case "weekly":
			total += inc.Amount * 4.33
		case "yearly":
			total += inc.Amount / 12
		}
	}
	return total
}

// Summarize computes the balance summary over a snapshot: monthly income
// minus total expenses, with goal savings counted back in.
func Summarize(s Snapshot) Summary {
	income := MonthlyIncome(s.Income)

	var spent float64
	for _, e := range s.Expenses {
		spent += e.Amount
	}

	var saved float64
	for _, g := range s.Goals {
		saved += g.CurrentAmount
	}

	return Summary{
		Income:   income,
		Expenses: spent,
		Balance:  income - spent + saved,
		Saved:    saved,
	}
}
