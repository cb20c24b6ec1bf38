package model

// BudgetStatus reports whether a day exceeded its baseline.
type BudgetStatus string

const (
	OverBudget   BudgetStatus = "over_budget"
	WithinBudget BudgetStatus = "within_budget"
)

// BudgetRecord compares one day against the flat daily baseline.
type BudgetRecord struct {
	Date          string       `json:"date"`
	Cost          float64      `json:"cost"`
	Baseline      float64      `json:"baseline"`
	Difference    float64      `json:"difference"`
	DifferencePct float64      `json:"difference_pct"`
	Status        BudgetStatus `json:"status"`
}

// BudgetSummary aggregates a baseline comparison over the whole series.
type BudgetSummary struct {
	TotalCost       float64 `json:"total_cost"`
	TotalBaseline   float64 `json:"total_baseline"`
	TotalDifference float64 `json:"total_difference"`
	OverBudgetDays  int     `json:"over_budget_days"`
	TotalDays       int     `json:"total_days"`
	OverBudgetRate  float64 `json:"over_budget_rate"`
}

// BudgetComparison is the output of the baseline comparator.
type BudgetComparison struct {
	Records []BudgetRecord `json:"comparison"`
	Summary BudgetSummary  `json:"summary"`
}
