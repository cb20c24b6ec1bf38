package engine

import (
	"math"

	"github.com/theirongolddev/costcast/internal/model"
)

// CompareBaseline compares every day against a flat daily baseline.
// Percentages against a non-positive baseline are reported as 0.
func (e *Engine) CompareBaseline(series model.DailyCostSeries, baseline float64) (model.BudgetComparison, error) {
	if math.IsNaN(baseline) || math.IsInf(baseline, 0) {
		return model.BudgetComparison{}, newError(KindInvalidSeries, "baseline %v is not a finite number", baseline)
	}
	rows, err := BuildFeatures(series)
	if err != nil {
		return model.BudgetComparison{}, err
	}
	if len(rows) == 0 {
		return model.BudgetComparison{}, newError(KindNoData, "series is empty")
	}

	var sum model.BudgetSummary
	records := make([]model.BudgetRecord, len(rows))
	for i, r := range rows {
		diff := r.Cost - baseline
		rec := model.BudgetRecord{
			Date:       r.Date.Format(model.DateLayout),
			Cost:       r.Cost,
			Baseline:   baseline,
			Difference: diff,
			Status:     model.WithinBudget,
		}
		if baseline > 0 {
			rec.DifferencePct = diff / baseline * 100
		}
		if r.Cost > baseline {
			rec.Status = model.OverBudget
			sum.OverBudgetDays++
		}
		sum.TotalCost += r.Cost
		records[i] = rec
	}

	sum.TotalDays = len(rows)
	sum.TotalBaseline = baseline * float64(len(rows))
	sum.TotalDifference = sum.TotalCost - sum.TotalBaseline
	sum.OverBudgetRate = float64(sum.OverBudgetDays) / float64(len(rows)) * 100
	return model.BudgetComparison{Records: records, Summary: sum}, nil
}
