package engine

import (
	"math"

	"github.com/theirongolddev/costcast/internal/model"
)

// DetectAnomalies returns the days whose z-score magnitude exceeds
// threshold, in date order. Short or constant series yield an empty list.
// The threshold is used exactly as given.
func (e *Engine) DetectAnomalies(series model.DailyCostSeries, threshold float64) ([]model.AnomalyRecord, error) {
	rows, err := BuildFeatures(series)
	if err != nil {
		return nil, err
	}
	out := []model.AnomalyRecord{}
	if len(rows) < MinAnomalyDays {
		return out, nil
	}

	stats := Summarize(costsOf(rows))
	if stats.Std == 0 {
		return out, nil
	}
	for _, r := range rows {
		z := (r.Cost - stats.Mean) / stats.Std
		if math.Abs(z) <= threshold {
			continue
		}
		status := model.AnomalyLow
		if z > 0 {
			status = model.AnomalyHigh
		}
		out = append(out, model.AnomalyRecord{
			Date:   r.Date.Format(model.DateLayout),
			Cost:   r.Cost,
			ZScore: z,
			Status: status,
		})
	}
	return out, nil
}
