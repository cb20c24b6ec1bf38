package engine

import "github.com/theirongolddev/costcast/internal/model"

// Analyze labels every day high, normal or low against the series' own
// mean and standard deviation.
func (e *Engine) Analyze(series model.DailyCostSeries) (model.Analysis, error) {
	rows, err := BuildFeatures(series)
	if err != nil {
		return model.Analysis{}, err
	}
	if len(rows) == 0 {
		return model.Analysis{}, newError(KindNoData, "series is empty")
	}

	stats := Summarize(costsOf(rows))
	records := make([]model.LevelRecord, len(rows))
	for i, r := range rows {
		level := classify(r.Cost, stats)
		rec := model.LevelRecord{
			Date:        r.Date.Format(model.DateLayout),
			Cost:        r.Cost,
			Level:       level,
			Description: level.Description(),
		}
		if stats.Mean == 0 {
			rec.DeviationUndefined = true
		} else {
			rec.DeviationPct = (r.Cost - stats.Mean) / stats.Mean * 100
		}
		records[i] = rec
	}
	return model.Analysis{Records: records, Stats: stats}, nil
}

func classify(cost float64, s model.CostStats) model.Level {
	switch {
	case cost > s.Mean+s.Std:
		return model.LevelHigh
	case cost < s.Mean-s.Std:
		return model.LevelLow
	default:
		return model.LevelNormal
	}
}
