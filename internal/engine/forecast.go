package engine

import (
	"context"
	"math"

	"github.com/theirongolddev/costcast/internal/model"
)

const (
	trendUpper = 1.1
	trendLower = 0.9
)

// Forecast trains the ensemble on the full series and predicts daysAhead
// consecutive days after the last observed date.
//
// Method selects the blend: ensemble averages every member, linear and
// random_forest use one member, moving_average repeats the last-7-day mean,
// and any other value repeats the whole-series mean. Model outputs are
// clamped to zero before blending.
func (e *Engine) Forecast(ctx context.Context, series model.DailyCostSeries, daysAhead int, method model.Method) (model.Forecast, error) {
	rows, err := BuildFeatures(series)
	if err != nil {
		return model.Forecast{}, err
	}
	if len(rows) < MinTrainingDays {
		return model.Forecast{Predictions: []model.ForecastRecord{}},
			newError(KindInsufficientData, "need at least %d days of history, have %d", MinTrainingDays, len(rows))
	}

	x, y := matrixOf(rows)
	members := e.members()
	for _, m := range members {
		if err := m.Fit(ctx, x, y); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return model.Forecast{Predictions: []model.ForecastRecord{}}, ctxErr
			}
			return model.Forecast{Predictions: []model.ForecastRecord{}},
				&Error{Kind: KindTrainingFailed, Message: m.Name() + ": " + err.Error(), Err: err}
		}
	}

	recentAvg := mean(tail(y, shortWindow))
	overallAvg := mean(y)

	future := FutureFeatures(rows, daysAhead)
	preds := make([]model.ForecastRecord, len(future))
	var predTotal float64
	for i, row := range future {
		var p float64
		vec := row.Vector()
		switch method {
		case model.MethodEnsemble:
			for _, m := range members {
				p += clamp(m.Predict(vec))
			}
			p /= float64(len(members))
		case model.MethodMovingAverage:
			p = recentAvg
		default:
			if m := memberNamed(members, string(method)); m != nil {
				p = clamp(m.Predict(vec))
			} else {
				p = overallAvg
			}
		}
		preds[i] = model.ForecastRecord{Date: row.Date.Format(model.DateLayout), PredictedCost: p}
		predTotal += p
	}

	stats := model.ForecastStats{
		RecentAvgCost:  recentAvg,
		Trend:          model.TrendStable,
		HistoricalDays: len(rows),
		PredictionDays: len(preds),
		Method:         method,
	}
	if len(preds) > 0 {
		stats.PredictedAvgCost = predTotal / float64(len(preds))
		stats.Trend = ClassifyTrend(recentAvg, stats.PredictedAvgCost)
	}
	return model.Forecast{Predictions: preds, Stats: stats}, nil
}

// ClassifyTrend labels predicted against recent: more than 10% above is
// increasing, more than 10% below is decreasing.
func ClassifyTrend(recentAvg, predictedAvg float64) model.Trend {
	switch {
	case predictedAvg > recentAvg*trendUpper:
		return model.TrendIncreasing
	case predictedAvg < recentAvg*trendLower:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

func memberNamed(members []Regressor, name string) Regressor {
	for _, m := range members {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
