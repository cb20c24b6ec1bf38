package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/model"
)

func TestForecast_InsufficientData(t *testing.T) {
	e := New(DefaultOptions())
	got, err := e.Forecast(context.Background(), series(t, "2024-01-01", 1, 2, 3, 4, 5, 6), 30, model.MethodEnsemble)
	require.ErrorIs(t, err, ErrInsufficientData)
	assert.Empty(t, got.Predictions)
}

func TestForecast_ContiguousDatesAcrossGaps(t *testing.T) {
	s := model.DailyCostSeries{
		"2024-01-01": 10, "2024-01-03": 11, "2024-01-04": 12, "2024-01-08": 10,
		"2024-01-09": 13, "2024-01-15": 12, "2024-01-20": 11,
	}
	got, err := New(Options{Seed: 1, Trees: 10}).Forecast(context.Background(), s, 5, model.MethodEnsemble)
	require.NoError(t, err)
	require.Len(t, got.Predictions, 5)
	want := []string{"2024-01-21", "2024-01-22", "2024-01-23", "2024-01-24", "2024-01-25"}
	for i, p := range got.Predictions {
		assert.Equal(t, want[i], p.Date)
	}
	assert.Equal(t, 7, got.Stats.HistoricalDays)
	assert.Equal(t, 5, got.Stats.PredictionDays)
}

func TestForecast_NeverNegative(t *testing.T) {
	// A steep decline drives the linear member below zero.
	costs := make([]float64, 21)
	for i := range costs {
		costs[i] = float64(200 - 10*i)
	}
	e := New(Options{Seed: DefaultSeed, Trees: 20})
	for _, m := range []model.Method{model.MethodEnsemble, model.MethodLinear, model.MethodRandomForest} {
		t.Run(string(m), func(t *testing.T) {
			got, err := e.Forecast(context.Background(), series(t, "2024-01-01", costs...), 60, m)
			require.NoError(t, err)
			for _, p := range got.Predictions {
				assert.GreaterOrEqual(t, p.PredictedCost, 0.0, p.Date)
			}
		})
	}
}

func TestForecast_DecliningSeriesTrendsDown(t *testing.T) {
	costs := make([]float64, 21)
	for i := range costs {
		costs[i] = float64(200 - 10*i)
	}
	got, err := New(Options{Trees: 5}).Forecast(context.Background(), series(t, "2024-01-01", costs...), 60, model.MethodLinear)
	require.NoError(t, err)
	assert.Equal(t, model.TrendDecreasing, got.Stats.Trend)
	assert.InDelta(t, 30, got.Stats.RecentAvgCost, 1e-9)
}

func TestClamp(t *testing.T) {
	assert.Zero(t, clamp(-3))
	assert.Zero(t, clamp(math.NaN()))
	assert.Equal(t, 2.5, clamp(2.5))
}

func TestForecast_SeedReproducible(t *testing.T) {
	s := series(t, "2024-01-01", 5, 9, 3, 12, 7, 8, 15, 4, 6, 10, 11, 2, 9, 13)
	run := func(seed uint64) model.Forecast {
		got, err := New(Options{Seed: seed, Trees: 25}).Forecast(context.Background(), s, 14, model.MethodRandomForest)
		require.NoError(t, err)
		return got
	}
	assert.Equal(t, run(42), run(42))
}

func TestForecast_SimpleMethods(t *testing.T) {
	costs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	s := series(t, "2024-01-01", costs...)
	e := New(Options{Trees: 5})

	ma, err := e.Forecast(context.Background(), s, 3, model.MethodMovingAverage)
	require.NoError(t, err)
	for _, p := range ma.Predictions {
		assert.InDelta(t, 7, p.PredictedCost, 1e-9)
	}
	assert.InDelta(t, 7, ma.Stats.RecentAvgCost, 1e-9)
	assert.Equal(t, model.TrendStable, ma.Stats.Trend)

	other, err := e.Forecast(context.Background(), s, 3, model.Method("prophet"))
	require.NoError(t, err)
	for _, p := range other.Predictions {
		assert.InDelta(t, 5.5, p.PredictedCost, 1e-9)
	}
	assert.Equal(t, model.TrendDecreasing, other.Stats.Trend)
	assert.Equal(t, model.Method("prophet"), other.Stats.Method)
}

func TestForecast_EnsembleAveragesMembers(t *testing.T) {
	// On a flat series every member predicts the flat value exactly.
	got, err := New(Options{Trees: 10}).Forecast(context.Background(), series(t, "2024-01-01", repeat(20, 14)...), 7, model.MethodEnsemble)
	require.NoError(t, err)
	for _, p := range got.Predictions {
		assert.InDelta(t, 20, p.PredictedCost, 1e-6)
	}
	assert.Equal(t, model.TrendStable, got.Stats.Trend)
}

func TestForecast_ZeroHorizon(t *testing.T) {
	got, err := New(Options{Trees: 5}).Forecast(context.Background(), series(t, "2024-01-01", 1, 2, 3, 4, 5, 6, 7), 0, model.MethodEnsemble)
	require.NoError(t, err)
	assert.Empty(t, got.Predictions)
	assert.Equal(t, model.TrendStable, got.Stats.Trend)
	assert.Zero(t, got.Stats.PredictedAvgCost)
}

func TestForecast_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultOptions()).Forecast(ctx, series(t, "2024-01-01", repeat(3, 10)...), 3, model.MethodEnsemble)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTrainingFailed)
	var ee *Error
	assert.False(t, errors.As(err, &ee), "cancellation is not an engine failure")
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		predicted float64
		want      model.Trend
	}{
		{111, model.TrendIncreasing},
		{89, model.TrendDecreasing},
		{100, model.TrendStable},
		{110, model.TrendStable},
		{90, model.TrendStable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyTrend(100, tt.predicted), "predicted %v", tt.predicted)
	}
}
