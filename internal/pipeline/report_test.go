package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
)

func testSeries(n int) model.DailyCostSeries {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := make(model.DailyCostSeries, n)
	for i := 0; i < n; i++ {
		s[start.AddDate(0, 0, i).Format(model.DateLayout)] = 100 + float64(i%5)*3.333
	}
	return s
}

func TestBuildReport(t *testing.T) {
	budget := 105.0
	eng := engine.New(engine.Options{Seed: 42, Trees: 10})
	rep, err := BuildReport(context.Background(), eng, testSeries(21), Request{
		Provider:    "all",
		DaysAhead:   7,
		Method:      model.MethodEnsemble,
		Threshold:   engine.DefaultAnomalyThreshold,
		DailyBudget: &budget,
	})
	require.NoError(t, err)

	assert.True(t, rep.Success)
	assert.Equal(t, 21, rep.BillingSummary.DaysCount)
	assert.True(t, rep.DailyAnalysis.Success)
	assert.Len(t, rep.DailyAnalysis.Records, 21)
	assert.True(t, rep.Predictions.Success)
	assert.Len(t, rep.Predictions.Predictions, 7)
	assert.NotNil(t, rep.Anomalies)
	require.NotNil(t, rep.Budget)
	assert.Equal(t, 21, rep.Budget.Summary.TotalDays)
}

func TestBuildReport_SectionFailureIsNotFatal(t *testing.T) {
	eng := engine.New(engine.Options{Trees: 5})
	rep, err := BuildReport(context.Background(), eng, testSeries(3), Request{DaysAhead: 30, Method: model.MethodEnsemble, Threshold: 2})
	require.NoError(t, err)
	assert.True(t, rep.DailyAnalysis.Success)
	assert.False(t, rep.Predictions.Success)
	assert.Contains(t, rep.Predictions.Message, "insufficient data")
	assert.Empty(t, rep.Anomalies)
	assert.Nil(t, rep.Budget)
}

func TestBuildReport_Empty(t *testing.T) {
	_, err := BuildReport(context.Background(), engine.New(engine.DefaultOptions()), nil, Request{})
	assert.ErrorIs(t, err, ErrNoBillingData)
}

func TestBuildReport_MatchesSequentialResults(t *testing.T) {
	eng := engine.New(engine.Options{Seed: 7, Trees: 10})
	s := testSeries(14)
	rep, err := BuildReport(context.Background(), eng, s, Request{DaysAhead: 5, Method: model.MethodRandomForest, Threshold: 1})
	require.NoError(t, err)

	f, err := eng.Forecast(context.Background(), s, 5, model.MethodRandomForest)
	require.NoError(t, err)
	assert.Equal(t, f, rep.Predictions.Forecast)

	a, err := eng.DetectAnomalies(s, 1)
	require.NoError(t, err)
	assert.Equal(t, a, rep.Anomalies)
}

func TestReport_RoundedJSON(t *testing.T) {
	eng := engine.New(engine.Options{Trees: 5})
	rep, err := BuildReport(context.Background(), eng, testSeries(10), Request{DaysAhead: 3, Method: model.MethodMovingAverage, Threshold: 2})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, rep.Rounded()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	preds := decoded["predictions"].(map[string]any)
	assert.Equal(t, true, preds["success"])
	stats := preds["statistics"].(map[string]any)
	assert.Equal(t, "stable", stats["trend"])
	v := stats["recent_avg_cost"].(float64)
	assert.Equal(t, Round2(v), v)

	// The original report is untouched.
	assert.NotEqual(t, Round2(rep.DailyAnalysis.Stats.Std), rep.DailyAnalysis.Stats.Std)
}

func TestRound2(t *testing.T) {
	tests := map[float64]float64{
		1.005:  1.01,
		-1.005: -1.01,
		2.675:  2.68,
		3:      3,
		0.004:  0,
	}
	for in, want := range tests {
		assert.Equal(t, want, Round2(in), "Round2(%v)", in)
	}
}
