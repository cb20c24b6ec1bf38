package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/model"
)

func TestAnalyze_LevelRule(t *testing.T) {
	e := New(DefaultOptions())
	s := series(t, "2024-05-01", 10, 12, 11, 50, 9, 1, 10, 13, 0, 11)

	got, err := e.Analyze(s)
	require.NoError(t, err)
	require.Len(t, got.Records, len(s))

	st := got.Stats
	for _, r := range got.Records {
		switch r.Level {
		case model.LevelHigh:
			assert.Greater(t, r.Cost, st.Mean+st.Std, r.Date)
		case model.LevelLow:
			assert.Less(t, r.Cost, st.Mean-st.Std, r.Date)
		default:
			assert.GreaterOrEqual(t, r.Cost, st.Mean-st.Std, r.Date)
			assert.LessOrEqual(t, r.Cost, st.Mean+st.Std, r.Date)
		}
		assert.InDelta(t, (r.Cost-st.Mean)/st.Mean*100, r.DeviationPct, 1e-9)
		assert.Equal(t, r.Level.Description(), r.Description)
	}
	assert.Equal(t, model.LevelHigh, got.Records[3].Level)
	assert.Equal(t, "2024-05-01", got.Records[0].Date)
	assert.Equal(t, 10, st.TotalDays)
	assert.Equal(t, 0.0, st.Min)
	assert.Equal(t, 50.0, st.Max)
}

func TestAnalyze_ConstantSeries(t *testing.T) {
	e := New(DefaultOptions())
	got, err := e.Analyze(series(t, "2024-05-01", repeat(42, 12)...))
	require.NoError(t, err)
	for _, r := range got.Records {
		assert.Equal(t, model.LevelNormal, r.Level)
		assert.Zero(t, r.DeviationPct)
		assert.False(t, r.DeviationUndefined)
	}
	assert.Zero(t, got.Stats.Std)
}

func TestAnalyze_ZeroMeanFlagsDeviation(t *testing.T) {
	e := New(DefaultOptions())
	got, err := e.Analyze(series(t, "2024-05-01", 0, 0, 0))
	require.NoError(t, err)
	for _, r := range got.Records {
		assert.True(t, r.DeviationUndefined)
		assert.Zero(t, r.DeviationPct)
	}
}

func TestAnalyze_SingleDay(t *testing.T) {
	got, err := New(DefaultOptions()).Analyze(model.DailyCostSeries{"2024-05-01": 5})
	require.NoError(t, err)
	require.Len(t, got.Records, 1)
	assert.Equal(t, model.LevelNormal, got.Records[0].Level)
}

func TestAnalyze_Empty(t *testing.T) {
	_, err := New(DefaultOptions()).Analyze(model.DailyCostSeries{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAnalyze_Idempotent(t *testing.T) {
	e := New(DefaultOptions())
	s := series(t, "2024-05-01", 3, 9, 4, 7, 1, 8)
	a, err := e.Analyze(s)
	require.NoError(t, err)
	b, err := e.Analyze(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
