package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/model"
)

func TestBuildFeatures_SortsAndDerivesCalendar(t *testing.T) {
	s := model.DailyCostSeries{
		"2024-03-06": 30, // Wednesday
		"2024-03-04": 10, // Monday
		"2024-03-05": 20,
	}
	rows, err := BuildFeatures(s)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-03-04", rows[0].Date.Format(model.DateLayout))
	assert.Equal(t, 0, rows[0].DayOfWeek)
	assert.Equal(t, 2, rows[2].DayOfWeek)
	assert.Equal(t, 6, rows[2].DayOfMonth)
	assert.Equal(t, 3, rows[2].Month)
	assert.Equal(t, 2, rows[2].DaysSinceStart)

	assert.InDelta(t, 10, rows[0].RollingMean7, 1e-9)
	assert.Zero(t, rows[0].RollingStd7)
	assert.InDelta(t, 20, rows[2].RollingMean7, 1e-9)
	assert.InDelta(t, 10, rows[2].RollingStd7, 1e-9)
}

func TestBuildFeatures_SundayIsSix(t *testing.T) {
	rows, err := BuildFeatures(model.DailyCostSeries{"2024-03-10": 1})
	require.NoError(t, err)
	assert.Equal(t, 6, rows[0].DayOfWeek)
}

func TestBuildFeatures_WindowsSpanPresentRows(t *testing.T) {
	// Gaps are not filled: the 7-row window reaches back past the missing days.
	s := model.DailyCostSeries{
		"2024-01-01": 1, "2024-01-02": 2, "2024-01-10": 3, "2024-01-11": 4,
		"2024-01-12": 5, "2024-01-20": 6, "2024-01-21": 7, "2024-01-22": 8,
	}
	rows, err := BuildFeatures(s)
	require.NoError(t, err)
	last := rows[len(rows)-1]
	assert.InDelta(t, 5, last.RollingMean7, 1e-9) // mean(2..8)
	assert.InDelta(t, 4.5, last.RollingMean30, 1e-9)
	assert.Equal(t, 21, last.DaysSinceStart)
}

func TestBuildFeatures_LongWindowCapsAtThirty(t *testing.T) {
	costs := make([]float64, 40)
	for i := range costs {
		costs[i] = float64(i)
	}
	rows, err := BuildFeatures(series(t, "2024-01-01", costs...))
	require.NoError(t, err)
	assert.InDelta(t, 24.5, rows[39].RollingMean30, 1e-9) // mean(10..39)
	assert.InDelta(t, 36, rows[39].RollingMean7, 1e-9)
}

func TestBuildFeatures_Empty(t *testing.T) {
	rows, err := BuildFeatures(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBuildFeatures_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		s    model.DailyCostSeries
	}{
		{"bad date", model.DailyCostSeries{"03/04/2024": 1}},
		{"negative", model.DailyCostSeries{"2024-03-04": -1}},
		{"nan", model.DailyCostSeries{"2024-03-04": math.NaN()}},
		{"inf", model.DailyCostSeries{"2024-03-04": math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFeatures(tt.s)
			assert.ErrorIs(t, err, ErrInvalidSeries)
		})
	}
}

func TestFutureFeatures_FrozenRollingValues(t *testing.T) {
	costs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rows, err := BuildFeatures(series(t, "2024-02-26", costs...))
	require.NoError(t, err)

	future := FutureFeatures(rows, 5)
	require.Len(t, future, 5)

	wantStd := sampleStd([]float64{4, 5, 6, 7, 8, 9, 10})
	for i, f := range future {
		assert.InDelta(t, 7, f.RollingMean7, 1e-9)
		assert.InDelta(t, 5.5, f.RollingMean30, 1e-9) // fewer than 30 rows: whole-series mean
		assert.InDelta(t, wantStd, f.RollingStd7, 1e-9)
		assert.Equal(t, 10+i, f.DaysSinceStart)
	}
	// 2024 is a leap year.
	assert.Equal(t, "2024-03-07", future[0].Date.Format(model.DateLayout))
	assert.Equal(t, 3, future[0].DayOfWeek)
}

func TestFutureFeatures_Empty(t *testing.T) {
	assert.Nil(t, FutureFeatures(nil, 5))
	rows, err := BuildFeatures(model.DailyCostSeries{"2024-01-01": 1})
	require.NoError(t, err)
	assert.Nil(t, FutureFeatures(rows, 0))
}
