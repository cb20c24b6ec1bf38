package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/model"
)

func TestDetectAnomalies_SingleSpike(t *testing.T) {
	costs := make([]float64, 20)
	for i := range costs {
		costs[i] = 10 + float64(i%2)
	}
	costs[13] = 50

	got, err := New(DefaultOptions()).DetectAnomalies(series(t, "2024-01-01", costs...), DefaultAnomalyThreshold)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-01-14", got[0].Date)
	assert.Equal(t, model.AnomalyHigh, got[0].Status)
	assert.Greater(t, got[0].ZScore, 2.0)
	assert.Equal(t, 50.0, got[0].Cost)
}

func TestDetectAnomalies_LowStatus(t *testing.T) {
	costs := repeat(100, 20)
	costs[0] = 0
	got, err := New(DefaultOptions()).DetectAnomalies(series(t, "2024-01-01", costs...), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AnomalyLow, got[0].Status)
	assert.Less(t, got[0].ZScore, -2.0)
}

func TestDetectAnomalies_EmptyCases(t *testing.T) {
	e := New(DefaultOptions())
	tests := []struct {
		name      string
		s         model.DailyCostSeries
		threshold float64
	}{
		{"short series", series(t, "2024-01-01", 1, 100, 1, 1, 1, 1), 0.5},
		{"constant", series(t, "2024-01-01", repeat(7, 30)...), 0},
		{"constant negative threshold", series(t, "2024-01-01", repeat(7, 30)...), -1},
		{"empty", model.DailyCostSeries{}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.DetectAnomalies(tt.s, tt.threshold)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestDetectAnomalies_ThresholdUsedAsGiven(t *testing.T) {
	e := New(DefaultOptions())
	s := series(t, "2024-01-01", 1, 2, 3, 4, 5, 6, 7, 8)
	loose, err := e.DetectAnomalies(s, 0)
	require.NoError(t, err)
	// Every value differs from the mean of 4.5, so a zero threshold keeps all.
	assert.Len(t, loose, 8)

	strict, err := e.DetectAnomalies(s, 10)
	require.NoError(t, err)
	assert.Empty(t, strict)
}

func TestDetectAnomalies_InvalidSeries(t *testing.T) {
	_, err := New(DefaultOptions()).DetectAnomalies(model.DailyCostSeries{"nope": 1}, 2)
	assert.ErrorIs(t, err, ErrInvalidSeries)
}
