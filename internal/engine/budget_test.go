package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/model"
)

func TestCompareBaseline(t *testing.T) {
	got, err := New(DefaultOptions()).CompareBaseline(series(t, "2024-02-01", 80, 100, 130), 100)
	require.NoError(t, err)
	require.Len(t, got.Records, 3)

	assert.Equal(t, model.WithinBudget, got.Records[0].Status)
	assert.InDelta(t, -20, got.Records[0].DifferencePct, 1e-9)
	assert.Equal(t, model.WithinBudget, got.Records[1].Status, "equal to baseline is within budget")
	assert.Equal(t, model.OverBudget, got.Records[2].Status)
	assert.InDelta(t, 30, got.Records[2].Difference, 1e-9)

	sum := got.Summary
	assert.InDelta(t, 310, sum.TotalCost, 1e-9)
	assert.InDelta(t, 300, sum.TotalBaseline, 1e-9)
	assert.InDelta(t, 10, sum.TotalDifference, 1e-9)
	assert.Equal(t, 1, sum.OverBudgetDays)
	assert.Equal(t, 3, sum.TotalDays)
	assert.InDelta(t, 100.0/3, sum.OverBudgetRate, 1e-9)
}

func TestCompareBaseline_DifferencesSumToTotal(t *testing.T) {
	e := New(DefaultOptions())
	cases := []struct {
		costs    []float64
		baseline float64
	}{
		{[]float64{0.1, 0.2, 0.3, 1e6, 3.14159}, 0.7},
		{[]float64{12.34, 56.78, 90.12, 0, 0.01}, 33.333},
		{repeat(1.1, 365), 1.2},
		{[]float64{5}, 0},
	}
	for _, c := range cases {
		got, err := e.CompareBaseline(series(t, "2023-01-01", c.costs...), c.baseline)
		require.NoError(t, err)
		var diffs float64
		for _, r := range got.Records {
			diffs += r.Difference
		}
		assert.InDelta(t, got.Summary.TotalCost-got.Summary.TotalBaseline, diffs, 1e-6)
	}
}

func TestCompareBaseline_NonPositiveBaseline(t *testing.T) {
	got, err := New(DefaultOptions()).CompareBaseline(series(t, "2024-02-01", 0, 5), 0)
	require.NoError(t, err)
	for _, r := range got.Records {
		assert.Zero(t, r.DifferencePct)
	}
	assert.Equal(t, model.WithinBudget, got.Records[0].Status)
	assert.Equal(t, model.OverBudget, got.Records[1].Status)
}

func TestCompareBaseline_Errors(t *testing.T) {
	e := New(DefaultOptions())
	_, err := e.CompareBaseline(model.DailyCostSeries{}, 10)
	assert.ErrorIs(t, err, ErrNoData)

	_, err = e.CompareBaseline(series(t, "2024-02-01", 1), math.NaN())
	assert.ErrorIs(t, err, ErrInvalidSeries)
}
