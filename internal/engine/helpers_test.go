package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/model"
)

// series builds a gap-free series starting at start.
func series(t *testing.T, start string, costs ...float64) model.DailyCostSeries {
	t.Helper()
	day, err := time.Parse(model.DateLayout, start)
	require.NoError(t, err)
	s := make(model.DailyCostSeries, len(costs))
	for i, c := range costs {
		s[day.AddDate(0, 0, i).Format(model.DateLayout)] = c
	}
	return s
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
