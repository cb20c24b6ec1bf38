package engine

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/theirongolddev/costcast/internal/model"
)

// Summarize computes whole-series statistics over costs in any order.
// Std is the sample standard deviation; it is 0 for fewer than two values.
func Summarize(costs []float64) model.CostStats {
	if len(costs) == 0 {
		return model.CostStats{}
	}
	return model.CostStats{
		Mean:      mean(costs),
		Median:    median(costs),
		Std:       sampleStd(costs),
		Min:       floats.Min(costs),
		Max:       floats.Max(costs),
		TotalDays: len(costs),
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// sampleStd returns the n-1 standard deviation, forced to exactly 0 for
// constant inputs so rounding noise never produces spurious anomalies.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 || constant(xs) {
		return 0
	}
	return stat.StdDev(xs, nil)
}

func median(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func constant(xs []float64) bool {
	for _, x := range xs[1:] {
		if x != xs[0] {
			return false
		}
	}
	return true
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
