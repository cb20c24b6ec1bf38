package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name       string
		in         []float64
		mean, med  float64
		std        float64
		minV, maxV float64
	}{
		{"odd", []float64{3, 1, 2}, 2, 2, 1, 1, 3},
		{"even", []float64{4, 1, 3, 2}, 2.5, 2.5, math.Sqrt(5.0 / 3.0), 1, 4},
		{"single", []float64{7}, 7, 7, 0, 7, 7},
		{"constant", []float64{0.1, 0.1, 0.1}, 0.1, 0.1, 0, 0.1, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.in)
			assert.InDelta(t, tt.mean, got.Mean, 1e-9)
			assert.InDelta(t, tt.med, got.Median, 1e-9)
			assert.InDelta(t, tt.std, got.Std, 1e-9)
			assert.Equal(t, tt.minV, got.Min)
			assert.Equal(t, tt.maxV, got.Max)
			assert.Equal(t, len(tt.in), got.TotalDays)
		})
	}
}

func TestSummarize_DoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Summarize(in)
	assert.Equal(t, []float64{3, 1, 2}, in)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Zero(t, Summarize(nil).TotalDays)
}
