// Package engine classifies, scores, forecasts and budgets daily cost series.
//
// An Engine holds configuration only. Every operation takes the full series,
// retrains whatever it needs and returns fresh results, so one Engine may be
// shared by concurrent callers.
package engine

import "context"

const (
	// DefaultSeed seeds the random forest when callers do not pick one.
	DefaultSeed = 42
	// DefaultTrees is the number of trees in the random forest.
	DefaultTrees = 100
	// DefaultAnomalyThreshold is the z-score magnitude that marks an anomaly.
	DefaultAnomalyThreshold = 2.0
	// DefaultDaysAhead is the forecast horizon used by the presentation layer.
	DefaultDaysAhead = 30
	// MinTrainingDays is the shortest series the forecaster accepts.
	MinTrainingDays = 7
	// MinAnomalyDays is the shortest series scored for anomalies.
	MinAnomalyDays = 7
)

// Regressor is one member of the forecasting ensemble.
type Regressor interface {
	Name() string
	Fit(ctx context.Context, x [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Options configures an Engine.
type Options struct {
	Seed           uint64
	Trees          int
	MinSamplesLeaf int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{Seed: DefaultSeed, Trees: DefaultTrees, MinSamplesLeaf: 1}
}

// Engine runs the analysis operations.
type Engine struct {
	opts Options
}

// New creates an Engine. Non-positive Trees and MinSamplesLeaf fall back to
// their defaults; Seed is used as given.
func New(opts Options) *Engine {
	if opts.Trees <= 0 {
		opts.Trees = DefaultTrees
	}
	if opts.MinSamplesLeaf <= 0 {
		opts.MinSamplesLeaf = 1
	}
	return &Engine{opts: opts}
}

// Options reports the effective configuration.
func (e *Engine) Options() Options { return e.opts }

// members builds a fresh, unfitted ensemble.
func (e *Engine) members() []Regressor {
	return []Regressor{
		NewLinearRegressor(),
		NewRandomForest(ForestConfig{
			Trees:          e.opts.Trees,
			Seed:           e.opts.Seed,
			MinSamplesLeaf: e.opts.MinSamplesLeaf,
		}),
	}
}
