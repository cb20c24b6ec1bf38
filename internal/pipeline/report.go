// Package pipeline loads billing exports and assembles engine results into reports.
package pipeline

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
)

// ErrNoBillingData is returned when the selected range holds no costs.
var ErrNoBillingData = errors.New("no billing data for the selected provider and range")

// Request carries the presentation-layer parameters of a report.
type Request struct {
	Provider    string
	Range       model.DateRange
	DaysAhead   int
	Method      model.Method
	Threshold   float64
	DailyBudget *float64
}

// Status is the success envelope shared by every report section.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func statusOf(err error) Status {
	if err != nil {
		return Status{Message: err.Error()}
	}
	return Status{Success: true}
}

// AnalysisSection wraps a level classification.
type AnalysisSection struct {
	Status
	model.Analysis
}

// ForecastSection wraps a forecast.
type ForecastSection struct {
	Status
	model.Forecast
}

// BudgetSection wraps a baseline comparison.
type BudgetSection struct {
	Status
	model.BudgetComparison
}

// BillingSummary describes the series the report was built from.
type BillingSummary struct {
	TotalCost float64 `json:"total_cost"`
	DaysCount int     `json:"days_count"`
}

// DateRange is the JSON form of the requested range.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Report is the combined analysis, forecast and anomaly view of one series.
type Report struct {
	Success        bool                  `json:"success"`
	Provider       string                `json:"provider"`
	DateRange      DateRange             `json:"date_range"`
	Currency       string                `json:"currency,omitempty"`
	BillingSummary BillingSummary        `json:"billing_summary"`
	DailyAnalysis  AnalysisSection       `json:"daily_analysis"`
	Predictions    ForecastSection       `json:"predictions"`
	Anomalies      []model.AnomalyRecord `json:"anomalies"`
	Budget         *BudgetSection        `json:"budget,omitempty"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// BuildReport runs the engine operations on series concurrently. Failures of
// individual operations are recorded in their section; only an empty series
// or a cancelled context fails the whole report.
func BuildReport(ctx context.Context, eng *engine.Engine, series model.DailyCostSeries, req Request) (*Report, error) {
	if len(series) == 0 {
		return nil, ErrNoBillingData
	}

	rep := &Report{
		Success:  true,
		Provider: req.Provider,
		BillingSummary: BillingSummary{
			TotalCost: series.Total(),
			DaysCount: len(series),
		},
		GeneratedAt: time.Now().UTC(),
	}
	if !req.Range.Start.IsZero() {
		rep.DateRange.Start = req.Range.Start.Format(model.DateLayout)
	}
	if !req.Range.End.IsZero() {
		rep.DateRange.End = req.Range.End.Format(model.DateLayout)
	}

	var g errgroup.Group
	g.Go(func() error {
		a, err := eng.Analyze(series)
		rep.DailyAnalysis = AnalysisSection{Status: statusOf(err), Analysis: a}
		return nil
	})
	g.Go(func() error {
		f, err := eng.Forecast(ctx, series, req.DaysAhead, req.Method)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rep.Predictions = ForecastSection{Status: statusOf(err), Forecast: f}
		return nil
	})
	g.Go(func() error {
		anomalies, err := eng.DetectAnomalies(series, req.Threshold)
		if err != nil {
			anomalies = []model.AnomalyRecord{}
		}
		rep.Anomalies = anomalies
		return nil
	})
	if req.DailyBudget != nil {
		g.Go(func() error {
			b, err := eng.CompareBaseline(series, *req.DailyBudget)
			rep.Budget = &BudgetSection{Status: statusOf(err), BudgetComparison: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rep, nil
}
