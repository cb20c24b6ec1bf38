package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/costcast/internal/model"
)

// Round2 rounds a money or percentage value half away from zero to cents.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// RoundAnalysis returns a copy with every value rounded for display.
func RoundAnalysis(a model.Analysis) model.Analysis {
	out := model.Analysis{Stats: a.Stats, Records: make([]model.LevelRecord, len(a.Records))}
	out.Stats.Mean = Round2(a.Stats.Mean)
	out.Stats.Median = Round2(a.Stats.Median)
	out.Stats.Std = Round2(a.Stats.Std)
	out.Stats.Min = Round2(a.Stats.Min)
	out.Stats.Max = Round2(a.Stats.Max)
	for i, r := range a.Records {
		r.Cost = Round2(r.Cost)
		r.DeviationPct = Round2(r.DeviationPct)
		out.Records[i] = r
	}
	return out
}

// RoundForecast returns a copy with every value rounded for display.
func RoundForecast(f model.Forecast) model.Forecast {
	out := model.Forecast{Stats: f.Stats, Predictions: make([]model.ForecastRecord, len(f.Predictions))}
	out.Stats.RecentAvgCost = Round2(f.Stats.RecentAvgCost)
	out.Stats.PredictedAvgCost = Round2(f.Stats.PredictedAvgCost)
	for i, p := range f.Predictions {
		p.PredictedCost = Round2(p.PredictedCost)
		out.Predictions[i] = p
	}
	return out
}

// RoundAnomalies returns a copy with every value rounded for display.
func RoundAnomalies(in []model.AnomalyRecord) []model.AnomalyRecord {
	out := make([]model.AnomalyRecord, len(in))
	for i, a := range in {
		a.Cost = Round2(a.Cost)
		a.ZScore = Round2(a.ZScore)
		out[i] = a
	}
	return out
}

// RoundBudget returns a copy with every value rounded for display.
func RoundBudget(b model.BudgetComparison) model.BudgetComparison {
	out := model.BudgetComparison{Summary: b.Summary, Records: make([]model.BudgetRecord, len(b.Records))}
	out.Summary.TotalCost = Round2(b.Summary.TotalCost)
	out.Summary.TotalBaseline = Round2(b.Summary.TotalBaseline)
	out.Summary.TotalDifference = Round2(b.Summary.TotalDifference)
	out.Summary.OverBudgetRate = Round2(b.Summary.OverBudgetRate)
	for i, r := range b.Records {
		r.Cost = Round2(r.Cost)
		r.Difference = Round2(r.Difference)
		r.DifferencePct = Round2(r.DifferencePct)
		out.Records[i] = r
	}
	return out
}

// Rounded returns a copy of the report with every section rounded.
func (r *Report) Rounded() *Report {
	out := *r
	out.BillingSummary.TotalCost = Round2(r.BillingSummary.TotalCost)
	out.DailyAnalysis.Analysis = RoundAnalysis(r.DailyAnalysis.Analysis)
	out.Predictions.Forecast = RoundForecast(r.Predictions.Forecast)
	out.Anomalies = RoundAnomalies(r.Anomalies)
	if r.Budget != nil {
		b := *r.Budget
		b.BudgetComparison = RoundBudget(r.Budget.BudgetComparison)
		out.Budget = &b
	}
	return &out
}

// Export writes v as indented JSON. Non-ASCII text is written as-is.
func Export(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ExportFile writes v as indented JSON to path, creating parent directories.
func ExportFile(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating export dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // user-chosen output path
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := Export(f, v); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
