package engine

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/theirongolddev/costcast/internal/model"
)

const (
	shortWindow = 7
	longWindow  = 30
)

// BuildFeatures converts a series into date-ordered feature rows. Rolling
// windows cover the rows actually present; missing days are not filled in.
func BuildFeatures(series model.DailyCostSeries) ([]model.FeatureRow, error) {
	rows := make([]model.FeatureRow, 0, len(series))
	for key, cost := range series {
		date, err := time.Parse(model.DateLayout, key)
		if err != nil {
			return nil, &Error{Kind: KindInvalidSeries, Message: "bad date key " + strconv.Quote(key), Err: err}
		}
		if math.IsNaN(cost) || math.IsInf(cost, 0) || cost < 0 {
			return nil, newError(KindInvalidSeries, "cost %v on %s is not a non-negative number", cost, key)
		}
		rows = append(rows, model.FeatureRow{Date: date, Cost: cost})
	}
	if len(rows) == 0 {
		return rows, nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	costs := costsOf(rows)
	start := rows[0].Date
	for i := range rows {
		fillCalendar(&rows[i], start)
		rows[i].RollingMean7 = mean(costs[window(i, shortWindow) : i+1])
		rows[i].RollingMean30 = mean(costs[window(i, longWindow) : i+1])
		rows[i].RollingStd7 = sampleStd(costs[window(i, shortWindow) : i+1])
	}
	return rows, nil
}

// FutureFeatures builds rows for the n days following the last history row.
// Calendar fields follow each future date; rolling fields stay frozen at the
// values observed at the end of the history.
func FutureFeatures(history []model.FeatureRow, n int) []model.FeatureRow {
	if len(history) == 0 || n <= 0 {
		return nil
	}
	costs := costsOf(history)
	ma7 := mean(tail(costs, shortWindow))
	ma30 := mean(costs)
	if len(costs) >= longWindow {
		ma30 = mean(tail(costs, longWindow))
	}
	std7 := sampleStd(tail(costs, shortWindow))

	start := history[0].Date
	last := history[len(history)-1].Date
	out := make([]model.FeatureRow, n)
	for i := range out {
		out[i] = model.FeatureRow{
			Date:          last.AddDate(0, 0, i+1),
			RollingMean7:  ma7,
			RollingMean30: ma30,
			RollingStd7:   std7,
		}
		fillCalendar(&out[i], start)
	}
	return out
}

func fillCalendar(r *model.FeatureRow, start time.Time) {
	r.DayOfWeek = (int(r.Date.Weekday()) + 6) % 7
	r.DayOfMonth = r.Date.Day()
	r.Month = int(r.Date.Month())
	r.DaysSinceStart = int(r.Date.Sub(start).Hours() / 24)
}

func window(i, size int) int {
	if i+1 < size {
		return 0
	}
	return i + 1 - size
}

func costsOf(rows []model.FeatureRow) []float64 {
	costs := make([]float64, len(rows))
	for i, r := range rows {
		costs[i] = r.Cost
	}
	return costs
}

func matrixOf(rows []model.FeatureRow) ([][]float64, []float64) {
	x := make([][]float64, len(rows))
	for i, r := range rows {
		x[i] = r.Vector()
	}
	return x, costsOf(rows)
}
