// Package model defines domain types for costcast series and results.
package model

import (
	"sort"
	"time"
)

// DateLayout is the calendar-date key format used throughout costcast.
const DateLayout = "2006-01-02"

// DailyCostSeries maps an ISO-8601 calendar date to the total cost of that day.
// Keys are unique; iteration order carries no meaning.
type DailyCostSeries map[string]float64

// Dates returns the series keys in ascending order.
func (s DailyCostSeries) Dates() []string {
	dates := make([]string, 0, len(s))
	for d := range s {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Total sums every day in the series.
func (s DailyCostSeries) Total() float64 {
	var total float64
	for _, c := range s {
		total += c
	}
	return total
}

// Clone returns an independent copy of the series.
func (s DailyCostSeries) Clone() DailyCostSeries {
	out := make(DailyCostSeries, len(s))
	for d, c := range s {
		out[d] = c
	}
	return out
}

// DateRange is an inclusive calendar range. Zero values mean unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range, compared by calendar day.
func (r DateRange) Contains(t time.Time) bool {
	day := t.Format(DateLayout)
	if !r.Start.IsZero() && day < r.Start.Format(DateLayout) {
		return false
	}
	if !r.End.IsZero() && day > r.End.Format(DateLayout) {
		return false
	}
	return true
}

// String renders the range as "start..end" with open ends left blank.
func (r DateRange) String() string {
	var start, end string
	if !r.Start.IsZero() {
		start = r.Start.Format(DateLayout)
	}
	if !r.End.IsZero() {
		end = r.End.Format(DateLayout)
	}
	return start + ".." + end
}

// FeatureRow is one day of the training table derived from a series.
type FeatureRow struct {
	Date           time.Time
	Cost           float64
	DayOfWeek      int // 0 = Monday
	DayOfMonth     int
	Month          int
	DaysSinceStart int
	RollingMean7   float64
	RollingMean30  float64
	RollingStd7    float64
}

// Vector returns the model inputs in training column order.
func (r FeatureRow) Vector() []float64 {
	return []float64{
		float64(r.DayOfWeek),
		float64(r.DayOfMonth),
		float64(r.Month),
		float64(r.DaysSinceStart),
		r.RollingMean7,
		r.RollingMean30,
		r.RollingStd7,
	}
}
