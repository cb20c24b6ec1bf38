package source

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/model"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}

func TestAggregator_DailyConvertsAndSums(t *testing.T) {
	agg := Aggregator{Rates: config.NewRates(map[string]float64{"USD": 0.125}), Base: "CNY"}
	items := []Item{
		{Date: day(t, "2024-05-01"), Amount: decimal.RequireFromString("0.1"), Currency: "CNY"},
		{Date: day(t, "2024-05-01"), Amount: decimal.RequireFromString("0.2"), Currency: "CNY"},
		{Date: day(t, "2024-05-02"), Amount: decimal.NewFromInt(1), Currency: "USD"},
	}
	got, clamped, err := agg.Daily(items)
	require.NoError(t, err)
	assert.Empty(t, clamped)
	assert.Equal(t, 0.3, got["2024-05-01"], "decimal sums avoid float drift")
	assert.Equal(t, 8.0, got["2024-05-02"])
}

func TestAggregator_UnknownCurrency(t *testing.T) {
	agg := Aggregator{Rates: config.NewRates(nil), Base: "CNY"}
	_, _, err := agg.Daily([]Item{{Date: day(t, "2024-05-01"), Amount: decimal.NewFromInt(1), Currency: "XYZ"}})
	assert.Error(t, err)
}

func TestAggregator_DailyClampsNetRefunds(t *testing.T) {
	agg := Aggregator{Rates: config.NewRates(nil), Base: "CNY"}
	items := []Item{
		{Date: day(t, "2024-05-08"), Amount: decimal.NewFromInt(10), Currency: "CNY"},
		{Date: day(t, "2024-05-09"), Amount: decimal.NewFromInt(10), Currency: "CNY"},
		{Date: day(t, "2024-05-09"), Amount: decimal.NewFromInt(-25), Currency: "CNY"},
		{Date: day(t, "2024-05-10"), Amount: decimal.NewFromInt(10), Currency: "CNY"},
		{Date: day(t, "2024-05-10"), Amount: decimal.NewFromInt(-4), Currency: "CNY"},
	}
	got, clamped, err := agg.Daily(items)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-05-09"}, clamped)
	assert.Equal(t, model.DailyCostSeries{"2024-05-08": 10, "2024-05-09": 0, "2024-05-10": 6}, got)
}

func TestCombine(t *testing.T) {
	a := model.DailyCostSeries{"2024-05-01": 1, "2024-05-02": 2}
	b := model.DailyCostSeries{"2024-05-02": 3, "2024-05-03": 4}
	got := Combine(a, b)
	assert.Equal(t, model.DailyCostSeries{"2024-05-01": 1, "2024-05-02": 5, "2024-05-03": 4}, got)
	assert.Equal(t, 2.0, a["2024-05-02"], "inputs are not modified")
	assert.Empty(t, Combine())
}

func TestFilterRange(t *testing.T) {
	s := model.DailyCostSeries{"2024-04-30": 1, "2024-05-01": 2, "2024-05-31": 3, "2024-06-01": 4, "bad": 5}
	got := FilterRange(s, model.DateRange{Start: day(t, "2024-05-01"), End: day(t, "2024-05-31")})
	assert.Equal(t, model.DailyCostSeries{"2024-05-01": 2, "2024-05-31": 3}, got)

	open := FilterRange(s, model.DateRange{Start: day(t, "2024-05-31")})
	assert.Len(t, open, 2)
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)
	r := LastNDays(now, 30)
	assert.Equal(t, "2024-02-14", r.Start.Format(model.DateLayout))
	assert.Equal(t, "2024-03-15", r.End.Format(model.DateLayout))
}

func TestProductSummary(t *testing.T) {
	agg := Aggregator{Rates: config.NewRates(nil), Base: "CNY"}
	items := []Item{
		{Date: day(t, "2024-05-01"), Amount: decimal.NewFromInt(5), Currency: "CNY", Provider: "ali", Product: "ECS"},
		{Date: day(t, "2024-05-02"), Amount: decimal.NewFromInt(7), Currency: "CNY", Provider: "ali", Product: "ECS"},
		{Date: day(t, "2024-05-02"), Amount: decimal.NewFromInt(20), Currency: "CNY", Provider: "tx", Product: ""},
		{Date: day(t, "2024-05-02"), Amount: decimal.NewFromInt(99), Currency: "XYZ", Provider: "tx", Product: "skip"},
	}
	got := agg.ProductSummary(items)
	require.Len(t, got, 2)
	assert.Equal(t, ProductCost{Provider: "tx", Product: "(unknown)", Cost: 20, Items: 1}, got[0])
	assert.Equal(t, ProductCost{Provider: "ali", Product: "ECS", Cost: 12, Items: 2}, got[1])
}
