package source

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/model"
)

// Aggregator turns billing items into daily totals in one currency.
type Aggregator struct {
	Rates config.Rates
	Base  string
}

// Daily sums items per calendar day after converting each to the base
// currency at the rate in force on that day. Refunds net against the day
// they fall on; a day whose net total is negative is clamped to zero and
// its date is returned in clamped, sorted.
func (a Aggregator) Daily(items []Item) (series model.DailyCostSeries, clamped []string, err error) {
	totals := make(map[string]decimal.Decimal)
	for _, it := range items {
		amount, ok := a.Rates.Convert(it.Amount, it.Currency, a.Base, it.Date)
		if !ok {
			return nil, nil, fmt.Errorf("no rate from %s to %s for %s", it.Currency, a.Base, it.Date.Format(model.DateLayout))
		}
		key := it.Date.Format(model.DateLayout)
		totals[key] = totals[key].Add(amount)
	}

	series = make(model.DailyCostSeries, len(totals))
	for day, total := range totals {
		if total.IsNegative() {
			clamped = append(clamped, day)
			total = decimal.Zero
		}
		series[day] = total.InexactFloat64()
	}
	sort.Strings(clamped)
	return series, clamped, nil
}

// Combine merges provider series by summing costs that share a date.
func Combine(series ...model.DailyCostSeries) model.DailyCostSeries {
	out := make(model.DailyCostSeries)
	for _, s := range series {
		for day, cost := range s {
			out[day] += cost
		}
	}
	return out
}

// FilterRange keeps the days inside r. Keys that are not dates are dropped.
func FilterRange(s model.DailyCostSeries, r model.DateRange) model.DailyCostSeries {
	out := make(model.DailyCostSeries, len(s))
	for day, cost := range s {
		t, err := time.Parse(model.DateLayout, day)
		if err != nil || !r.Contains(t) {
			continue
		}
		out[day] = cost
	}
	return out
}

// LastNDays returns the range from n days before now through now.
func LastNDays(now time.Time, n int) model.DateRange {
	return model.DateRange{Start: now.AddDate(0, 0, -n), End: now}
}

// ProductCost is the total spend on one product.
type ProductCost struct {
	Provider string  `json:"provider"`
	Product  string  `json:"product"`
	Cost     float64 `json:"cost"`
	Items    int     `json:"items"`
}

// ProductSummary groups items by provider and product, most expensive first.
// Items with unconvertible currencies are skipped.
func (a Aggregator) ProductSummary(items []Item) []ProductCost {
	type key struct{ provider, product string }
	totals := make(map[key]decimal.Decimal)
	counts := make(map[key]int)
	for _, it := range items {
		amount, ok := a.Rates.Convert(it.Amount, it.Currency, a.Base, it.Date)
		if !ok {
			continue
		}
		product := it.Product
		if product == "" {
			product = "(unknown)"
		}
		k := key{it.Provider, product}
		totals[k] = totals[k].Add(amount)
		counts[k]++
	}

	out := make([]ProductCost, 0, len(totals))
	for k, total := range totals {
		out = append(out, ProductCost{
			Provider: k.provider,
			Product:  k.product,
			Cost:     total.InexactFloat64(),
			Items:    counts[k],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost > out[j].Cost
		}
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Product < out[j].Product
	})
	return out
}
