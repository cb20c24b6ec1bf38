package config

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type rateVersion struct {
	EffectiveFrom time.Time
	PerCNY        decimal.Decimal
}

// DefaultRates maps ISO currency codes to units per one CNY.
var DefaultRates = map[string]decimal.Decimal{
	"CNY": decimal.NewFromInt(1),
	"USD": decimal.RequireFromString("0.1389"),
	"EUR": decimal.RequireFromString("0.1282"),
	"HKD": decimal.RequireFromString("1.0870"),
	"JPY": decimal.RequireFromString("20.83"),
}

// defaultRateHistory stores effective-dated rates for each currency.
// Entries must be sorted by EffectiveFrom ascending.
var defaultRateHistory = makeDefaultRateHistory(DefaultRates)

func makeDefaultRateHistory(base map[string]decimal.Decimal) map[string][]rateVersion {
	history := make(map[string][]rateVersion, len(base))
	for code, rate := range base {
		history[code] = []rateVersion{{PerCNY: rate}}
	}
	return history
}

var currencyAliases = map[string]string{
	"RMB": "CNY",
	"¥":   "CNY",
	"元":   "CNY",
	"$":   "USD",
	"US$": "USD",
	"€":   "EUR",
}

// NormalizeCurrency upper-cases a currency code and resolves common aliases.
// An empty code is treated as CNY.
func NormalizeCurrency(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return "CNY"
	}
	if alias, ok := currencyAliases[code]; ok {
		return alias
	}
	return code
}

// Rates converts amounts between currencies using the built-in table plus
// user overrides from [currency.rates].
type Rates struct {
	overrides map[string]decimal.Decimal
}

// NewRates builds a converter. Override values are units per one CNY.
func NewRates(overrides map[string]float64) Rates {
	r := Rates{overrides: make(map[string]decimal.Decimal, len(overrides))}
	for code, v := range overrides {
		r.overrides[NormalizeCurrency(code)] = decimal.NewFromFloat(v)
	}
	return r
}

// LookupRateAt returns units of code per one CNY on the given day.
// If at is zero, the latest known rate is used.
func (r Rates) LookupRateAt(code string, at time.Time) (decimal.Decimal, bool) {
	code = NormalizeCurrency(code)
	if v, ok := r.overrides[code]; ok {
		return v, true
	}
	versions, ok := defaultRateHistory[code]
	if !ok || len(versions) == 0 {
		v, fallback := DefaultRates[code]
		return v, fallback
	}

	if at.IsZero() {
		return versions[len(versions)-1].PerCNY, true
	}

	at = at.UTC()
	selected := versions[0].PerCNY
	for _, v := range versions {
		if v.EffectiveFrom.IsZero() || !at.Before(v.EffectiveFrom.UTC()) {
			selected = v.PerCNY
			continue
		}
		break
	}
	return selected, true
}

// Convert moves amount from one currency to another at the rate in force on day at.
// It reports false when either currency is unknown.
func (r Rates) Convert(amount decimal.Decimal, from, to string, at time.Time) (decimal.Decimal, bool) {
	from, to = NormalizeCurrency(from), NormalizeCurrency(to)
	if from == to {
		return amount, true
	}
	fromRate, ok := r.LookupRateAt(from, at)
	if !ok || fromRate.IsZero() {
		return decimal.Zero, false
	}
	toRate, ok := r.LookupRateAt(to, at)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Div(fromRate).Mul(toRate), true
}

// Symbol returns the display prefix for a currency.
func Symbol(code string) string {
	switch NormalizeCurrency(code) {
	case "CNY", "JPY":
		return "¥"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "HKD":
		return "HK$"
	default:
		return NormalizeCurrency(code) + " "
	}
}
