// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/costcast/internal/config"
)

var currencySymbol = "¥"

// SetCurrency selects the symbol FormatCost prefixes amounts with.
func SetCurrency(code string) {
	currencySymbol = config.Symbol(code)
}

// FormatCost formats a cost in the active currency.
// Large values drop decimals; negative values keep their sign in front of the symbol.
func FormatCost(cost float64) string {
	if cost < 0 {
		return "-" + FormatCost(-cost)
	}
	if cost >= 10000 {
		return currencySymbol + FormatNumber(int64(math.Round(cost)))
	}
	return currencySymbol + formatCommaFloat(cost)
}

func formatCommaFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	whole, frac, _ := strings.Cut(s, ".")
	n, _ := strconv.ParseInt(whole, 10, 64)
	return FormatNumber(n) + "." + frac
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value that is already a percentage.
func FormatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatSignedPercent formats a percentage with an explicit sign.
func FormatSignedPercent(pct float64) string {
	return fmt.Sprintf("%+.1f%%", pct)
}

// FormatDelta formats a cost difference with an explicit sign.
func FormatDelta(delta float64) string {
	if delta >= 0 {
		return "+" + FormatCost(delta)
	}
	return FormatCost(delta)
}

// FormatZScore formats a z-score with its sign.
func FormatZScore(z float64) string {
	return fmt.Sprintf("%+.2fσ", z)
}

// FormatDayOfWeek returns a 3-letter day abbreviation; 0 is Monday.
func FormatDayOfWeek(weekday int) string {
	days := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	if weekday >= 0 && weekday < 7 {
		return days[weekday]
	}
	return "???"
}
