package source

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/costcast/internal/model"
)

// LineItem is one billing row as exported by a provider. Providers name the
// same field differently, so every field is optional and Resolve applies the
// precedence and defaults explicitly.
type LineItem struct {
	Date        *string `json:"date,omitempty"`
	BillingDate *string `json:"billing_date,omitempty"`
	PayTime     *string `json:"pay_time,omitempty"` // "2024-05-01 13:04:05"

	Cost         *decimal.Decimal `json:"cost,omitempty"`
	PretaxAmount *decimal.Decimal `json:"pretax_amount,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`

	Currency    *string `json:"currency,omitempty"`
	ProductName *string `json:"product_name,omitempty"`
	Product     *string `json:"product,omitempty"`
}

// Item is a resolved billing row.
type Item struct {
	Date     time.Time
	Amount   decimal.Decimal
	Currency string
	Product  string
	Provider string
}

// ErrNoDate is returned for rows that carry no usable date field.
var ErrNoDate = errors.New("line item has no date")

// Resolve picks the first present date and amount field. A missing amount
// counts as zero; a missing currency falls back to defaultCurrency.
func (li LineItem) Resolve(defaultCurrency string) (Item, error) {
	raw := firstString(li.Date, li.BillingDate, li.PayTime)
	if raw == "" {
		return Item{}, ErrNoDate
	}
	if len(raw) > len(model.DateLayout) {
		raw = raw[:len(model.DateLayout)]
	}
	date, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return Item{}, fmt.Errorf("parsing date %q: %w", raw, err)
	}

	it := Item{
		Date:     date,
		Currency: defaultCurrency,
		Product:  firstString(li.ProductName, li.Product),
	}
	for _, a := range []*decimal.Decimal{li.Cost, li.PretaxAmount, li.Amount} {
		if a != nil {
			it.Amount = *a
			break
		}
	}
	if c := firstString(li.Currency); c != "" {
		it.Currency = c
	}
	return it, nil
}

func firstString(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			if s := strings.TrimSpace(*v); s != "" {
				return s
			}
		}
	}
	return ""
}

// Format identifies an export file layout.
type Format string

const (
	FormatAuto      Format = ""
	FormatJSON      Format = "json"       // array of line items
	FormatJSONL     Format = "jsonl"      // one line item per line
	FormatCSV       Format = "csv"        // header row, then line items
	FormatDailyJSON Format = "daily-json" // {"2024-05-01": 12.5, ...}
)

// DiscoveredFile is a billing export found on disk.
type DiscoveredFile struct {
	Path     string
	Provider string
	Format   Format
	Currency string // default currency for rows that carry none
}
