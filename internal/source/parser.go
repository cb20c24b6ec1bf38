// Package source discovers and parses cloud billing export files.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseResult holds the output of parsing a single export file.
type ParseResult struct {
	File        DiscoveredFile
	Items       []Item
	ParseErrors int
	Err         error
}

// ParseFile reads an export file into resolved items. Rows that fail to
// resolve are counted in ParseErrors and skipped; I/O and structural
// failures are reported in Err.
func ParseFile(df DiscoveredFile) ParseResult {
	f, err := os.Open(df.Path)
	if err != nil {
		return ParseResult{File: df, Err: err}
	}
	defer func() { _ = f.Close() }()

	res := Parse(f, df)
	res.File = df
	return res
}

// Parse reads export data in the layout df.Format describes.
func Parse(r io.Reader, df DiscoveredFile) ParseResult {
	format := df.Format
	if format == FormatAuto {
		format = FormatFromPath(df.Path)
	}
	var (
		raws []LineItem
		bad  int
		err  error
	)
	switch format {
	case FormatCSV:
		raws, bad, err = readCSV(r)
	case FormatJSONL:
		raws, bad, err = readJSONL(r)
	case FormatJSON, FormatDailyJSON:
		raws, err = readJSON(r)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return ParseResult{Err: fmt.Errorf("parsing %s: %w", df.Path, err)}
	}

	res := ParseResult{ParseErrors: bad, Items: make([]Item, 0, len(raws))}
	for _, li := range raws {
		it, err := li.Resolve(df.Currency)
		if err != nil {
			res.ParseErrors++
			continue
		}
		it.Provider = df.Provider
		res.Items = append(res.Items, it)
	}
	return res
}

// readJSON accepts either an array of line items or a date→cost object.
func readJSON(r io.Reader) ([]LineItem, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '{' {
		var daily map[string]decimal.Decimal
		if err := json.Unmarshal(data, &daily); err != nil {
			return nil, err
		}
		out := make([]LineItem, 0, len(daily))
		for date, cost := range daily {
			out = append(out, LineItem{Date: &date, Cost: &cost})
		}
		return out, nil
	}

	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func readJSONL(r io.Reader) ([]LineItem, int, error) {
	var (
		items []LineItem
		bad   int
	)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var li LineItem
		if err := json.Unmarshal(line, &li); err != nil {
			bad++
			continue
		}
		items = append(items, li)
	}
	return items, bad, scanner.Err()
}

var csvColumns = map[string]string{
	"date":          "date",
	"billing_date":  "billing_date",
	"pay_time":      "pay_time",
	"cost":          "cost",
	"pretax_amount": "pretax_amount",
	"amount":        "amount",
	"currency":      "currency",
	"product_name":  "product_name",
	"product":       "product",
}

func readCSV(r io.Reader) ([]LineItem, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name, ok := csvColumns[key]; ok {
			cols[name] = i
		}
	}

	var (
		items []LineItem
		bad   int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				bad++
				continue
			}
			return nil, bad, err
		}
		li, ok := csvItem(rec, cols)
		if !ok {
			bad++
			continue
		}
		items = append(items, li)
	}
	return items, bad, nil
}

func csvItem(rec []string, cols map[string]int) (LineItem, bool) {
	field := func(name string) *string {
		i, ok := cols[name]
		if !ok || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
			return nil
		}
		v := strings.TrimSpace(rec[i])
		return &v
	}
	money := func(name string) (*decimal.Decimal, bool) {
		s := field(name)
		if s == nil {
			return nil, true
		}
		d, err := decimal.NewFromString(strings.ReplaceAll(*s, ",", ""))
		if err != nil {
			return nil, false
		}
		return &d, true
	}

	li := LineItem{
		Date:        field("date"),
		BillingDate: field("billing_date"),
		PayTime:     field("pay_time"),
		Currency:    field("currency"),
		ProductName: field("product_name"),
		Product:     field("product"),
	}
	var ok bool
	if li.Cost, ok = money("cost"); !ok {
		return li, false
	}
	if li.PretaxAmount, ok = money("pretax_amount"); !ok {
		return li, false
	}
	if li.Amount, ok = money("amount"); !ok {
		return li, false
	}
	return li, true
}
