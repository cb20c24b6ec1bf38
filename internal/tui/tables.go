package tui

import (
	"sort"
	"time"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/source"
	"github.com/theirongolddev/costcast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// Rows of chrome above each tab's table (cards, chart, table header).
var tableOverhead = [len(tabNames)]int{
	tabOverview:  19,
	tabAnalysis:  9,
	tabForecast:  10,
	tabAnomalies: 6,
	tabBudget:    9,
}

func newTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(5),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	t := theme.Active
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Foreground(t.TextMuted).
		Bold(true)
	s.Cell = s.Cell.Foreground(t.TextPrimary)
	s.Selected = s.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(false)
	return s
}

func restyled(tables [len(tabNames)]table.Model) [len(tabNames)]table.Model {
	for i := range tables {
		tables[i].SetStyles(tableStyles())
	}
	return tables
}

func (a *App) resizeTables() {
	for i := range a.tables {
		h := a.contentHeight() - tableOverhead[i]
		if h < 3 {
			h = 3
		}
		a.tables[i].SetHeight(h)
	}
}

// setTable swaps columns and rows. Rows are cleared first so the table never
// renders rows against a column set of a different length.
func setTable(t *table.Model, cols []table.Column, rows []table.Row) {
	t.SetRows(nil)
	t.SetColumns(cols)
	t.SetRows(rows)
	if t.Cursor() >= len(rows) {
		t.SetCursor(0)
	}
}

// rebuildTables refreshes every tab's table from the current report.
func (a *App) rebuildTables() {
	rep := a.report
	if rep == nil {
		for i := range a.tables {
			setTable(&a.tables[i], nil, nil)
		}
		return
	}

	setTable(&a.tables[tabOverview], []table.Column{
		{Title: "Provider", Width: 18},
		{Title: "Cost", Width: 14},
		{Title: "Share", Width: 8},
		{Title: "Days", Width: 6},
	}, a.providerRows())

	analysis := make([]table.Row, 0, len(rep.DailyAnalysis.Records))
	for _, r := range rep.DailyAnalysis.Records {
		dev := cli.FormatSignedPercent(r.DeviationPct)
		if r.DeviationUndefined {
			dev = "n/a"
		}
		analysis = append(analysis, table.Row{r.Date, weekday(r.Date), cli.FormatCost(r.Cost), levelLabel(string(r.Level)), dev})
	}
	setTable(&a.tables[tabAnalysis], []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Day", Width: 5},
		{Title: "Cost", Width: 12},
		{Title: "Level", Width: 10},
		{Title: "Deviation", Width: 10},
	}, analysis)

	forecast := make([]table.Row, 0, len(rep.Predictions.Predictions))
	for _, p := range rep.Predictions.Predictions {
		forecast = append(forecast, table.Row{p.Date, weekday(p.Date), cli.FormatCost(p.PredictedCost)})
	}
	setTable(&a.tables[tabForecast], []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Day", Width: 5},
		{Title: "Predicted", Width: 12},
	}, forecast)

	anomalies := make([]table.Row, 0, len(rep.Anomalies))
	for _, r := range rep.Anomalies {
		anomalies = append(anomalies, table.Row{r.Date, weekday(r.Date), cli.FormatCost(r.Cost), cli.FormatZScore(r.ZScore), levelLabel(string(r.Status))})
	}
	setTable(&a.tables[tabAnomalies], []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Day", Width: 5},
		{Title: "Cost", Width: 12},
		{Title: "Z-Score", Width: 9},
		{Title: "Status", Width: 10},
	}, anomalies)

	var budget []table.Row
	if rep.Budget != nil {
		for _, r := range rep.Budget.Records {
			budget = append(budget, table.Row{
				r.Date,
				cli.FormatCost(r.Cost),
				cli.FormatCost(r.Baseline),
				cli.FormatDelta(r.Difference),
				cli.FormatSignedPercent(r.DifferencePct),
				levelLabel(string(r.Status)),
			})
		}
	}
	setTable(&a.tables[tabBudget], []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Cost", Width: 12},
		{Title: "Budget", Width: 12},
		{Title: "Diff", Width: 12},
		{Title: "Diff %", Width: 9},
		{Title: "Status", Width: 14},
	}, budget)

	a.resizeTables()
}

// providerRows breaks the selected window down by provider, most expensive first.
func (a *App) providerRows() []table.Row {
	if a.data == nil {
		return nil
	}
	type share struct {
		name string
		cost float64
		days int
	}
	rng := source.LastNDays(a.opts.Now(), a.opts.Days)
	var shares []share
	var total float64
	for _, name := range a.data.ProviderNames() {
		s := source.FilterRange(a.data.Providers[name], rng)
		if len(s) == 0 {
			continue
		}
		c := s.Total()
		total += c
		shares = append(shares, share{name: name, cost: c, days: len(s)})
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].cost > shares[j].cost })

	rows := make([]table.Row, 0, len(shares))
	for _, s := range shares {
		pct := 0.0
		if total > 0 {
			pct = s.cost / total * 100
		}
		rows = append(rows, table.Row{s.name, cli.FormatCost(s.cost), cli.FormatPercent(pct), cli.FormatNumber(int64(s.days))})
	}
	return rows
}

// levelLabel prefixes a level or status with a direction marker.
func levelLabel(level string) string {
	switch level {
	case string(model.LevelHigh), string(model.OverBudget):
		return "▲ " + level
	case string(model.LevelLow):
		return "▼ " + level
	default:
		return "● " + level
	}
}

func weekday(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return ""
	}
	return cli.FormatDayOfWeek((int(t.Weekday()) + 6) % 7)
}
