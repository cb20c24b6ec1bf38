package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/source"
)

var flagTopProducts int

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Daily costs with provider and product breakdown",
	RunE:  runCosts,
}

func init() {
	costsCmd.Flags().IntVar(&flagTopProducts, "top", 10, "Products to list")
	rootCmd.AddCommand(costsCmd)
}

// costsOutput is the JSON shape of the costs command.
type costsOutput struct {
	pipeline.Status
	Provider   string                `json:"provider"`
	DateRange  pipeline.DateRange    `json:"date_range"`
	Currency   string                `json:"currency"`
	DailyCosts model.DailyCostSeries `json:"daily_costs"`
	TotalCost  float64               `json:"total_cost"`
	DaysCount  int                   `json:"days_count"`
	Products   []source.ProductCost  `json:"products"`
}

func runCosts(_ *cobra.Command, _ []string) error {
	sel, err := loadSelection()
	if err != nil {
		return fail(err)
	}

	var items []source.Item
	for _, it := range sel.Data.Items {
		if sel.Provider != pipeline.AllProviders && it.Provider != sel.Provider {
			continue
		}
		if sel.Range.Contains(it.Date) {
			items = append(items, it)
		}
	}
	agg := source.Aggregator{Rates: loadOptions().Rates, Base: appCfg.Currency.Base}
	products := agg.ProductSummary(items)

	daily := make(model.DailyCostSeries, len(sel.Series))
	for d, c := range sel.Series {
		daily[d] = pipeline.Round2(c)
	}
	out := costsOutput{
		Status:     pipeline.Status{Success: true},
		Provider:   sel.Provider,
		Currency:   appCfg.Currency.Base,
		DailyCosts: daily,
		TotalCost:  pipeline.Round2(sel.Series.Total()),
		DaysCount:  len(sel.Series),
		Products:   products,
	}
	if !sel.Range.Start.IsZero() {
		out.DateRange.Start = sel.Range.Start.Format(model.DateLayout)
	}
	if !sel.Range.End.IsZero() {
		out.DateRange.End = sel.Range.End.Format(model.DateLayout)
	}
	if done, err := emit(out); done {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title("DAILY COSTS", sel)))
	fmt.Println()

	dates := sel.Series.Dates()
	peak := 0.0
	for _, d := range dates {
		peak = max(peak, sel.Series[d])
	}
	rows := make([][]string, 0, len(dates))
	for _, d := range dates {
		bar := ""
		if peak > 0 {
			bar = strings.Repeat("█", int(sel.Series[d]/peak*20))
		}
		rows = append(rows, []string{d, weekday(d), cli.FormatCost(sel.Series[d]), cli.Muted(bar)})
	}
	rows = append(rows, []string{"---"})
	rows = append(rows, []string{"TOTAL", "", cli.FormatCost(out.TotalCost), ""})
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Cost", ""},
		Rows:    rows,
	}))

	// Previous period of the same length, when the range is bounded.
	if !sel.Range.Start.IsZero() && !sel.Range.End.IsZero() {
		span := sel.Range.End.Sub(sel.Range.Start)
		prev := model.DateRange{Start: sel.Range.Start.Add(-span), End: sel.Range.Start.AddDate(0, 0, -1)}
		if all, err := sel.Data.Series(sel.Provider); err == nil {
			prevSeries := source.FilterRange(all, prev)
			if len(prevSeries) > 0 && len(sel.Series) > 0 {
				cur := sel.Series.Total() / float64(len(sel.Series))
				before := prevSeries.Total() / float64(len(prevSeries))
				fmt.Printf("\n  %s %s/day  (%s vs previous period)\n",
					cli.Muted("Average"), cli.FormatCost(cur), cli.FormatDelta(cur-before))
			}
		}
	}

	if sel.Provider == pipeline.AllProviders && len(sel.Data.Providers) > 1 {
		fmt.Println()
		provRows := make([][]string, 0, len(sel.Data.Providers))
		for _, name := range sel.Data.ProviderNames() {
			s := source.FilterRange(sel.Data.Providers[name], sel.Range)
			share := ""
			if out.TotalCost > 0 {
				share = cli.FormatPercent(s.Total() / sel.Series.Total() * 100)
			}
			provRows = append(provRows, []string{name, cli.FormatNumber(int64(len(s))), cli.FormatCost(s.Total()), share})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "By Provider",
			Headers: []string{"Provider", "Days", "Cost", "Share"},
			Rows:    provRows,
		}))
	}

	if len(products) > 0 {
		fmt.Println()
		n := min(flagTopProducts, len(products))
		prodRows := make([][]string, 0, n)
		for _, p := range products[:n] {
			prodRows = append(prodRows, []string{p.Provider, p.Product, cli.FormatNumber(int64(p.Items)), cli.FormatCost(p.Cost)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:   "Top Products",
			Headers: []string{"Provider", "Product", "Items", "Cost"},
			Rows:    prodRows,
		}))
	}
	fmt.Println()
	return nil
}
