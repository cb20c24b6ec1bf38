package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
)

var flagBudget float64

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Compare daily costs against a flat daily budget",
	RunE:  runBudget,
}

func init() {
	budgetCmd.Flags().Float64VarP(&flagBudget, "budget", "b", 0, "Daily budget (default [budget] daily in config)")
	rootCmd.AddCommand(budgetCmd)
}

// dailyBudget returns the --budget flag, the configured budget, or nil.
func dailyBudget(cmd *cobra.Command) *float64 {
	if cmd.Flags().Changed("budget") {
		b := flagBudget
		return &b
	}
	return appCfg.Budget.Daily
}

func runBudget(cmd *cobra.Command, _ []string) error {
	budget := dailyBudget(cmd)
	if budget == nil {
		return fail(errors.New("no daily budget: pass --budget or set [budget] daily in the config"))
	}
	sel, err := loadSelection()
	if err != nil {
		return fail(err)
	}

	b, err := newEngine().CompareBaseline(sel.Series, *budget)
	if err != nil {
		return fail(err)
	}
	out := pipeline.BudgetSection{Status: pipeline.Status{Success: true}, BudgetComparison: pipeline.RoundBudget(b)}
	archiveRun("budget", sel, "", budgetHeadline(b.Summary), out)

	if done, err := emit(out); done {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title("BUDGET", sel)))
	fmt.Println()

	rows := make([][]string, 0, len(out.Records))
	for _, r := range out.Records {
		rows = append(rows, []string{
			r.Date,
			cli.FormatCost(r.Cost),
			cli.FormatCost(r.Baseline),
			cli.FormatDelta(r.Difference),
			cli.FormatSignedPercent(r.DifferencePct),
			cli.StyleBudget(r.Status),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Cost", "Budget", "Diff", "Diff %", "Status"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Print(renderBudgetSummary(out.Summary))
	fmt.Println()
	return nil
}

func renderBudgetSummary(s model.BudgetSummary) string {
	return cli.RenderKV([][2]string{
		{"Total cost", cli.FormatCost(s.TotalCost)},
		{"Total budget", cli.FormatCost(s.TotalBaseline)},
		{"Difference", cli.FormatDelta(s.TotalDifference)},
		{"Over budget", fmt.Sprintf("%d of %d days (%s)", s.OverBudgetDays, s.TotalDays, cli.FormatPercent(s.OverBudgetRate))},
	})
}

func budgetHeadline(s model.BudgetSummary) string {
	return fmt.Sprintf("%d/%d days over budget", s.OverBudgetDays, s.TotalDays)
}
