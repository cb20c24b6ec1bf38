package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/pipeline"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Analysis, forecast, anomalies and budget in one report",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().IntVar(&flagDaysAhead, "days-ahead", 0, "Days to predict (default from config)")
	reportCmd.Flags().StringVarP(&flagMethod, "method", "m", "", "Forecast method (default from config)")
	reportCmd.Flags().Float64VarP(&flagThreshold, "threshold", "t", 0, "Anomaly z-score threshold (default from config)")
	reportCmd.Flags().Float64VarP(&flagBudget, "budget", "b", 0, "Daily budget (default [budget] daily in config)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	daysAhead, method, err := forecastParams()
	if err != nil {
		return fail(err)
	}
	threshold, err := anomalyThreshold()
	if err != nil {
		return fail(err)
	}
	sel, err := loadSelection()
	if err != nil {
		return fail(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	rep, err := pipeline.BuildReport(ctx, newEngine(), sel.Series, pipeline.Request{
		Provider:    sel.Provider,
		Range:       sel.Range,
		DaysAhead:   daysAhead,
		Method:      method,
		Threshold:   threshold,
		DailyBudget: dailyBudget(cmd),
	})
	if err != nil {
		return fail(err)
	}
	rep.Currency = appCfg.Currency.Base
	out := rep.Rounded()
	archiveRun("report", sel, method,
		fmt.Sprintf("trend %s, %d anomalies", out.Predictions.Stats.Trend, len(out.Anomalies)), out)

	if done, err := emit(out); done {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title("COST REPORT", sel)))
	fmt.Println()
	fmt.Print(cli.RenderKV([][2]string{
		{"Total cost", cli.FormatCost(out.BillingSummary.TotalCost)},
		{"Days", cli.FormatNumber(int64(out.BillingSummary.DaysCount))},
		{"Currency", out.Currency},
	}))

	fmt.Printf("\n  %s\n", cli.Muted("STATISTICS"))
	if out.DailyAnalysis.Success {
		fmt.Print(renderStats(out.DailyAnalysis.Stats))
		fmt.Printf("  %s\n", cli.Muted(levelHeadline(out.DailyAnalysis.Analysis)))
	} else {
		fmt.Printf("  %s\n", out.DailyAnalysis.Message)
	}

	fmt.Printf("\n  %s\n", cli.Muted("FORECAST"))
	if out.Predictions.Success {
		fmt.Print(renderForecastStats(out.Predictions.Stats))
	} else {
		fmt.Printf("  %s\n", out.Predictions.Message)
	}

	fmt.Printf("\n  %s\n", cli.Muted(fmt.Sprintf("ANOMALIES (%.1fσ)", threshold)))
	if len(out.Anomalies) == 0 {
		fmt.Println("  none")
	}
	for _, a := range out.Anomalies {
		fmt.Printf("  %s  %s  %s  %s\n", a.Date, cli.FormatCost(a.Cost), cli.FormatZScore(a.ZScore), cli.StyleAnomaly(a.Status))
	}

	if out.Budget != nil {
		fmt.Printf("\n  %s\n", cli.Muted("BUDGET"))
		if out.Budget.Success {
			fmt.Print(renderBudgetSummary(out.Budget.Summary))
		} else {
			fmt.Printf("  %s\n", out.Budget.Message)
		}
	}
	fmt.Println()
	return nil
}
