package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
)

var (
	flagDaysAhead int
	flagMethod    string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Predict daily costs for the coming days",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().IntVar(&flagDaysAhead, "days-ahead", 0, "Days to predict (default from config)")
	forecastCmd.Flags().StringVarP(&flagMethod, "method", "m", "",
		"ensemble, linear, random_forest or moving_average (default from config)")
	rootCmd.AddCommand(forecastCmd)
}

// forecastParams resolves the horizon and method from flags and config.
func forecastParams() (int, model.Method, error) {
	days := flagDaysAhead
	if days == 0 {
		days = appCfg.Forecast.DaysAhead
	}
	if days < 1 {
		return 0, "", fmt.Errorf("--days-ahead must be at least 1, got %d", days)
	}
	method := strings.ToLower(strings.TrimSpace(flagMethod))
	if method == "" {
		method = appCfg.Forecast.Method
	}
	return days, model.Method(method), nil
}

func runForecast(_ *cobra.Command, _ []string) error {
	daysAhead, method, err := forecastParams()
	if err != nil {
		return fail(err)
	}
	sel, err := loadSelection()
	if err != nil {
		return fail(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	start := time.Now()
	f, err := newEngine().Forecast(ctx, sel.Series, daysAhead, method)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fail(err)
	}
	out := pipeline.ForecastSection{Status: pipeline.Status{Success: true}, Forecast: pipeline.RoundForecast(f)}
	archiveRun("forecast", sel, method, forecastHeadline(f.Stats), out)

	if done, err := emit(out); done {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title("COST FORECAST", sel)))
	fmt.Println()
	fmt.Print(renderForecastStats(out.Stats))
	fmt.Println()

	history := make([]float64, 0, len(sel.Series))
	for _, d := range sel.Series.Dates() {
		history = append(history, sel.Series[d])
	}
	predicted := make([]float64, len(out.Predictions))
	for i, p := range out.Predictions {
		predicted[i] = p.PredictedCost
	}
	fmt.Printf("  %s %s\n", cli.Muted("history "), cli.RenderSparkline(history))
	fmt.Printf("  %s %s\n\n", cli.Muted("forecast"), cli.RenderSparkline(predicted))

	rows := make([][]string, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		rows = append(rows, []string{p.Date, weekday(p.Date), cli.FormatCost(p.PredictedCost)})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Predicted"},
		Rows:    rows,
	}))
	if !flagQuiet {
		fmt.Printf("\n  %s\n", cli.Muted(fmt.Sprintf("trained in %s", time.Since(start).Round(time.Millisecond))))
	}
	fmt.Println()
	return nil
}

func renderForecastStats(s model.ForecastStats) string {
	delta := s.PredictedAvgCost - s.RecentAvgCost
	return cli.RenderKV([][2]string{
		{"Method", string(s.Method)},
		{"History", fmt.Sprintf("%d days", s.HistoricalDays)},
		{"Horizon", fmt.Sprintf("%d days", s.PredictionDays)},
		{"Recent avg (7d)", cli.FormatCost(s.RecentAvgCost)},
		{"Predicted avg", fmt.Sprintf("%s  (%s)", cli.FormatCost(s.PredictedAvgCost), cli.FormatDelta(delta))},
		{"Trend", cli.StyleTrend(s.Trend)},
	})
}

func forecastHeadline(s model.ForecastStats) string {
	return fmt.Sprintf("%s, %.2f/day over %d days", s.Trend, s.PredictedAvgCost, s.PredictionDays)
}
