package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify each day as high, normal or low spend",
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(_ *cobra.Command, _ []string) error {
	sel, err := loadSelection()
	if err != nil {
		return fail(err)
	}

	a, err := newEngine().Analyze(sel.Series)
	if err != nil {
		return fail(err)
	}
	out := pipeline.AnalysisSection{Status: pipeline.Status{Success: true}, Analysis: pipeline.RoundAnalysis(a)}
	archiveRun("analysis", sel, "", levelHeadline(a), out)

	if done, err := emit(out); done {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title("DAILY ANALYSIS", sel)))
	fmt.Println()

	rows := make([][]string, 0, len(out.Records))
	for _, r := range out.Records {
		dev := cli.FormatSignedPercent(r.DeviationPct)
		if r.DeviationUndefined {
			dev = cli.Muted("n/a")
		}
		rows = append(rows, []string{
			r.Date,
			weekday(r.Date),
			cli.FormatCost(r.Cost),
			cli.StyleLevel(r.Level),
			dev,
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Cost", "Level", "vs Mean"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Print(renderStats(out.Stats))
	fmt.Println()
	return nil
}

func renderStats(s model.CostStats) string {
	return cli.RenderKV([][2]string{
		{"Days", cli.FormatNumber(int64(s.TotalDays))},
		{"Mean", cli.FormatCost(s.Mean)},
		{"Median", cli.FormatCost(s.Median)},
		{"Std dev", cli.FormatCost(s.Std)},
		{"Min", cli.FormatCost(s.Min)},
		{"Max", cli.FormatCost(s.Max)},
	})
}

func levelHeadline(a model.Analysis) string {
	var high, low int
	for _, r := range a.Records {
		switch r.Level {
		case model.LevelHigh:
			high++
		case model.LevelLow:
			low++
		}
	}
	return fmt.Sprintf("%d high, %d low of %d days", high, low, len(a.Records))
}

func weekday(date string) string {
	t, err := parseDate(date)
	if err != nil {
		return ""
	}
	return cli.FormatDayOfWeek((int(t.Weekday()) + 6) % 7)
}
