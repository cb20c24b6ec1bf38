package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/pipeline"
)

var flagThreshold float64

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "List days whose cost z-score exceeds a threshold",
	RunE:  runAnomalies,
}

func init() {
	anomaliesCmd.Flags().Float64VarP(&flagThreshold, "threshold", "t", 0, "Z-score threshold (default from config)")
	rootCmd.AddCommand(anomaliesCmd)
}

func anomalyThreshold() (float64, error) {
	t := flagThreshold
	if t == 0 {
		t = appCfg.Anomaly.Threshold
	}
	if t < 0 {
		return 0, fmt.Errorf("--threshold must not be negative, got %g", t)
	}
	return t, nil
}

// anomaliesOutput is the JSON shape of the anomalies command.
type anomaliesOutput struct {
	pipeline.Status
	Threshold float64 `json:"threshold"`
	Anomalies any     `json:"anomalies"`
}

func runAnomalies(_ *cobra.Command, _ []string) error {
	threshold, err := anomalyThreshold()
	if err != nil {
		return fail(err)
	}
	sel, err := loadSelection()
	if err != nil {
		return fail(err)
	}

	found, err := newEngine().DetectAnomalies(sel.Series, threshold)
	if err != nil {
		return fail(err)
	}
	rounded := pipeline.RoundAnomalies(found)
	out := anomaliesOutput{Status: pipeline.Status{Success: true}, Threshold: threshold, Anomalies: rounded}
	archiveRun("anomalies", sel, "", fmt.Sprintf("%d anomalies at %.1fσ", len(found), threshold), out)

	if done, err := emit(out); done {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(title("COST ANOMALIES", sel)))
	fmt.Println()

	if len(rounded) == 0 {
		fmt.Printf("  No days beyond %.1fσ in %d days of history.\n\n", threshold, len(sel.Series))
		return nil
	}

	rows := make([][]string, 0, len(rounded))
	for _, a := range rounded {
		rows = append(rows, []string{
			a.Date,
			weekday(a.Date),
			cli.FormatCost(a.Cost),
			cli.FormatZScore(a.ZScore),
			cli.StyleAnomaly(a.Status),
		})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Date", "Day", "Cost", "Z-Score", "Status"},
		Rows:    rows,
	}))
	fmt.Printf("\n  %s\n\n", cli.Muted(fmt.Sprintf("%d of %d days beyond %.1fσ", len(rounded), len(sel.Series), threshold)))
	return nil
}
