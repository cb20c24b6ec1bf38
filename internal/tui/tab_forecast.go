package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/tui/components"
	"github.com/theirongolddev/costcast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// sparkDays caps how much history the forecast sparkline shows.
const sparkDays = 60

func (a App) renderForecastTab(cw int) string {
	t := theme.Active
	sec := a.report.Predictions
	if !sec.Success {
		return a.renderMessage(cw, "Forecast", sec.Message)
	}
	st := sec.Stats
	var b strings.Builder

	change := ""
	if st.RecentAvgCost > 0 {
		change = cli.FormatSignedPercent((st.PredictedAvgCost - st.RecentAvgCost) / st.RecentAvgCost * 100)
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Recent avg (7d)", Value: cli.FormatCost(st.RecentAvgCost)},
		{Label: "Predicted avg", Value: cli.FormatCost(st.PredictedAvgCost), Delta: change},
		{Label: "Trend", Value: string(st.Trend), Color: t.LevelColor(string(st.Trend))},
		{Label: "Method", Value: string(st.Method)},
		{Label: "History", Value: fmt.Sprintf("%dd", st.HistoricalDays), Delta: fmt.Sprintf("+%dd ahead", st.PredictionDays)},
	}, cw))
	b.WriteString("\n")

	dates := a.series.Dates()
	if len(dates) > sparkDays {
		dates = dates[len(dates)-sparkDays:]
	}
	history := make([]float64, len(dates))
	for i, d := range dates {
		history[i] = a.series[d]
	}
	projection := make([]float64, len(sec.Predictions))
	for i, p := range sec.Predictions {
		projection[i] = p.PredictedCost
	}
	legend := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface).
		Render(fmt.Sprintf("last %dd actual │ next %dd predicted", len(history), len(projection)))
	b.WriteString(components.ContentCard("Outlook",
		components.SplitSparkline(history, projection, t.Blue, t.Yellow)+"\n"+legend, cw))
	b.WriteString("\n")

	b.WriteString(components.ContentCard("Predictions", a.tables[tabForecast].View(), cw))
	return b.String()
}
