package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/tui/components"
	"github.com/theirongolddev/costcast/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	rep := a.report
	var b strings.Builder

	avg := 0.0
	if n := rep.BillingSummary.DaysCount; n > 0 {
		avg = rep.BillingSummary.TotalCost / float64(n)
	}

	trend := components.Metric{Label: "Trend", Value: "n/a"}
	if rep.Predictions.Success {
		st := rep.Predictions.Stats
		trend = components.Metric{
			Label: "Trend",
			Value: string(st.Trend),
			Delta: fmt.Sprintf("%s/day next %dd", cli.FormatCost(st.PredictedAvgCost), st.PredictionDays),
			Color: t.LevelColor(string(st.Trend)),
		}
	}

	anomalyColor := t.Green
	if len(rep.Anomalies) > 0 {
		anomalyColor = t.Orange
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Total", Value: cli.FormatCost(rep.BillingSummary.TotalCost), Delta: rep.DateRange.Start + " → " + rep.DateRange.End},
		{Label: "Avg/day", Value: cli.FormatCost(avg)},
		{Label: "Days", Value: cli.FormatNumber(int64(rep.BillingSummary.DaysCount))},
		trend,
		{Label: "Anomalies", Value: strconv.Itoa(len(rep.Anomalies)), Delta: fmt.Sprintf("|z| > %.1f", a.threshold), Color: anomalyColor},
	}, cw))
	b.WriteString("\n")

	dates := a.series.Dates()
	values := make([]float64, 0, len(dates)+len(rep.Predictions.Predictions))
	for _, d := range dates {
		values = append(values, a.series[d])
	}
	for _, p := range rep.Predictions.Predictions {
		dates = append(dates, p.Date)
		values = append(values, p.PredictedCost)
	}
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Daily Cost (%dd + %dd forecast)", a.opts.Days, len(rep.Predictions.Predictions)),
		components.BarChart(components.Chart{
			Values:        values,
			Labels:        chartDateLabels(dates),
			Split:         len(a.series),
			Color:         t.Blue,
			ForecastColor: t.Yellow,
		}, components.CardInnerWidth(cw), 10),
		cw,
	))
	b.WriteString("\n")

	b.WriteString(components.ContentCard("By Provider", a.tables[tabOverview].View(), cw))
	return b.String()
}

// chartDateLabels builds compact X-axis labels for chronological dates.
// First label and month boundaries show the month abbreviation; everything
// else is the day number.
func chartDateLabels(dates []string) []string {
	labels := make([]string, len(dates))
	prevMonth := time.Month(0)
	for i, s := range dates {
		dt, err := time.Parse(model.DateLayout, s)
		if err != nil {
			continue
		}
		switch {
		case i == 0, dt.Month() != prevMonth && i != len(dates)-1:
			labels[i] = dt.Format("Jan")
		default:
			labels[i] = strconv.Itoa(dt.Day())
		}
		prevMonth = dt.Month()
	}
	return labels
}
