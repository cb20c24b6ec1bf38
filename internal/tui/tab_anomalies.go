package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/tui/components"
	"github.com/theirongolddev/costcast/internal/tui/theme"
)

func (a App) renderAnomaliesTab(cw int) string {
	t := theme.Active
	records := a.report.Anomalies

	var high, low int
	for _, r := range records {
		if r.Status == model.AnomalyHigh {
			high++
		} else {
			low++
		}
	}

	var b strings.Builder
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Threshold", Value: fmt.Sprintf("%.1fσ", a.threshold), Delta: "[t] to change"},
		{Label: "Anomalies", Value: strconv.Itoa(len(records))},
		{Label: "Spikes", Value: strconv.Itoa(high), Color: t.Red},
		{Label: "Dips", Value: strconv.Itoa(low), Color: t.Blue},
	}, cw))
	b.WriteString("\n")

	if len(records) == 0 {
		b.WriteString(a.renderMessage(cw, "Anomalies",
			fmt.Sprintf("No day deviates from the mean by more than %.1f standard deviations.", a.threshold)))
		return b.String()
	}
	b.WriteString(components.ContentCard("Anomalous Days", a.tables[tabAnomalies].View(), cw))
	return b.String()
}
