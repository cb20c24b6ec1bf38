package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/tui/components"
	"github.com/theirongolddev/costcast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

func (a App) renderAnalysisTab(cw int) string {
	t := theme.Active
	sec := a.report.DailyAnalysis
	if !sec.Success {
		return a.renderMessage(cw, "Daily Analysis", sec.Message)
	}
	st := sec.Stats
	var b strings.Builder

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Mean", Value: cli.FormatCost(st.Mean)},
		{Label: "Median", Value: cli.FormatCost(st.Median)},
		{Label: "Std dev", Value: cli.FormatCost(st.Std)},
		{Label: "Min", Value: cli.FormatCost(st.Min), Color: t.Blue},
		{Label: "Max", Value: cli.FormatCost(st.Max), Color: t.Red},
	}, cw))
	b.WriteString("\n")

	counts := map[model.Level]int{}
	for _, r := range sec.Records {
		counts[r.Level]++
	}
	muted := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	summary := ""
	for i, l := range []model.Level{model.LevelHigh, model.LevelNormal, model.LevelLow} {
		if i > 0 {
			summary += muted.Render("   ")
		}
		summary += lipgloss.NewStyle().Foreground(t.LevelColor(string(l))).Background(t.Surface).Bold(true).
			Render(fmt.Sprintf("%d %s", counts[l], l))
	}
	summary += muted.Render(fmt.Sprintf("   (band %s to %s)", cli.FormatCost(st.Mean-st.Std), cli.FormatCost(st.Mean+st.Std)))

	b.WriteString(components.ContentCard("Cost Levels", summary+"\n"+a.tables[tabAnalysis].View(), cw))
	return b.String()
}
