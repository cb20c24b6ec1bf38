package tui

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/tui/components"
	"github.com/theirongolddev/costcast/internal/tui/theme"
)

func (a App) renderBudgetTab(cw int) string {
	t := theme.Active
	sec := a.report.Budget
	if sec == nil {
		return a.renderMessage(cw, "Budget",
			"No daily budget set. Run `costcast setup` or pass --budget to compare spend against one.")
	}
	if !sec.Success {
		return a.renderMessage(cw, "Budget", sec.Message)
	}
	sum := sec.Summary
	var b strings.Builder

	overColor := t.Green
	if sum.OverBudgetDays > 0 {
		overColor = t.Red
	}
	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Budget/day", Value: cli.FormatCost(*a.opts.Budget)},
		{Label: "Spent", Value: cli.FormatCost(sum.TotalCost), Delta: "of " + cli.FormatCost(sum.TotalBaseline)},
		{Label: "Difference", Value: cli.FormatDelta(sum.TotalDifference), Color: overColor},
		{Label: "Over budget", Value: fmt.Sprintf("%d/%d days", sum.OverBudgetDays, sum.TotalDays), Color: overColor},
	}, cw))
	b.WriteString("\n")

	inner := components.CardInnerWidth(cw)
	barW := inner - 40
	if barW < 10 {
		barW = 10
	}
	bars := components.BudgetBar("Spend", sum.TotalCost, sum.TotalBaseline,
		cli.FormatCost(sum.TotalCost)+" / "+cli.FormatCost(sum.TotalBaseline), 12, barW) + "\n" +
		components.BudgetBar("Days over", float64(sum.OverBudgetDays), float64(sum.TotalDays),
			cli.FormatPercent(sum.OverBudgetRate), 12, barW)
	b.WriteString(components.ContentCard("Utilization", bars, cw))
	b.WriteString("\n")

	b.WriteString(components.ContentCard("Daily Comparison", a.tables[tabBudget].View(), cw))
	return b.String()
}
