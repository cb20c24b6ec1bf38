package components

import (
	"fmt"
	"time"

	"github.com/theirongolddev/costcast/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the status bar reports about the loaded data.
type StatusInfo struct {
	Sources     int
	LoadTime    time.Duration
	Refreshing  bool
	AutoRefresh bool
	Computing   bool
	Err         error
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	barStyle := lipgloss.NewStyle().Background(t.Surface).Width(width)
	hintStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	infoStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	left := " " + keyStyle.Render("[?]") + hintStyle.Render("help ") +
		keyStyle.Render("[p]") + hintStyle.Render("rovider ") +
		keyStyle.Render("[m]") + hintStyle.Render("ethod ") +
		keyStyle.Render("[r]") + hintStyle.Render("efresh ") +
		keyStyle.Render("[q]") + hintStyle.Render("uit")

	var right string
	switch {
	case info.Err != nil:
		right = lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Render(truncate(info.Err.Error(), width/2))
	case info.Refreshing:
		right = lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render("refreshing…")
	case info.Computing:
		right = lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Render("computing…")
	default:
		right = infoStyle.Render(fmt.Sprintf("%d sources · %.1fs", info.Sources, info.LoadTime.Seconds()))
	}
	if info.AutoRefresh {
		right = lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface).Render("● ") + right
	}
	right += infoStyle.Render(" ")

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Background(t.Surface).Width(gap).Render("")

	return barStyle.Render(left + spacer + right)
}

func truncate(s string, limit int) string {
	if limit <= 1 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
