package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/costcast/internal/tui/theme"
)

func TestChartTickStep(t *testing.T) {
	cases := map[float64]float64{
		0:    1,
		10:   2,
		47:   5,
		100:  20,
		2500: 500,
	}
	for maxVal, want := range cases {
		if got := chartTickStep(maxVal); got != want {
			t.Errorf("chartTickStep(%v) = %v, want %v", maxVal, got, want)
		}
	}
}

func TestFormatChartLabel(t *testing.T) {
	cases := map[float64]string{
		0.5:  "0.50",
		20:   "20",
		1000: "1k",
		1500: "1.5k",
		2e6:  "2M",
	}
	for v, want := range cases {
		if got := formatChartLabel(v); got != want {
			t.Errorf("formatChartLabel(%v) = %q, want %q", v, got, want)
		}
	}
}

func TestSplitSparklineSharesScale(t *testing.T) {
	theme.SetActive("terminal")
	out := SplitSparkline([]float64{1, 2}, []float64{4}, theme.Active.Accent, theme.Active.Yellow)
	if got := lipgloss.Width(out); got != 3 {
		t.Fatalf("width = %d, want 3", got)
	}
	plain := stripANSI(out)
	if !strings.HasSuffix(plain, "█") {
		t.Errorf("projection peak should be a full block, got %q", plain)
	}
	if strings.HasPrefix(plain, "█") {
		t.Errorf("history should be scaled against the projection peak, got %q", plain)
	}
}

func TestBarChartFallsBackToSparkline(t *testing.T) {
	out := BarChart(Chart{Values: []float64{1, 2, 3}}, 10, 2)
	if lipgloss.Height(out) != 1 {
		t.Errorf("narrow chart should be a one-line sparkline, got %d lines", lipgloss.Height(out))
	}
	if BarChart(Chart{}, 80, 10) != "" {
		t.Error("empty chart should render nothing")
	}
}

func TestBarChartLabels(t *testing.T) {
	out := BarChart(Chart{
		Values: []float64{10, 20, 30, 40},
		Labels: []string{"May", "2", "3", "4"},
		Split:  3,
		Color:  theme.Active.Accent,
	}, 60, 8)
	plain := stripANSI(out)
	if !strings.Contains(plain, "May") {
		t.Errorf("x labels missing:\n%s", plain)
	}
	if !strings.Contains(plain, "└") {
		t.Errorf("x axis missing:\n%s", plain)
	}
}

func stripANSI(s string) string {
	var b strings.Builder
	inEsc := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEsc = true
		case inEsc && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'):
			inEsc = false
		case !inEsc:
			b.WriteRune(r)
		}
	}
	return b.String()
}
