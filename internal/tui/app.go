// Package tui provides the interactive Bubble Tea dashboard for costcast.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/source"
	"github.com/theirongolddev/costcast/internal/tui/components"
	"github.com/theirongolddev/costcast/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Tab indices, in tab bar order.
const (
	tabOverview = iota
	tabAnalysis
	tabForecast
	tabAnomalies
	tabBudget
)

// Options configures the dashboard.
type Options struct {
	Load            pipeline.LoadOptions
	Engine          engine.Options
	Provider        string
	Days            int
	DaysAhead       int
	Method          model.Method
	Threshold       float64
	Budget          *float64
	AutoRefresh     bool
	RefreshInterval time.Duration

	// Config is the loaded configuration; with NeedSetup the first-run form
	// edits it and saves it to ConfigPath.
	Config     config.Config
	ConfigPath string
	NeedSetup  bool

	Now func() time.Time
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// DataLoadedMsg is sent when the initial load finishes.
type DataLoadedMsg struct {
	Data     *pipeline.LoadResult
	LoadTime time.Duration
	Err      error
}

// RefreshDataMsg is sent when a background reload finishes.
type RefreshDataMsg struct {
	Data     *pipeline.LoadResult
	LoadTime time.Duration
	Err      error
}

// ReportMsg carries the engine results for one selection.
type ReportMsg struct {
	Seq    int
	Series model.DailyCostSeries
	Report *pipeline.Report
	Err    error
}

// App is the root Bubble Tea model.
type App struct {
	opts   Options
	engine *engine.Engine

	// Data
	data     *pipeline.LoadResult
	loaded   bool
	loadTime time.Duration
	loadErr  error

	// Selection
	providers   []string
	providerIdx int
	methodIdx   int
	threshold   float64

	// Results for the current selection
	series      model.DailyCostSeries
	fingerprint uint64
	report      *pipeline.Report
	reportErr   error
	computing   bool
	seq         int

	// Auto-refresh state
	autoRefresh bool
	lastRefresh time.Time
	refreshing  bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	tables    [len(tabNames)]table.Model

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	setupErr  error
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

var tabNames = [...]string{"Overview", "Analysis", "Forecast", "Anomalies", "Budget"}

var thresholds = []float64{1.5, 2, 2.5, 3}

const (
	minTerminalWidth = 80
	maxContentWidth  = 180
	minContentHeight = 5
	minRefresh       = 10 * time.Second
)

// NewApp creates a new dashboard model.
func NewApp(opts Options) App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Days <= 0 {
		opts.Days = 30
	}
	if opts.DaysAhead <= 0 {
		opts.DaysAhead = 7
	}
	if opts.Method == "" {
		opts.Method = model.MethodEnsemble
	}
	if opts.Threshold <= 0 {
		opts.Threshold = 2
	}
	if opts.RefreshInterval < minRefresh {
		opts.RefreshInterval = 30 * time.Second
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	a := App{
		opts:        opts,
		engine:      engine.New(opts.Engine),
		threshold:   opts.Threshold,
		autoRefresh: opts.AutoRefresh,
		needSetup:   opts.NeedSetup,
		spinner:     sp,
		loadSub:     make(chan tea.Msg, 1),
	}
	for i, m := range model.Methods {
		if m == opts.Method {
			a.methodIdx = i
		}
	}
	for i := range a.tables {
		a.tables[i] = newTable(nil)
	}
	return a
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Load, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

func (a App) provider() string {
	if len(a.providers) == 0 {
		return pipeline.AllProviders
	}
	return a.providers[a.providerIdx]
}

func (a App) method() model.Method {
	return model.Methods[a.methodIdx]
}

// selectSeries applies the provider and day-window filters to the loaded data.
func (a App) selectSeries() (model.DailyCostSeries, model.DateRange, error) {
	rng := source.LastNDays(a.opts.Now(), a.opts.Days)
	all, err := a.data.Series(a.provider())
	if err != nil {
		return nil, rng, err
	}
	return source.FilterRange(all, rng), rng, nil
}

// recompute starts an engine run for the current selection. Results for an
// older selection are dropped when they arrive.
func (a *App) recompute() tea.Cmd {
	if a.data == nil {
		return nil
	}
	a.seq++
	series, rng, err := a.selectSeries()
	if err == nil && len(series) == 0 {
		err = fmt.Errorf("%w (%s, %s)", pipeline.ErrNoBillingData, a.provider(), rng)
	}
	if err != nil {
		a.series, a.report, a.reportErr, a.computing = nil, nil, err, false
		a.rebuildTables()
		return nil
	}

	a.computing = true
	req := pipeline.Request{
		Provider:    a.provider(),
		Range:       rng,
		DaysAhead:   a.opts.DaysAhead,
		Method:      a.method(),
		Threshold:   a.threshold,
		DailyBudget: a.opts.Budget,
	}
	return computeCmd(a.engine, a.seq, series, req)
}

func computeCmd(eng *engine.Engine, seq int, series model.DailyCostSeries, req pipeline.Request) tea.Cmd {
	return func() tea.Msg {
		rep, err := pipeline.BuildReport(context.Background(), eng, series, req)
		return ReportMsg{Seq: seq, Series: series, Report: rep, Err: err}
	}
}

func (a *App) setData(data *pipeline.LoadResult) {
	want := a.provider()
	if a.data == nil && a.opts.Provider != "" {
		want = strings.ToLower(a.opts.Provider)
	}
	a.data = data
	a.providers = append([]string{pipeline.AllProviders}, data.ProviderNames()...)
	a.providerIdx = 0
	for i, p := range a.providers {
		if p == want {
			a.providerIdx = i
		}
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		a.resizeTables()
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.tables[a.activeTab].MoveUp(1)
		case tea.MouseButtonWheelDown:
			a.tables[a.activeTab].MoveDown(1)
		case tea.MouseButtonLeft:
			if msg.Y == 0 && msg.Action == tea.MouseActionPress {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.loadErr = msg.Err
		a.lastRefresh = a.opts.Now()
		var cmd tea.Cmd
		if msg.Err == nil {
			a.setData(msg.Data)
			cmd = a.recompute()
		} else {
			a.reportErr = msg.Err
		}

		if a.needSetup {
			vals := NewSetupValues(a.opts.Config)
			a.setupVals = &vals
			sources := 0
			if msg.Data != nil {
				sources = msg.Data.TotalFiles
			}
			a.setupForm = NewSetupForm(sources, a.opts.Load.DataDir, a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, tea.Batch(cmd, a.setupForm.Init())
		}
		return a, cmd

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = a.opts.Now()
		if msg.Err != nil {
			a.loadErr = msg.Err
			return a, nil
		}
		a.loadErr = nil
		a.loadTime = msg.LoadTime
		a.setData(msg.Data)
		if series, _, err := a.selectSeries(); err == nil && pipeline.Fingerprint(series) == a.fingerprint {
			return a, nil
		}
		return a, a.recompute()

	case ReportMsg:
		if msg.Seq != a.seq {
			return a, nil
		}
		a.computing = false
		a.series = msg.Series
		a.fingerprint = pipeline.Fingerprint(msg.Series)
		a.report = msg.Report
		a.reportErr = msg.Err
		a.rebuildTables()
		return a, nil

	case spinner.TickMsg:
		if !a.loaded {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.autoRefresh && !a.refreshing &&
			a.opts.Now().Sub(a.lastRefresh) >= a.opts.RefreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts.Load))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the setup form (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// First-run setup intercepts all keys
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	if tab := components.TabIdxByKey(key); tab >= 0 {
		a.activeTab = tab
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(tabNames)) % len(tabNames)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(tabNames)
		return a, nil
	case "p":
		if len(a.providers) > 1 {
			a.providerIdx = (a.providerIdx + 1) % len(a.providers)
			return a, a.recompute()
		}
		return a, nil
	case "m":
		a.methodIdx = (a.methodIdx + 1) % len(model.Methods)
		return a, a.recompute()
	case "t":
		a.threshold = nextThreshold(a.threshold)
		return a, a.recompute()
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.opts.Load)
		}
		return a, nil
	case "R":
		a.autoRefresh = !a.autoRefresh
		return a, nil
	}

	var cmd tea.Cmd
	a.tables[a.activeTab], cmd = a.tables[a.activeTab].Update(msg)
	return a, cmd
}

func nextThreshold(current float64) float64 {
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	return thresholds[0]
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.setupErr = a.saveSetup()
		a.needSetup = false
		a.setupForm = nil
		if a.data == nil {
			return a, nil
		}
		return a, a.recompute()
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// saveSetup applies the form answers to the running dashboard and persists them.
func (a *App) saveSetup() error {
	cfg := a.opts.Config
	if err := a.setupVals.Apply(&cfg); err != nil {
		return err
	}
	a.opts.Config = cfg
	a.opts.Days = cfg.General.DefaultDays
	a.opts.DaysAhead = cfg.Forecast.DaysAhead
	a.opts.Budget = cfg.Budget.Daily
	for i, m := range model.Methods {
		if string(m) == cfg.Forecast.Method {
			a.methodIdx = i
		}
	}
	theme.SetActive(cfg.Appearance.Theme)
	a.tables = restyled(a.tables)

	if a.opts.ConfigPath == "" {
		return config.Save(cfg)
	}
	return config.SaveTo(a.opts.ConfigPath, cfg)
}

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

// contentHeight is the height left for tab content below the header and
// above the status bar.
func (a App) contentHeight() int {
	h := a.height - 3
	if h < minContentHeight {
		h = minContentHeight
	}
	return h
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  costcast needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)

	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ costcast"))
	b.WriteString(subtitleStyle.Render(" · Daily Cost Forecasts"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := min(40, a.width-30)
		barW = max(barW, 20)
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Parsing billing exports\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(a.spinner.View())
		b.WriteString(subtitleStyle.Render(" Discovering billing exports..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)

	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	section := func(b *strings.Builder, name string, bindings [][2]string) {
		b.WriteString(sectionStyle.Render(name))
		b.WriteString("\n")
		for _, bind := range bindings {
			fmt.Fprintf(b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				descStyle.Render(bind[1]))
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n\n")
	section(&b, "Navigation", [][2]string{
		{"o a f n b", "Jump to tab"},
		{"← →", "Previous / Next tab"},
		{"j k", "Move through table rows"},
	})
	b.WriteString("\n")
	section(&b, "Selection", [][2]string{
		{"p", "Next provider"},
		{"m", "Next forecast method"},
		{"t", "Next anomaly threshold"},
	})
	b.WriteString("\n")
	section(&b, "Actions", [][2]string{
		{"r", "Reload billing exports"},
		{"R", "Toggle auto-refresh"},
		{"?", "Toggle help"},
		{"q", "Quit"},
	})
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	contentH := a.contentHeight()

	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	filter := pillStyle.Render(" ") +
		accentStyle.Render(a.provider()) +
		pillStyle.Render(" │ ") + accentStyle.Render(fmt.Sprintf("%dd", a.opts.Days)) +
		pillStyle.Render(" │ ") + accentStyle.Render(string(a.method())) +
		pillStyle.Render(fmt.Sprintf(" +%dd", a.opts.DaysAhead)) +
		pillStyle.Render(" │ ") + accentStyle.Render(fmt.Sprintf("%.1fσ", a.threshold))
	if a.opts.Budget != nil {
		filter += pillStyle.Render(" │ budget ") + accentStyle.Render(cli.FormatCost(*a.opts.Budget))
	}
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	sources := 0
	if a.data != nil {
		sources = a.data.TotalFiles
	}
	err := a.loadErr
	if err == nil {
		err = a.setupErr
	}
	statusBar := components.RenderStatusBar(w, components.StatusInfo{
		Sources:     sources,
		LoadTime:    a.loadTime,
		Refreshing:  a.refreshing,
		AutoRefresh: a.autoRefresh,
		Computing:   a.computing,
		Err:         err,
	})

	var content string
	switch {
	case a.report == nil && a.reportErr != nil:
		content = a.renderMessage(cw, "No results", a.reportErr.Error())
	case a.report == nil:
		content = a.renderMessage(cw, "Working", a.spinner.View()+" running the cost engine...")
	default:
		switch a.activeTab {
		case tabOverview:
			content = a.renderOverviewTab(cw)
		case tabAnalysis:
			content = a.renderAnalysisTab(cw)
		case tabForecast:
			content = a.renderForecastTab(cw)
		case tabAnomalies:
			content = a.renderAnomaliesTab(cw)
		case tabBudget:
			content = a.renderBudgetTab(cw)
		}
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) renderMessage(cw int, title, body string) string {
	return components.ContentCard(title, body, cw)
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd starts the loader in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(opts pipeline.LoadOptions, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()
			// Non-blocking send: a dropped update is superseded by the next one.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			data, err := pipeline.Load(opts, progressFn)
			sub <- DataLoadedMsg{Data: data, LoadTime: time.Since(start), Err: err}
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads billing data in the background (no progress UI).
func refreshDataCmd(opts pipeline.LoadOptions) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		data, err := pipeline.Load(opts, nil)
		return RefreshDataMsg{Data: data, LoadTime: time.Since(start), Err: err}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}
