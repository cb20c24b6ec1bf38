package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/tui"
	"github.com/theirongolddev/costcast/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var flagAutoRefresh time.Duration

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().IntVar(&flagDaysAhead, "days-ahead", 0, "Days to predict (default from config)")
	tuiCmd.Flags().StringVarP(&flagMethod, "method", "m", "", "Initial forecast method (default from config)")
	tuiCmd.Flags().Float64VarP(&flagThreshold, "threshold", "t", 0, "Initial anomaly z-score threshold (default from config)")
	tuiCmd.Flags().Float64VarP(&flagBudget, "budget", "b", 0, "Daily budget (default [budget] daily in config)")
	tuiCmd.Flags().DurationVar(&flagAutoRefresh, "auto-refresh", 0, "Reload billing exports on this interval (0 disables)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	daysAhead, method, err := forecastParams()
	if err != nil {
		return err
	}
	threshold, err := anomalyThreshold()
	if err != nil {
		return err
	}

	theme.SetActive(appCfg.Appearance.Theme)

	// Force TrueColor so background styling always produces ANSI codes;
	// lipgloss may otherwise fall back to the Ascii profile.
	lipgloss.SetColorProfile(termenv.TrueColor)

	// The alt screen owns the terminal.
	log.Logger = zerolog.Nop()

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}

	app := tui.NewApp(tui.Options{
		Load:            loadOptions(),
		Engine:          engineOptions(),
		Provider:        flagProvider,
		Days:            flagDays,
		DaysAhead:       daysAhead,
		Method:          method,
		Threshold:       threshold,
		Budget:          dailyBudget(cmd),
		AutoRefresh:     flagAutoRefresh > 0,
		RefreshInterval: flagAutoRefresh,
		Config:          appCfg,
		ConfigPath:      path,
		NeedSetup:       flagConfig == "" && !config.Exists(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
