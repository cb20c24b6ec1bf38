package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers collected by the setup form.
type SetupValues struct {
	ExportDir string
	Days      int
	DaysAhead int
	Method    string
	Budget    string
	Theme     string
}

// NewSetupValues seeds the form from an existing config.
func NewSetupValues(cfg config.Config) SetupValues {
	v := SetupValues{
		ExportDir: cfg.General.ExportDir,
		Days:      cfg.General.DefaultDays,
		DaysAhead: cfg.Forecast.DaysAhead,
		Method:    cfg.Forecast.Method,
		Theme:     cfg.Appearance.Theme,
	}
	if cfg.Budget.Daily != nil {
		v.Budget = strconv.FormatFloat(*cfg.Budget.Daily, 'f', -1, 64)
	}
	if v.Theme == "" {
		v.Theme = theme.FlexokiDark.Name
	}
	return v
}

// NewSetupForm builds the first-run form. sources is the number of billing
// files already found, shown in the welcome note.
func NewSetupForm(sources int, dir string, vals *SetupValues) *huh.Form {
	welcome := "Let's set up a few things."
	if sources > 0 {
		welcome = fmt.Sprintf("Found %d billing exports in %s.\n%s", sources, dir, welcome)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to costcast").
				Description(welcome),
			huh.NewInput().
				Title("Billing export directory").
				Description("Scanned recursively for CSV and JSON cost exports.").
				Placeholder("~/billing").
				Value(&vals.ExportDir).
				Validate(validateExportDir),
		),
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Default time range").
				Options(
					huh.NewOption("7 days", 7),
					huh.NewOption("30 days", 30),
					huh.NewOption("90 days", 90),
					huh.NewOption("365 days", 365),
				).
				Value(&vals.Days),
			huh.NewSelect[int]().
				Title("Forecast horizon").
				Options(
					huh.NewOption("7 days", 7),
					huh.NewOption("14 days", 14),
					huh.NewOption("30 days", 30),
				).
				Value(&vals.DaysAhead),
			huh.NewSelect[string]().
				Title("Forecast method").
				Options(huh.NewOptions(methodNames()...)...).
				Value(&vals.Method),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Daily budget").
				Description("Leave blank to skip budget tracking.").
				Placeholder("50").
				Value(&vals.Budget).
				Validate(validateBudget),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		),
	).WithTheme(huh.ThemeCatppuccin()).WithShowHelp(true)
}

// Apply copies the answers into cfg.
func (v SetupValues) Apply(cfg *config.Config) error {
	if err := validateBudget(v.Budget); err != nil {
		return err
	}
	cfg.General.ExportDir = expandHome(strings.TrimSpace(v.ExportDir))
	if v.Days > 0 {
		cfg.General.DefaultDays = v.Days
	}
	if v.DaysAhead > 0 {
		cfg.Forecast.DaysAhead = v.DaysAhead
	}
	if slices.Contains(model.Methods, model.Method(v.Method)) {
		cfg.Forecast.Method = v.Method
	}
	if v.Theme != "" {
		cfg.Appearance.Theme = theme.ByName(v.Theme).Name
	}

	cfg.Budget.Daily = nil
	if s := strings.TrimSpace(v.Budget); s != "" {
		b, _ := strconv.ParseFloat(s, 64)
		cfg.Budget.Daily = &b
	}
	return nil
}

func methodNames() []string {
	names := make([]string, len(model.Methods))
	for i, m := range model.Methods {
		names[i] = string(m)
	}
	return names
}

func validateBudget(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	b, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.New("enter a number, e.g. 50 or 12.5")
	}
	if b <= 0 {
		return errors.New("budget must be positive")
	}
	return nil
}

func validateExportDir(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	info, err := os.Stat(expandHome(s))
	if err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
