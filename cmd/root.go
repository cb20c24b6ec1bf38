// Package cmd implements the costcast CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/cli"
	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/engine"
	"github.com/theirongolddev/costcast/internal/model"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/source"
	"github.com/theirongolddev/costcast/internal/store"
)

var (
	flagProvider  string
	flagStartDate string
	flagEndDate   string
	flagDays      int
	flagDataDir   string
	flagInputs    []string
	flagJSON      bool
	flagOutput    string
	flagQuiet     bool
	flagNoArchive bool
	flagConfig    string
	flagLogLevel  string
)

// appCfg is loaded once per invocation before any command runs.
var appCfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "costcast",
	Short: "Cloud billing analysis and cost forecasting",
	Long: "Analyze daily cloud spend from billing exports: cost levels, anomalies,\n" +
		"budget comparison and ensemble forecasts.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runCosts,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagProvider, "provider", "p", pipeline.AllProviders, "Provider to analyze, or \"all\" for the per-date sum")
	pf.StringVar(&flagStartDate, "start-date", "", "Range start (YYYY-MM-DD)")
	pf.StringVar(&flagEndDate, "end-date", "", "Range end (YYYY-MM-DD)")
	pf.IntVarP(&flagDays, "days", "n", 30, "Time window in days when no explicit range is given")
	pf.StringVarP(&flagDataDir, "data-dir", "d", "", "Billing export directory (default from config)")
	pf.StringSliceVarP(&flagInputs, "input", "i", nil, "Extra export files; the provider is the file name")
	pf.BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	pf.StringVarP(&flagOutput, "output", "o", "", "Write JSON to this file")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVar(&flagNoArchive, "no-archive", false, "Do not record results in the run archive")
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/costcast/config.toml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup loads config and configures logging before every command.
func setup(cmd *cobra.Command, _ []string) error {
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		// setup and config must still run so a broken file can be inspected or replaced.
		if name := cmd.Name(); name != "setup" && name != "config" {
			return err
		}
		fmt.Fprintf(os.Stderr, "  Warning: %v\n", err)
		cfg = config.DefaultConfig()
	}
	appCfg = cfg

	if !cmd.Flags().Changed("days") && cfg.General.DefaultDays > 0 {
		flagDays = cfg.General.DefaultDays
	}
	if flagDataDir == "" {
		flagDataDir = cfg.General.ExportDir
	}
	cli.SetCurrency(cfg.Currency.Base)

	level := flagLogLevel
	if level == "" {
		level = cfg.General.LogLevel
	}
	configureLogging(level)
	return nil
}

func configureLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if flagQuiet && lvl < zerolog.WarnLevel {
		lvl = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func loadOptions() pipeline.LoadOptions {
	return pipeline.LoadOptions{
		DataDir:   flagDataDir,
		Inputs:    flagInputs,
		Providers: appCfg.Providers,
		Rates:     config.NewRates(appCfg.Currency.Rates),
		Base:      appCfg.Currency.Base,
	}
}

// loadData is the shared data loading path used by all commands.
func loadData() (*pipeline.LoadResult, error) {
	opts := loadOptions()
	if opts.DataDir == "" && len(opts.Inputs) == 0 && len(opts.Providers) == 0 {
		return nil, errors.New("no billing exports configured: pass --data-dir or --input, or run `costcast setup`")
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning billing exports...\n")
	}
	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%20 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	start := time.Now()
	result, err := pipeline.Load(opts, progressFn)
	if err != nil {
		return nil, err
	}
	if result.TotalFiles == 0 {
		return nil, fmt.Errorf("no billing exports found in %s", describeSources(opts))
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r  Parsed %d files across %d providers    \n",
			result.ParsedFiles, len(result.Providers))
	}
	log.Debug().
		Int("files", result.TotalFiles).
		Int("file_errors", result.FileErrors).
		Int("row_errors", result.ParseErrors).
		Dur("elapsed", time.Since(start)).
		Msg("billing exports loaded")
	if result.FileErrors > 0 {
		log.Warn().Int("files", result.FileErrors).Msg("some exports could not be read")
	}
	if result.ClampedDays > 0 {
		log.Warn().Int("days", result.ClampedDays).Msg("refunds exceeded charges on some days, counted as zero")
	}
	return result, nil
}

func describeSources(opts pipeline.LoadOptions) string {
	var parts []string
	if opts.DataDir != "" {
		parts = append(parts, opts.DataDir)
	}
	parts = append(parts, opts.Inputs...)
	for _, p := range opts.Providers {
		parts = append(parts, p.Path)
	}
	return strings.Join(parts, ", ")
}

// selectedRange resolves --start-date/--end-date, falling back to the last --days days.
func selectedRange(now time.Time) (model.DateRange, error) {
	if flagStartDate == "" && flagEndDate == "" {
		return source.LastNDays(now, flagDays), nil
	}
	var r model.DateRange
	var err error
	if flagStartDate != "" {
		if r.Start, err = time.Parse(model.DateLayout, flagStartDate); err != nil {
			return r, fmt.Errorf("invalid --start-date %q, want YYYY-MM-DD", flagStartDate)
		}
	}
	if flagEndDate != "" {
		if r.End, err = time.Parse(model.DateLayout, flagEndDate); err != nil {
			return r, fmt.Errorf("invalid --end-date %q, want YYYY-MM-DD", flagEndDate)
		}
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return r, errors.New("--end-date is before --start-date")
	}
	return r, nil
}

// selection is the series a command operates on.
type selection struct {
	Provider string
	Range    model.DateRange
	Series   model.DailyCostSeries
	Data     *pipeline.LoadResult
}

func loadSelection() (selection, error) {
	rng, err := selectedRange(time.Now())
	if err != nil {
		return selection{}, err
	}
	data, err := loadData()
	if err != nil {
		return selection{}, err
	}
	all, err := data.Series(flagProvider)
	if err != nil {
		return selection{}, err
	}
	series := source.FilterRange(all, rng)
	if len(series) == 0 {
		return selection{}, fmt.Errorf("%w (%s, %s)", pipeline.ErrNoBillingData, flagProvider, rng)
	}
	return selection{Provider: strings.ToLower(flagProvider), Range: rng, Series: series, Data: data}, nil
}

func engineOptions() engine.Options {
	return engine.Options{
		Seed:           appCfg.Forecast.Seed,
		Trees:          appCfg.Forecast.Trees,
		MinSamplesLeaf: appCfg.Forecast.MinSamplesLeaf,
	}
}

func newEngine() *engine.Engine {
	return engine.New(engineOptions())
}

// emit writes v as JSON when --json or --output is set and reports whether
// the caller should skip table output.
func emit(v any) (bool, error) {
	if flagOutput != "" {
		if err := pipeline.ExportFile(flagOutput, v); err != nil {
			return true, err
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Wrote %s\n", flagOutput)
		}
		if !flagJSON {
			return true, nil
		}
	}
	if flagJSON {
		return true, pipeline.Export(os.Stdout, v)
	}
	return false, nil
}

// fail prints the failure envelope in JSON mode and returns err for a non-zero exit.
func fail(err error) error {
	if flagJSON {
		_ = pipeline.Export(os.Stdout, pipeline.Status{Success: false, Message: err.Error()})
	}
	return err
}

// archiveRun records a result in the run archive. Failures are logged only.
func archiveRun(kind string, sel selection, method model.Method, headline string, v any) {
	if flagNoArchive || !appCfg.General.Archive {
		return
	}
	archive, err := store.Open(store.DefaultPath())
	if err != nil {
		log.Warn().Err(err).Msg("run archive unavailable")
		return
	}
	defer func() { _ = archive.Close() }()

	run := store.Run{
		Kind:        kind,
		Provider:    sel.Provider,
		Method:      string(method),
		Fingerprint: pipeline.Fingerprint(sel.Series),
		Days:        len(sel.Series),
		TotalCost:   pipeline.Round2(sel.Series.Total()),
		Headline:    headline,
	}
	if !sel.Range.Start.IsZero() {
		run.RangeStart = sel.Range.Start.Format(model.DateLayout)
	}
	if !sel.Range.End.IsZero() {
		run.RangeEnd = sel.Range.End.Format(model.DateLayout)
	}
	saved, err := archive.Save(run, v)
	if err != nil {
		log.Warn().Err(err).Msg("archiving run")
		return
	}
	log.Debug().Str("run_id", saved.ID).Str("kind", kind).Msg("run archived")
}

func title(label string, sel selection) string {
	return fmt.Sprintf("%s  %s  %s", label, strings.ToUpper(sel.Provider), sel.Range)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}
