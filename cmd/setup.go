package cmd

import (
	"fmt"

	"github.com/theirongolddev/costcast/internal/config"
	"github.com/theirongolddev/costcast/internal/pipeline"
	"github.com/theirongolddev/costcast/internal/tui"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg := appCfg

	sources := 0
	if opts := loadOptions(); opts.DataDir != "" || len(opts.Inputs) > 0 || len(opts.Providers) > 0 {
		if data, err := pipeline.Load(opts, nil); err == nil {
			sources = data.TotalFiles
		}
	}

	vals := tui.NewSetupValues(cfg)
	if vals.ExportDir == "" {
		vals.ExportDir = flagDataDir
	}
	if err := tui.NewSetupForm(sources, flagDataDir, &vals).Run(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if err := vals.Apply(&cfg); err != nil {
		return err
	}

	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}
	if err := config.SaveTo(path, cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", path)
	fmt.Println("  Run `costcast setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}
