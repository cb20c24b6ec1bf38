package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/costcast/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appCfg
	path := flagConfig
	if path == "" {
		path = config.ConfigPath()
	}

	if done, err := emit(cfg); done {
		return err
	}

	fmt.Printf("  Config file: %s\n", path)
	if config.Exists() || flagConfig != "" {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Default days:  %d\n", cfg.General.DefaultDays)
	if cfg.General.ExportDir != "" {
		fmt.Printf("    Export dir:    %s\n", cfg.General.ExportDir)
	} else {
		fmt.Println("    Export dir:    not set")
	}
	fmt.Printf("    Log level:     %s\n", cfg.General.LogLevel)
	fmt.Printf("    Archive runs:  %v\n", cfg.General.Archive)
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Days ahead:    %d\n", cfg.Forecast.DaysAhead)
	fmt.Printf("    Method:        %s\n", cfg.Forecast.Method)
	fmt.Printf("    Seed:          %d\n", cfg.Forecast.Seed)
	fmt.Printf("    Trees:         %d (min leaf %d)\n", cfg.Forecast.Trees, cfg.Forecast.MinSamplesLeaf)
	fmt.Println()

	fmt.Println("  [Anomaly]")
	fmt.Printf("    Threshold:     %.1fσ\n", cfg.Anomaly.Threshold)
	fmt.Println()

	fmt.Println("  [Budget]")
	if cfg.Budget.Daily != nil {
		fmt.Printf("    Daily budget:  %s%.2f\n", config.Symbol(cfg.Currency.Base), *cfg.Budget.Daily)
	} else {
		fmt.Println("    Daily budget:  not set")
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:       %s\n", cfg.Server.Addr)
	fmt.Printf("    Cache:         %d entries, %ds TTL\n", cfg.Server.CacheSize, cfg.Server.CacheTTLSec)
	fmt.Printf("    Rate limit:    %.0f rps (burst %d)\n", cfg.Server.RateLimitRPS, cfg.Server.RateBurst)
	fmt.Println()

	fmt.Println("  [Currency]")
	fmt.Printf("    Base:          %s\n", cfg.Currency.Base)
	if len(cfg.Currency.Rates) > 0 {
		codes := make([]string, 0, len(cfg.Currency.Rates))
		for code := range cfg.Currency.Rates {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		parts := make([]string, len(codes))
		for i, code := range codes {
			parts[i] = fmt.Sprintf("%s=%g", code, cfg.Currency.Rates[code])
		}
		fmt.Printf("    Overrides:     %s (per CNY)\n", strings.Join(parts, ", "))
	}
	fmt.Println()

	if len(cfg.Providers) > 0 {
		fmt.Println("  [[Providers]]")
		for _, p := range cfg.Providers {
			extra := ""
			if p.Format != "" {
				extra += " format=" + p.Format
			}
			if p.Currency != "" {
				extra += " currency=" + p.Currency
			}
			fmt.Printf("    %-12s %s%s\n", p.Name, p.Path, extra)
		}
		fmt.Println()
	}

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme:         %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `costcast setup` to reconfigure.")
	return nil
}
