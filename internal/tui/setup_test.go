package tui

import (
	"testing"

	"github.com/theirongolddev/costcast/internal/config"
)

func TestSetupValuesRoundTrip(t *testing.T) {
	cfg := config.DefaultConfig()
	budget := 12.5
	cfg.Budget.Daily = &budget

	v := NewSetupValues(cfg)
	if v.Budget != "12.5" {
		t.Errorf("budget seed = %q, want 12.5", v.Budget)
	}

	v.Days = 90
	v.DaysAhead = 14
	v.Method = "linear"
	v.Budget = " 40 "
	v.Theme = "tokyo-night"
	v.ExportDir = "/data/billing"

	if err := v.Apply(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.General.DefaultDays != 90 || cfg.Forecast.DaysAhead != 14 {
		t.Errorf("days = %d/%d", cfg.General.DefaultDays, cfg.Forecast.DaysAhead)
	}
	if cfg.Forecast.Method != "linear" {
		t.Errorf("method = %q", cfg.Forecast.Method)
	}
	if cfg.Budget.Daily == nil || *cfg.Budget.Daily != 40 {
		t.Errorf("budget = %v", cfg.Budget.Daily)
	}
	if cfg.Appearance.Theme != "tokyo-night" || cfg.General.ExportDir != "/data/billing" {
		t.Errorf("appearance/export = %q/%q", cfg.Appearance.Theme, cfg.General.ExportDir)
	}
}

func TestSetupApplyClearsBudget(t *testing.T) {
	cfg := config.DefaultConfig()
	b := 5.0
	cfg.Budget.Daily = &b

	v := NewSetupValues(cfg)
	v.Budget = ""
	if err := v.Apply(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Budget.Daily != nil {
		t.Errorf("blank budget should clear it, got %v", *cfg.Budget.Daily)
	}
}

func TestSetupApplyRejectsBadInput(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, in := range []string{"abc", "-3", "0"} {
		v := NewSetupValues(cfg)
		v.Budget = in
		if err := v.Apply(&cfg); err == nil {
			t.Errorf("budget %q accepted", in)
		}
	}

	v := NewSetupValues(cfg)
	v.Method = "crystal_ball"
	v.Theme = "no-such-theme"
	if err := v.Apply(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Forecast.Method != config.DefaultConfig().Forecast.Method {
		t.Errorf("unknown method should be ignored, got %q", cfg.Forecast.Method)
	}
	if cfg.Appearance.Theme != "flexoki-dark" {
		t.Errorf("unknown theme should fall back, got %q", cfg.Appearance.Theme)
	}
}

func TestValidateExportDir(t *testing.T) {
	if err := validateExportDir(""); err != nil {
		t.Errorf("blank dir should be allowed: %v", err)
	}
	if err := validateExportDir(t.TempDir()); err != nil {
		t.Errorf("existing dir rejected: %v", err)
	}
	if err := validateExportDir("/definitely/not/here"); err == nil {
		t.Error("missing dir accepted")
	}
}
