package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all costcast configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Forecast   ForecastConfig   `toml:"forecast"`
	Anomaly    AnomalyConfig    `toml:"anomaly"`
	Budget     BudgetConfig     `toml:"budget"`
	Server     ServerConfig     `toml:"server"`
	Appearance AppearanceConfig `toml:"appearance"`
	Currency   CurrencyConfig   `toml:"currency"`
	Providers  []ProviderConfig `toml:"providers,omitempty"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays int    `toml:"default_days"`
	ExportDir   string `toml:"export_dir,omitempty"`
	LogLevel    string `toml:"log_level"`
	Archive     bool   `toml:"archive"`
}

// ForecastConfig holds forecaster defaults.
type ForecastConfig struct {
	DaysAhead      int    `toml:"days_ahead"`
	Method         string `toml:"method"`
	Seed           uint64 `toml:"seed"`
	Trees          int    `toml:"trees"`
	MinSamplesLeaf int    `toml:"min_samples_leaf"`
}

// AnomalyConfig holds anomaly detection defaults.
type AnomalyConfig struct {
	Threshold float64 `toml:"threshold"`
}

// BudgetConfig holds the flat daily baseline. Nil means no budget is set.
type BudgetConfig struct {
	Daily *float64 `toml:"daily,omitempty"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr         string  `toml:"addr"`
	CacheSize    int     `toml:"cache_size"`
	CacheTTLSec  int     `toml:"cache_ttl_sec"`
	RateLimitRPS float64 `toml:"rate_limit_rps"`
	RateBurst    int     `toml:"rate_burst"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// CurrencyConfig selects the reporting currency and overrides conversion rates.
type CurrencyConfig struct {
	Base  string             `toml:"base"`
	Rates map[string]float64 `toml:"rates,omitempty"`
}

// ProviderConfig points at one provider's billing exports.
type ProviderConfig struct {
	Name     string `toml:"name"`
	Path     string `toml:"path"`
	Format   string `toml:"format,omitempty"`
	Currency string `toml:"currency,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 30,
			LogLevel:    "info",
			Archive:     true,
		},
		Forecast: ForecastConfig{
			DaysAhead:      30,
			Method:         "ensemble",
			Seed:           42,
			Trees:          100,
			MinSamplesLeaf: 1,
		},
		Anomaly: AnomalyConfig{
			Threshold: 2.0,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8470",
			CacheSize:    256,
			CacheTTLSec:  300,
			RateLimitRPS: 20,
			RateBurst:    40,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Currency: CurrencyConfig{
			Base: "CNY",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "costcast")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "costcast")
}

// ConfigPath returns the full path to the config file.
// COSTCAST_CONFIG overrides the default location.
func ConfigPath() string {
	if p := os.Getenv("COSTCAST_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path, returning defaults if it doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.General.DefaultDays < 1 {
		errs = append(errs, errors.New("general.default_days must be at least 1"))
	}
	if c.Forecast.DaysAhead < 1 {
		errs = append(errs, errors.New("forecast.days_ahead must be at least 1"))
	}
	if c.Forecast.Trees < 1 {
		errs = append(errs, errors.New("forecast.trees must be at least 1"))
	}
	if c.Anomaly.Threshold < 0 {
		errs = append(errs, errors.New("anomaly.threshold must not be negative"))
	}
	if c.Budget.Daily != nil && *c.Budget.Daily < 0 {
		errs = append(errs, errors.New("budget.daily must not be negative"))
	}
	for cur, rate := range c.Currency.Rates {
		if rate <= 0 {
			errs = append(errs, fmt.Errorf("currency.rates.%s must be positive", cur))
		}
	}
	for i, p := range c.Providers {
		if p.Name == "" || p.Path == "" {
			errs = append(errs, fmt.Errorf("providers[%d] needs name and path", i))
		}
	}
	return errors.Join(errs...)
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config to path, creating parent directories.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // user-chosen config path
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// ProviderNamed returns the configured provider with the given name.
func (c Config) ProviderNamed(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}
