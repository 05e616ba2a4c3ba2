package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SourcesConfig holds the external origin endpoints and fetch limits.
type SourcesConfig struct {
	TWSEBaseURL           string `yaml:"twse_base_url"`
	YahooBaseURL          string `yaml:"yahoo_base_url"`
	HiStockBaseURL        string `yaml:"histock_base_url"`
	TDCCBaseURL           string `yaml:"tdcc_base_url"`
	FinMindBaseURL        string `yaml:"finmind_base_url"`
	FinMindToken          string `yaml:"finmind_token"`
	TimeoutSeconds        int    `yaml:"timeout_seconds"`
	LookbackDays          int    `yaml:"lookback_days"`
	InsiderLookbackMonths int    `yaml:"insider_lookback_months"`
}

// CacheConfig controls the read-through cache for market-wide tables.
type CacheConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	TTLMinutes  int    `yaml:"ttl_minutes"`
	RefreshCron string `yaml:"refresh_cron"`
}

// ResolverConfig declares the adapter priority chain per logical field.
// Priority order is configuration, not resolution logic.
type ResolverConfig struct {
	Priorities map[string][]string `yaml:"priorities"`
}

// VerdictThresholds maps score cutoffs to verdict tiers.
type VerdictThresholds struct {
	StrongBuy int `yaml:"strong_buy"`
	Hold      int `yaml:"hold"`
	Watch     int `yaml:"watch"`
}

// ScoringConfig exposes the rule thresholds that differ across strategy
// variants. The oversold/overheated RSI cutoffs and the asymmetric
// large-holder band are deliberately configurable rather than hard-wired.
type ScoringConfig struct {
	OversoldRSI        float64           `yaml:"oversold_rsi"`
	OverheatedRSI      float64           `yaml:"overheated_rsi"`
	LargeHolderDropPct float64           `yaml:"large_holder_drop_pct"`
	Verdict            VerdictThresholds `yaml:"verdict"`
}

// Config holds all application configuration.
type Config struct {
	Sources  SourcesConfig  `yaml:"sources"`
	Cache    CacheConfig    `yaml:"cache"`
	Resolver ResolverConfig `yaml:"resolver"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	LogLevel string         `yaml:"log_level"`
	Proxy    string         `yaml:"proxy"`
}

// DefaultPriorities is the shipped adapter chain per logical field. Swapping
// an origin (e.g. HiStock for FinMind) is a configuration change only.
func DefaultPriorities() map[string][]string {
	return map[string][]string{
		"price_history":      {"yahoo"},
		"display_name":       {"twse", "histock", "finmind", "yahoo"},
		"valuation":          {"twse", "yahoo"},
		"profitability":      {"finmind", "yahoo"},
		"institutional_flow": {"twse", "finmind"},
		"ownership":          {"tdcc", "finmind", "histock"},
		"insider_holding":    {"histock"},
		"business_summary":   {"yahoo"},
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides and fills defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("FINMIND_TOKEN"); v != "" {
		cfg.Sources.FinMindToken = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Cache.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sources.LookbackDays = n
		}
	}

	// Defaults
	if cfg.Sources.TWSEBaseURL == "" {
		cfg.Sources.TWSEBaseURL = "https://openapi.twse.com.tw/v1"
	}
	if cfg.Sources.YahooBaseURL == "" {
		cfg.Sources.YahooBaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Sources.HiStockBaseURL == "" {
		cfg.Sources.HiStockBaseURL = "https://histock.tw"
	}
	if cfg.Sources.TDCCBaseURL == "" {
		cfg.Sources.TDCCBaseURL = "https://opendata.tdcc.com.tw"
	}
	if cfg.Sources.FinMindBaseURL == "" {
		cfg.Sources.FinMindBaseURL = "https://api.finmindtrade.com"
	}
	if cfg.Sources.TimeoutSeconds == 0 {
		cfg.Sources.TimeoutSeconds = 5
	}
	if cfg.Sources.LookbackDays == 0 {
		cfg.Sources.LookbackDays = 365
	}
	if cfg.Sources.InsiderLookbackMonths == 0 {
		cfg.Sources.InsiderLookbackMonths = 4
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = "data/market_cache.db"
	}
	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 60
	}
	if cfg.Cache.RefreshCron == "" {
		cfg.Cache.RefreshCron = "0 0 * * * *"
	}
	if cfg.Resolver.Priorities == nil {
		cfg.Resolver.Priorities = DefaultPriorities()
	} else {
		for field, chain := range DefaultPriorities() {
			if _, ok := cfg.Resolver.Priorities[field]; !ok {
				cfg.Resolver.Priorities[field] = chain
			}
		}
	}
	if cfg.Scoring.OversoldRSI == 0 {
		cfg.Scoring.OversoldRSI = 30
	}
	if cfg.Scoring.OverheatedRSI == 0 {
		cfg.Scoring.OverheatedRSI = 75
	}
	if cfg.Scoring.LargeHolderDropPct == 0 {
		cfg.Scoring.LargeHolderDropPct = 0.2
	}
	if cfg.Scoring.Verdict.StrongBuy == 0 {
		cfg.Scoring.Verdict.StrongBuy = 75
	}
	if cfg.Scoring.Verdict.Hold == 0 {
		cfg.Scoring.Verdict.Hold = 55
	}
	if cfg.Scoring.Verdict.Watch == 0 {
		cfg.Scoring.Verdict.Watch = 40
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Sources.TimeoutSeconds <= 0 {
		return fmt.Errorf("sources.timeout_seconds must be positive")
	}
	if c.Sources.LookbackDays < 60 {
		return fmt.Errorf("sources.lookback_days must be at least 60 to cover the longest moving-average window")
	}
	v := c.Scoring.Verdict
	if !(v.StrongBuy > v.Hold && v.Hold > v.Watch && v.Watch > 0) {
		return fmt.Errorf("scoring.verdict thresholds must be strictly descending and positive")
	}
	if chain, ok := c.Resolver.Priorities["price_history"]; !ok || len(chain) == 0 {
		return fmt.Errorf("resolver.priorities.price_history must name at least one adapter")
	}
	return nil
}
