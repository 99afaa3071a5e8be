package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	if cfg.MinTrade().Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("min trade = %s, want 1000000", cfg.MinTrade())
	}
	if cfg.ScanInterval() != 2*time.Second {
		t.Errorf("scan interval = %s, want 2s", cfg.ScanInterval())
	}
	if cfg.QuoteTimeout() != 5*time.Second {
		t.Errorf("quote timeout = %s, want 5s", cfg.QuoteTimeout())
	}
}

func TestLoadTomlOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"

[scanner]
interval_ms = 750

[guard]
min_age = 2
max_age = 8

[governor]
min_profit_bps = 25
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Scanner.IntervalMs != 750 {
		t.Errorf("interval = %d, want 750", cfg.Scanner.IntervalMs)
	}
	if cfg.Guard.MinAge != 2 || cfg.Guard.MaxAge != 8 {
		t.Errorf("guard ages = %d/%d, want 2/8", cfg.Guard.MinAge, cfg.Guard.MaxAge)
	}
	if cfg.Governor.MinProfitBps != 25 {
		t.Errorf("min profit = %d, want 25", cfg.Governor.MinProfitBps)
	}
	// untouched sections keep their defaults
	if cfg.FlashLoan.FeeBps != 9 {
		t.Errorf("flash loan fee = %d, want default 9", cfg.FlashLoan.FeeBps)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Scanner.IntervalMs != 2000 {
		t.Errorf("interval = %d, want default 2000", cfg.Scanner.IntervalMs)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLASHARB_RPC_URL", "http://localhost:8545")
	t.Setenv("FLASHARB_MIN_PROFIT_BPS", "42")
	t.Setenv("FLASHARB_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RPC.URL != "http://localhost:8545" {
		t.Errorf("rpc url = %q", cfg.RPC.URL)
	}
	if cfg.Governor.MinProfitBps != 42 {
		t.Errorf("min profit = %d, want 42", cfg.Governor.MinProfitBps)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("log level = %q, want warn", cfg.LogLevel)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min age above max age", func(c *Config) { c.Guard.MinAge = 11; c.Guard.MaxAge = 10 }},
		{"negative min profit", func(c *Config) { c.Governor.MinProfitBps = -1 }},
		{"garbage min trade", func(c *Config) { c.Governor.MinTradeAmount = "one million" }},
		{"garbage gas ceiling", func(c *Config) { c.Gas.CeilingWei = "0x1234" }},
		{"zero scan interval", func(c *Config) { c.Scanner.IntervalMs = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
