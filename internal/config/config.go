// Package config defines the engine configuration, populated from a TOML
// file and then optionally overridden by FLASHARB_* environment variables.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Scanner   ScannerConfig   `toml:"scanner"`
	Guard     GuardConfig     `toml:"guard"`
	Governor  GovernorConfig  `toml:"governor"`
	FlashLoan FlashLoanConfig `toml:"flashloan"`
	Gas       GasConfig       `toml:"gas"`
	Storage   StorageConfig   `toml:"storage"`
	RPC       RPCConfig       `toml:"rpc"`
	LogLevel  string          `toml:"log_level"`
}

type ScannerConfig struct {
	IntervalMs        int   `toml:"interval_ms"`
	SimulatedSlowdown int   `toml:"simulated_slowdown"`
	QuoteTimeoutMs    int   `toml:"quote_timeout_ms"`
	VenueFeeBps       int64 `toml:"venue_fee_bps"`
	QuoteCacheSize    int   `toml:"quote_cache_size"`
}

type GuardConfig struct {
	MinAge       uint64 `toml:"min_age"`
	MaxAge       uint64 `toml:"max_age"`
	PrivateRelay bool   `toml:"private_relay"`
}

type GovernorConfig struct {
	TimelockDelay  uint64 `toml:"timelock_delay"`
	ChangeExpiry   uint64 `toml:"change_expiry"`
	MinProfitBps   int64  `toml:"min_profit_bps"`
	MinTradeAmount string `toml:"min_trade_amount"`
	MaxTradeAmount string `toml:"max_trade_amount"`
}

type FlashLoanConfig struct {
	FeeBps int64 `toml:"fee_bps"`
}

type GasConfig struct {
	WindowSize   int    `toml:"window_size"`
	CeilingWei   string `toml:"ceiling_wei"`
	DefaultLimit uint64 `toml:"default_limit"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type RPCConfig struct {
	URL string `toml:"url"`
}

// Default returns a configuration that runs out of the box against a
// simulated environment
func Default() *Config {
	return &Config{
		Scanner: ScannerConfig{
			IntervalMs:        2000,
			SimulatedSlowdown: 4,
			QuoteTimeoutMs:    5000,
			VenueFeeBps:       30,
			QuoteCacheSize:    512,
		},
		Guard: GuardConfig{
			MinAge: 3,
			MaxAge: 10,
		},
		Governor: GovernorConfig{
			TimelockDelay:  24,
			ChangeExpiry:   48,
			MinProfitBps:   10,
			MinTradeAmount: "1000000",     // 1 unit of a 6-decimal asset
			MaxTradeAmount: "100000000000", // 100k units
		},
		FlashLoan: FlashLoanConfig{FeeBps: 9},
		Gas: GasConfig{
			WindowSize:   100,
			CeilingWei:   "500000000000", // 500 gwei
			DefaultLimit: 500000,
		},
		Storage:  StorageConfig{Path: "data/flasharb.db"},
		LogLevel: "info",
	}
}

// Load reads the TOML file (if path is non-empty), then applies env
// overrides. A missing file is not an error; defaults carry.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FLASHARB_RPC_URL"); v != "" {
		cfg.RPC.URL = v
	}
	if v := os.Getenv("RPC_URL"); v != "" && cfg.RPC.URL == "" {
		cfg.RPC.URL = v
	}
	if v := os.Getenv("FLASHARB_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FLASHARB_MIN_PROFIT_BPS"); v != "" {
		if bps, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Governor.MinProfitBps = bps
		}
	}
	if v := os.Getenv("FLASHARB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) Validate() error {
	if c.Guard.MinAge > c.Guard.MaxAge {
		return fmt.Errorf("guard min_age %d exceeds max_age %d", c.Guard.MinAge, c.Guard.MaxAge)
	}
	if c.Governor.MinProfitBps < 0 {
		return fmt.Errorf("min_profit_bps cannot be negative")
	}
	if _, ok := new(big.Int).SetString(c.Governor.MinTradeAmount, 10); !ok {
		return fmt.Errorf("invalid min_trade_amount %q", c.Governor.MinTradeAmount)
	}
	if _, ok := new(big.Int).SetString(c.Governor.MaxTradeAmount, 10); !ok {
		return fmt.Errorf("invalid max_trade_amount %q", c.Governor.MaxTradeAmount)
	}
	if _, ok := new(big.Int).SetString(c.Gas.CeilingWei, 10); !ok {
		return fmt.Errorf("invalid gas ceiling_wei %q", c.Gas.CeilingWei)
	}
	if c.Scanner.IntervalMs <= 0 {
		return fmt.Errorf("scanner interval_ms must be positive")
	}
	return nil
}

// convenience accessors for parsed values

func (c *Config) MinTrade() *big.Int {
	v, _ := new(big.Int).SetString(c.Governor.MinTradeAmount, 10)
	return v
}

func (c *Config) MaxTrade() *big.Int {
	v, _ := new(big.Int).SetString(c.Governor.MaxTradeAmount, 10)
	return v
}

func (c *Config) GasCeiling() *big.Int {
	v, _ := new(big.Int).SetString(c.Gas.CeilingWei, 10)
	return v
}

func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalMs) * time.Millisecond
}

func (c *Config) QuoteTimeout() time.Duration {
	return time.Duration(c.Scanner.QuoteTimeoutMs) * time.Millisecond
}
