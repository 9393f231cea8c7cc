package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BONDBT_* environment variable overrides, and
// returns the final Config. An empty path only applies the overrides. The
// returned Config has NOT been validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BONDBT_* environment variables and
// overwrites the corresponding Config fields when a variable is set.
func applyEnvOverrides(cfg *Config) {
	// ── Backtest ──
	setStr(&cfg.Backtest.Currency, "BONDBT_BACKTEST_CURRENCY")
	setFloat64(&cfg.Backtest.InitialCash, "BONDBT_BACKTEST_INITIAL_CASH")
	setStr(&cfg.Backtest.Start, "BONDBT_BACKTEST_START")
	setStr(&cfg.Backtest.End, "BONDBT_BACKTEST_END")
	setFloat64(&cfg.Backtest.FeeRate, "BONDBT_BACKTEST_FEE_RATE")
	setBool(&cfg.Backtest.SkipRejected, "BONDBT_BACKTEST_SKIP_REJECTED")

	// ── Market ──
	setStr(&cfg.Market.Source, "BONDBT_MARKET_SOURCE")
	setStr(&cfg.Market.Dir, "BONDBT_MARKET_DIR")
	setStr(&cfg.Market.DSN, "BONDBT_MARKET_DSN")
	setInt(&cfg.Market.MaxConns, "BONDBT_MARKET_MAX_CONNS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "BONDBT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "BONDBT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BONDBT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BONDBT_REDIS_DB")
	setDuration(&cfg.Redis.TTL, "BONDBT_REDIS_TTL")

	// ── Valuation ──
	setInt(&cfg.Valuation.Workers, "BONDBT_VALUATION_WORKERS")

	// ── Log ──
	setStr(&cfg.Log.Level, "BONDBT_LOG_LEVEL")
	setStr(&cfg.Log.Format, "BONDBT_LOG_FORMAT")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
