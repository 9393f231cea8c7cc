// Package config defines the configuration of the bondbt tool and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/etnz/bondbt/date"
	"github.com/sirupsen/logrus"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by BONDBT_* environment variables.
type Config struct {
	Backtest  BacktestConfig  `toml:"backtest"`
	Market    MarketConfig    `toml:"market"`
	Redis     RedisConfig     `toml:"redis"`
	Valuation ValuationConfig `toml:"valuation"`
	Log       LogConfig       `toml:"log"`
}

// BacktestConfig holds the initial state of the ledger and the fee model.
type BacktestConfig struct {
	Currency     string  `toml:"currency"`
	InitialCash  float64 `toml:"initial_cash"`
	Start        string  `toml:"start"` // YYYY-MM-DD, empty for the day before the first order
	End          string  `toml:"end"`   // YYYY-MM-DD, empty to stop at the last order
	FeeRate      float64 `toml:"fee_rate"`
	SkipRejected bool    `toml:"skip_rejected"`
}

// MarketConfig selects the market data source.
type MarketConfig struct {
	Source   string `toml:"source"` // "file" or "postgres"
	Dir      string `toml:"dir"`
	DSN      string `toml:"dsn"`
	MaxConns int    `toml:"max_conns"`
}

// RedisConfig holds the price cache parameters.
type RedisConfig struct {
	Enabled  bool     `toml:"enabled"`
	Addr     string   `toml:"addr"`
	Password string   `toml:"password"`
	DB       int      `toml:"db"`
	TTL      duration `toml:"ttl"`
}

// ValuationConfig bounds the valuation concurrency.
type ValuationConfig struct {
	Workers int `toml:"workers"`
}

// LogConfig sets the logrus level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text" or "json"
}

// duration wraps time.Duration for TOML decoding.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "24h".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Backtest: BacktestConfig{
			Currency:    "CNY",
			InitialCash: 100_000_000,
			FeeRate:     0.003,
		},
		Market: MarketConfig{
			Source:   "file",
			Dir:      "market",
			MaxConns: 4,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  duration{24 * time.Hour},
		},
		Valuation: ValuationConfig{Workers: 4},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

var validSources = map[string]bool{"file": true, "postgres": true}
var validFormats = map[string]bool{"text": true, "json": true}

// Validate checks closed enums and ranges. Every problem is reported.
func (c *Config) Validate() error {
	var errs []string

	// Backtest
	if len(c.Backtest.Currency) != 3 {
		errs = append(errs, fmt.Sprintf("backtest: currency must be an ISO 4217 code, got %q", c.Backtest.Currency))
	}
	if c.Backtest.InitialCash < 0 {
		errs = append(errs, "backtest: initial_cash must be >= 0")
	}
	if c.Backtest.FeeRate < 0 {
		errs = append(errs, "backtest: fee_rate must be >= 0")
	}
	start, err := c.Backtest.StartDate()
	if err != nil {
		errs = append(errs, "backtest: start: "+err.Error())
	}
	end, err := c.Backtest.EndDate()
	if err != nil {
		errs = append(errs, "backtest: end: "+err.Error())
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs = append(errs, "backtest: end must not be before start")
	}

	// Market
	if !validSources[c.Market.Source] {
		errs = append(errs, fmt.Sprintf("market: unknown source %q (valid: file, postgres)", c.Market.Source))
	}
	if c.Market.Source == "file" && c.Market.Dir == "" {
		errs = append(errs, "market: dir must not be empty for the file source")
	}
	if c.Market.Source == "postgres" && strings.TrimSpace(c.Market.DSN) == "" {
		errs = append(errs, "market: dsn must not be empty for the postgres source")
	}
	if c.Market.MaxConns < 1 {
		errs = append(errs, "market: max_conns must be >= 1")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.TTL.Duration < 0 {
			errs = append(errs, "redis: ttl must be >= 0")
		}
	}

	// Valuation
	if c.Valuation.Workers < 1 {
		errs = append(errs, "valuation: workers must be >= 1")
	}

	// Log
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log: unknown level %q", c.Log.Level))
	}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("log: unknown format %q (valid: text, json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// StartDate parses Start, zero if empty.
func (b BacktestConfig) StartDate() (date.Date, error) { return parseOptional(b.Start) }

// EndDate parses End, zero if empty.
func (b BacktestConfig) EndDate() (date.Date, error) { return parseOptional(b.End) }

func parseOptional(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

// Apply configures a logrus logger.
func (l LogConfig) Apply(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	switch l.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
