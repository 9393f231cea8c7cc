// Package cmd implements the bondbt command line.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/config"
	"github.com/etnz/bondbt/pgstore"
	"github.com/etnz/bondbt/pricecache"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&runCmd{}, "backtest")
	c.Register(&valueCmd{}, "backtest")

	c.Register(&ytmCmd{}, "bond")
	c.Register(&priceCmd{}, "bond")
	c.Register(&scheduleCmd{}, "bond")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "bondbt.toml", "Path to the TOML configuration file, ignored if it does not exist")
var ordersFile = flag.String("orders", "orders.jsonl", "Path to the orders file (JSONL format)")
var Verbose = flag.Bool("v", false, "log at debug level")

// loadConfig reads and validates the configuration, and sets up the logger.
func loadConfig() (*config.Config, *logrus.Logger, error) {
	path := *configFile
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot load config %q: %w", *configFile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := logrus.New()
	if err := cfg.Log.Apply(logger); err != nil {
		return nil, nil, err
	}
	if *Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return cfg, logger, nil
}

// session holds the resources opened by a command.
type session struct {
	cfg    *config.Config
	log    *logrus.Logger
	market bondbt.MarketData
	file   *bondbt.Market  // file is set for the file source.
	store  *pgstore.Market // store is set for the postgres source.
	cache  *pricecache.Cache
}

// openSession loads the configuration and opens the market data source.
func openSession(ctx context.Context) (*session, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, log: logger}

	switch cfg.Market.Source {
	case "postgres":
		s.store, err = pgstore.Open(ctx, pgstore.ClientConfig{DSN: cfg.Market.DSN, MaxConns: cfg.Market.MaxConns})
		if err != nil {
			return nil, err
		}
		s.store.WithLogger(logger)
		s.market = s.store
	default:
		s.file, err = bondbt.DecodeMarket(cfg.Market.Dir)
		if err != nil {
			return nil, fmt.Errorf("cannot load market %q: %w", cfg.Market.Dir, err)
		}
		s.market = s.file
	}

	if cfg.Redis.Enabled {
		s.cache, err = pricecache.New(ctx, pricecache.ClientConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL.Duration,
		}, s.market)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.cache.WithLogger(logger)
		s.market = s.cache
	}
	return s, nil
}

// Close releases the session resources.
func (s *session) Close() {
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.log.WithError(err).Warn("cannot close redis client")
		}
	}
	if s.store != nil {
		s.store.Close()
	}
}

// bond returns the terms of a symbol from the market source.
func (s *session) bond(ctx context.Context, symbol bondbt.Symbol) (bond.Terms, error) {
	if s.store != nil {
		return s.store.Bond(ctx, symbol)
	}
	terms, ok := s.file.Bond(symbol)
	if !ok {
		return bond.Terms{}, fmt.Errorf("unknown bond %q in market %q", symbol, s.cfg.Market.Dir)
	}
	return terms, nil
}

// decodeOrders reads the orders file.
func decodeOrders() ([]bondbt.Order, error) {
	f, err := os.Open(*ordersFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bondbt.DecodeOrders(f)
}

// printMarkdown renders markdown for the terminal, or prints it raw if it cannot.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}
