package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/config"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// newBacktest configures a backtest of orders from cfg. Without a configured
// start the ledger opens the day before the first order.
func newBacktest(cfg *config.Config, orders []bondbt.Order, logger logrus.FieldLogger) (bondbt.Backtest, error) {
	start, err := cfg.Backtest.StartDate()
	if err != nil {
		return bondbt.Backtest{}, err
	}
	if start.IsZero() {
		if len(orders) == 0 {
			return bondbt.Backtest{}, errors.New("no order and no start date")
		}
		start = orders[0].On.Add(-1)
	}
	end, err := cfg.Backtest.EndDate()
	if err != nil {
		return bondbt.Backtest{}, err
	}
	return bondbt.Backtest{
		Start:        start,
		End:          end,
		Cash:         bondbt.M(cfg.Backtest.InitialCash, cfg.Backtest.Currency),
		Fees:         bondbt.FeeModel{Rate: decimal.NewFromFloat(cfg.Backtest.FeeRate)},
		SkipRejected: cfg.Backtest.SkipRejected,
		Workers:      cfg.Valuation.Workers,
		Logger:       logger,
	}, nil
}

// backtest runs the orders file against the session market.
func (s *session) backtest(ctx context.Context, value bool) (*bondbt.Result, error) {
	orders, err := decodeOrders()
	if err != nil {
		return nil, fmt.Errorf("cannot decode orders %q: %w", *ordersFile, err)
	}
	bt, err := newBacktest(s.cfg, orders, s.log)
	if err != nil {
		return nil, err
	}
	bt.Value = value
	return bt.Run(ctx, orders, s.market)
}
