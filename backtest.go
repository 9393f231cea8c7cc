package bondbt

import (
	"context"
	"fmt"

	"github.com/etnz/bondbt/date"
	"github.com/sirupsen/logrus"
)

// Backtest replays orders on a fresh position.
type Backtest struct {
	Start        date.Date // Start is the date of the initial snapshot.
	End          date.Date // End, if set, is the day payments are settled up to after the last order.
	Cash         Money
	Holdings     Holdings
	Fees         FeeModel
	SkipRejected bool // SkipRejected records failing orders instead of aborting.
	Value        bool // Value computes the value Series.
	Workers      int  // Workers bounds the valuation concurrency.
	Logger       logrus.FieldLogger
}

// Rejection is an order that could not be applied.
type Rejection struct {
	Order Order
	Err   error
}

// Result is the outcome of a backtest.
type Result struct {
	Position *Position
	Rejected []Rejection
	Series   Series // Series is nil unless Backtest.Value is set.
}

// Run applies orders in sequence.
//
// Unless SkipRejected is set, the first failing order stops the run: the
// partial result is returned along with the error.
func (b Backtest) Run(ctx context.Context, orders []Order, market MarketData) (*Result, error) {
	log := b.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	p, err := NewPosition(b.Start, b.Cash, b.Holdings, b.Fees)
	if err != nil {
		return nil, err
	}
	p.WithLogger(log)
	res := &Result{Position: p}

	for i, o := range orders {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := p.ApplyOrder(ctx, o, market)
		if err == nil {
			continue
		}
		if !b.SkipRejected {
			return res, fmt.Errorf("order #%d: %w", i+1, err)
		}
		log.WithError(err).WithField("order", o.String()).Warn("order rejected")
		res.Rejected = append(res.Rejected, Rejection{Order: o, Err: err})
	}

	if !b.End.IsZero() {
		if err := p.Settle(ctx, b.End, market); err != nil {
			return res, err
		}
	}

	log.WithFields(logrus.Fields{
		"orders":    len(orders),
		"rejected":  len(res.Rejected),
		"snapshots": p.Len(),
		"cash":      p.Current().Cash.Value(),
	}).Info("backtest done")

	if b.Value {
		res.Series, err = p.AssetValue(ctx, market, b.Workers)
		if err != nil {
			return res, fmt.Errorf("cannot value position: %w", err)
		}
	}
	return res, nil
}
