package bondbt

import (
	"context"
	"fmt"

	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ValuePoint is the value of a position on a trading day.
type ValuePoint struct {
	On    date.Date
	Cash  Money
	Asset Money
	Total Money
}

// MarshalJSON writes the point as a single ordered object.
func (v ValuePoint) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("on", v.On)
	w.Append("cash", v.Cash.Value())
	w.Append("asset", v.Asset.Value())
	w.Append("total", v.Total.Value())
	return w.MarshalJSON()
}

// Series is a chronological list of values.
type Series []ValuePoint

// Last returns the last point, or false for an empty series.
func (s Series) Last() (ValuePoint, bool) {
	if len(s) == 0 {
		return ValuePoint{}, false
	}
	return s[len(s)-1], true
}

// AssetValue values the position on every trading day, from the first
// snapshot to the last one included.
//
// Between two snapshots the holdings and cash of the earlier one apply. The
// intervals are priced concurrently by at most workers goroutines (no limit
// if workers <= 0) and the result is in chronological order.
func (p *Position) AssetValue(ctx context.Context, market MarketData, workers int) (Series, error) {
	snapshots := p.snapshots // append-only: this prefix is never modified
	n := len(snapshots)
	slots := make([]Series, n)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := 0; i < n-1; i++ {
		s, next := snapshots[i], snapshots[i+1]
		if !s.On.Before(next.On) {
			continue // superseded by a later snapshot of the same day
		}
		g.Go(func() error {
			points, err := valueInterval(ctx, market, s, next.On)
			if err != nil {
				return err
			}
			slots[i] = points
			return nil
		})
	}
	g.Go(func() error {
		point, err := valueDay(ctx, market, snapshots[n-1])
		if err != nil {
			return err
		}
		slots[n-1] = Series{point}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var series Series
	for _, points := range slots {
		series = append(series, points...)
	}
	return series, nil
}

// valueInterval values s on every trading day of [s.On, to).
func valueInterval(ctx context.Context, market MarketData, s Snapshot, to date.Date) (Series, error) {
	days, err := market.TradingDays(ctx, s.On, to)
	if err != nil {
		return nil, fmt.Errorf("cannot value [%s, %s): %w", s.On, to, err)
	}
	if len(days) == 0 {
		return nil, nil
	}

	var matrix PriceMatrix
	if !s.Holdings.IsEmpty() {
		matrix, err = market.PriceMatrix(ctx, s.Holdings.Symbols(), s.On, to)
		if err != nil {
			return nil, fmt.Errorf("cannot value [%s, %s): %w", s.On, to, err)
		}
	}

	points := make(Series, 0, len(days))
	for _, on := range days {
		asset := M(0, s.Cash.Currency())
		for symbol, volume := range s.Holdings.All() {
			price, ok := matrix.Get(symbol, on)
			if !ok {
				return nil, fmt.Errorf("cannot value %s: %w: %s", on, ErrPriceNotFound, symbol)
			}
			asset = asset.Add(M(price, s.Cash.Currency()).Mul(decimal.NewFromInt(volume)))
		}
		points = append(points, ValuePoint{On: on, Cash: s.Cash, Asset: asset, Total: s.Cash.Add(asset)})
	}
	return points, nil
}

// valueDay values s on its own day.
func valueDay(ctx context.Context, market MarketData, s Snapshot) (ValuePoint, error) {
	asset := M(0, s.Cash.Currency())
	for symbol, volume := range s.Holdings.All() {
		price, err := market.Price(ctx, s.On, symbol, Dirty)
		if err != nil {
			return ValuePoint{}, fmt.Errorf("cannot value %s: %w", s.On, err)
		}
		asset = asset.Add(M(price, s.Cash.Currency()).Mul(decimal.NewFromInt(volume)))
	}
	return ValuePoint{On: s.On, Cash: s.Cash, Asset: asset, Total: s.Cash.Add(asset)}, nil
}
