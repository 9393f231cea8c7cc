package bondbt

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/bondbt/date"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestBacktestRun(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	setDaily(m, T070205, "2014-01-16", "2014-04-01", 100)

	orders := []Order{
		mustOrder(t, "2014-01-20", Buy, T070205, 100_000),
		mustOrder(t, "2014-01-22", Buy, T070205, 1_000_000), // too expensive
		mustOrder(t, "2014-01-29", Sell, T070205, 50_000),
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	b := Backtest{
		Start:        date.MustParse("2014-01-16"),
		End:          date.MustParse("2014-03-31"),
		Cash:         CNY(100_000_000),
		Fees:         fees,
		SkipRejected: true,
		Value:        true,
		Workers:      2,
		Logger:       logger,
	}

	res, err := b.Run(ctx, orders, m)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Rejected) != 1 || !errors.Is(res.Rejected[0].Err, ErrInsufficientCash) {
		t.Errorf("Run().Rejected = %v, want one insufficient cash", res.Rejected)
	}
	// initial, buy, sell, coupon of 2014-03-05
	if res.Position.Len() != 4 {
		t.Fatalf("Run().Position.Len() = %d, want 4", res.Position.Len())
	}
	// 100,000,000 - 10,000,300 + 5,000,000 - 150 + 50,000·3.4
	if got := res.Position.Current().Cash; !got.Equal(CNY(95_169_550)) {
		t.Errorf("final cash = %v, want 95169550", got.Value())
	}
	last, ok := res.Series.Last()
	if !ok || last.On != date.MustParse("2014-03-05") || !last.Total.Equal(CNY(100_169_550)) {
		t.Errorf("last value = %+v, want 100169550 on 2014-03-05", last)
	}

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "order rejected" {
			warned = true
		}
	}
	if !warned {
		t.Error("rejected order was not logged")
	}
}

func TestBacktestAbort(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	setDaily(m, T070205, "2014-01-16", "2014-02-01", 100)

	orders := []Order{
		mustOrder(t, "2014-01-20", Buy, T070205, 100),
		mustOrder(t, "2014-01-21", Sell, T070205, 200),
		mustOrder(t, "2014-01-22", Sell, T070205, 100),
	}
	logger, _ := test.NewNullLogger()
	b := Backtest{Start: date.MustParse("2014-01-16"), Cash: CNY(1_000_000), Fees: fees, Logger: logger}

	res, err := b.Run(ctx, orders, m)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Fatalf("Run() error = %v, want %v", err, ErrInsufficientPosition)
	}
	if res == nil || res.Position.Len() != 2 {
		t.Fatalf("Run() should return the partial result, got %+v", res)
	}
	if res.Series != nil {
		t.Error("Run() valued the position after an abort")
	}
}
