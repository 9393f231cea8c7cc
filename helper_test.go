package bondbt

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
)

const (
	// T070205 is an annual 10 years bond paying on March 5th.
	T070205 Symbol = "070205.IB"
	// T100315 is a semiannual 10 years bond paying on March and September 15th.
	T100315 Symbol = "100315.IB"
)

// CNY is a helper for test to create yuan money from const
func CNY(v float64) Money { return M(v, "CNY") }

// dec is a helper for test to create decimal from const
func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// newTestMarket returns a market with two bonds and no price.
func newTestMarket(t *testing.T) *Market {
	t.Helper()
	m := NewMarket()
	if err := m.AddBond(T070205, bond.Terms{Issue: date.MustParse("2007-03-05"), Years: 10, CouponRate: 3.4, Frequency: bond.Annual, Par: 100}); err != nil {
		t.Fatal(err)
	}
	if err := m.AddBond(T100315, bond.Terms{Issue: date.MustParse("2010-03-15"), Years: 10, CouponRate: 3.5, Frequency: bond.Semiannual, Par: 100}); err != nil {
		t.Fatal(err)
	}
	return m
}

// setDaily sets the same dirty price on every weekday of [from, to).
func setDaily(m *Market, symbol Symbol, from, to string, price float64) {
	for d := range date.NewRange(date.MustParse(from), date.MustParse(to)).Days() {
		if wd := d.Weekday(); wd != 0 && wd != 6 {
			m.SetPrice(d, symbol, Dirty, price)
		}
	}
}

// mustOrder is a helper for test to create valid orders.
func mustOrder(t *testing.T, on string, side Side, symbol Symbol, volume int64) Order {
	t.Helper()
	o, err := NewOrder(date.MustParse(on), side, symbol, volume)
	if err != nil {
		t.Fatalf("NewOrder() error = %v", err)
	}
	return o
}

// countingMarket counts the queries made to a market.
type countingMarket struct {
	*Market
	prices      atomic.Int32
	matrices    atomic.Int32
	payments    atomic.Int32
	tradingDays atomic.Int32
}

func (c *countingMarket) Price(ctx context.Context, on date.Date, symbol Symbol, field PriceField) (decimal.Decimal, error) {
	c.prices.Add(1)
	return c.Market.Price(ctx, on, symbol, field)
}

func (c *countingMarket) PriceMatrix(ctx context.Context, symbols []Symbol, from, to date.Date) (PriceMatrix, error) {
	c.matrices.Add(1)
	return c.Market.PriceMatrix(ctx, symbols, from, to)
}

func (c *countingMarket) PaymentsDue(ctx context.Context, symbols []Symbol, from, to date.Date) ([]PaymentEvent, error) {
	c.payments.Add(1)
	return c.Market.PaymentsDue(ctx, symbols, from, to)
}

func (c *countingMarket) TradingDays(ctx context.Context, from, to date.Date) ([]date.Date, error) {
	c.tradingDays.Add(1)
	return c.Market.TradingDays(ctx, from, to)
}
