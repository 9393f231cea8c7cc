package bondbt

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

var fees = FeeModel{Rate: decimal.RequireFromString("0.003")}

// snapshotComparers lets cmp compare snapshots.
var snapshotComparers = []cmp.Option{
	cmp.Comparer(Money.Equal),
	cmp.Comparer(Holdings.Equal),
	cmp.Comparer(func(a, b date.Date) bool { return a == b }),
}

func newEmptyPosition(t *testing.T, on string, cash float64) *Position {
	t.Helper()
	p, err := NewPosition(date.MustParse(on), CNY(cash), Holdings{}, fees)
	if err != nil {
		t.Fatalf("NewPosition() error = %v", err)
	}
	return p
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	m.SetPrice(date.MustParse("2014-01-20"), T070205, Dirty, 100.0)
	m.SetPrice(date.MustParse("2014-01-29"), T070205, Dirty, 101.0)

	p := newEmptyPosition(t, "2014-01-16", 100_000_000)

	if err := p.ApplyOrder(ctx, mustOrder(t, "2014-01-20", Buy, T070205, 100_000), m); err != nil {
		t.Fatalf("ApplyOrder(buy) error = %v", err)
	}
	if got, want := p.Current().Cash, CNY(89_999_700); !got.Equal(want) {
		t.Errorf("cash after buy = %v, want %v", got.Value(), want.Value())
	}
	if diff := cmp.Diff(map[Symbol]int64{T070205: 100_000}, p.Current().Holdings.Map()); diff != "" {
		t.Errorf("holdings after buy mismatch (-want +got):\n%s", diff)
	}

	if err := p.ApplyOrder(ctx, mustOrder(t, "2014-01-29", Sell, T070205, 100_000), m); err != nil {
		t.Fatalf("ApplyOrder(sell) error = %v", err)
	}
	if got, want := p.Current().Cash, CNY(100_099_400); !got.Equal(want) {
		t.Errorf("cash after sell = %v, want %v", got.Value(), want.Value())
	}
	if !p.Current().Holdings.IsEmpty() {
		t.Errorf("holdings after sell = %v, want empty", p.Current().Holdings)
	}

	want := []SnapshotKind{Initial, Trade, Trade}
	if p.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", p.Len(), len(want))
	}
	for i, k := range want {
		if p.At(i).Kind != k {
			t.Errorf("At(%d).Kind = %v, want %v", i, p.At(i).Kind, k)
		}
	}
}

func TestApplyOrderErrors(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	m.SetPrice(date.MustParse("2014-01-20"), T070205, Dirty, 100.0)
	m.SetPrice(date.MustParse("2014-01-21"), T070205, Dirty, 100.0)

	testCases := []struct {
		name  string
		cash  float64
		order Order
		want  error
	}{
		{
			name:  "insufficient cash",
			cash:  1_000,
			order: Order{On: date.MustParse("2014-01-21"), Side: Buy, Symbol: T070205, Volume: 100},
			want:  ErrInsufficientCash,
		},
		{
			name:  "insufficient cash for the fee only",
			cash:  10_000,
			order: Order{On: date.MustParse("2014-01-21"), Side: Buy, Symbol: T070205, Volume: 100},
			want:  ErrInsufficientCash,
		},
		{
			name:  "sell more than held",
			cash:  1_000_000,
			order: Order{On: date.MustParse("2014-01-21"), Side: Sell, Symbol: T070205, Volume: 101},
			want:  ErrInsufficientPosition,
		},
		{
			name:  "sell unheld",
			cash:  1_000_000,
			order: Order{On: date.MustParse("2014-01-21"), Side: Sell, Symbol: T100315, Volume: 1},
			want:  ErrPriceNotFound, // price is looked up first
		},
		{
			name:  "out of order",
			cash:  1_000_000,
			order: Order{On: date.MustParse("2014-01-19"), Side: Buy, Symbol: T070205, Volume: 1},
			want:  ErrOutOfOrder,
		},
		{
			name:  "no price",
			cash:  1_000_000,
			order: Order{On: date.MustParse("2014-01-22"), Side: Buy, Symbol: T070205, Volume: 1},
			want:  ErrPriceNotFound,
		},
		{
			name:  "invalid volume",
			cash:  1_000_000,
			order: Order{On: date.MustParse("2014-01-21"), Side: Buy, Symbol: T070205, Volume: 0},
			want:  ErrInvalidOrder,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// start with 100 units bought on 2014-01-20 at 100 with no fee.
			h, _ := NewHoldings(map[Symbol]int64{T070205: 100})
			p, err := NewPosition(date.MustParse("2014-01-20"), CNY(tc.cash), h, fees)
			if err != nil {
				t.Fatal(err)
			}
			before := p.Snapshots()

			err = p.ApplyOrder(ctx, tc.order, m)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ApplyOrder() error = %v, want %v", err, tc.want)
			}
			if diff := cmp.Diff(before, p.Snapshots(), snapshotComparers...); diff != "" {
				t.Errorf("position changed on error (-before +after):\n%s", diff)
			}
		})
	}
}

func TestSellUnheld(t *testing.T) {
	m := newTestMarket(t)
	m.SetPrice(date.MustParse("2014-01-21"), T100315, Dirty, 100.0)
	p := newEmptyPosition(t, "2014-01-20", 1_000_000)
	err := p.ApplyOrder(context.Background(), mustOrder(t, "2014-01-21", Sell, T100315, 1), m)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Errorf("ApplyOrder() error = %v, want %v", err, ErrInsufficientPosition)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestCouponInjection(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	m.SetPrice(date.MustParse("2014-03-10"), T100315, Dirty, 101.0)
	m.SetPrice(date.MustParse("2014-09-20"), T100315, Dirty, 99.0)
	m.SetPrice(date.MustParse("2015-03-20"), T100315, Dirty, 99.0)

	p := newEmptyPosition(t, "2014-03-01", 1_000_000)
	if err := p.ApplyOrder(ctx, mustOrder(t, "2014-03-10", Buy, T100315, 1_000), m); err != nil {
		t.Fatal(err)
	}
	afterBuy := p.Current().Cash // 1,000,000 - 101,000 - 3

	if err := p.ApplyOrder(ctx, mustOrder(t, "2014-09-20", Buy, T100315, 1), m); err != nil {
		t.Fatal(err)
	}

	// initial, buy, coupon, buy
	if p.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", p.Len())
	}
	coupon := p.At(2)
	if coupon.Kind != Coupon || coupon.On != date.MustParse("2014-09-15") {
		t.Errorf("At(2) = %v, want a coupon on 2014-09-15", coupon)
	}
	// 1000 units · 3.5/2
	if got, want := coupon.Cash, afterBuy.Add(CNY(1_750)); !got.Equal(want) {
		t.Errorf("coupon cash = %v, want %v", got.Value(), want.Value())
	}
	if !coupon.Holdings.Equal(p.At(1).Holdings) {
		t.Errorf("coupon holdings = %v, want %v", coupon.Holdings, p.At(1).Holdings)
	}

	// the next coupon is paid on 1001 units.
	if err := p.Settle(ctx, date.MustParse("2015-03-20"), m); err != nil {
		t.Fatal(err)
	}
	if p.Len() != 5 {
		t.Fatalf("Len() after Settle = %d, want 5", p.Len())
	}
	if got, want := p.Current().Cash, p.At(3).Cash.Add(CNY(1_751.75)); !got.Equal(want) {
		t.Errorf("second coupon cash = %v, want %v", got.Value(), want.Value())
	}
}

func TestCouponsGroupedByDay(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	// same schedule as T100315
	other := Symbol("100315B.IB")
	terms, _ := m.Bond(T100315)
	if err := m.AddBond(other, terms); err != nil {
		t.Fatal(err)
	}
	h, _ := NewHoldings(map[Symbol]int64{T100315: 10, other: 20})
	p, err := NewPosition(date.MustParse("2014-01-01"), CNY(0), h, fees)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Settle(ctx, date.MustParse("2014-12-31"), m); err != nil {
		t.Fatal(err)
	}
	// 2014-03-15 and 2014-09-15, one snapshot each.
	if p.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", p.Len())
	}
	for i, want := range []float64{52.5, 105} {
		if got := p.At(i + 1).Cash; !got.Equal(CNY(want)) {
			t.Errorf("At(%d).Cash = %v, want %v", i+1, got.Value(), want)
		}
	}
}

func TestRedemption(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	h, _ := NewHoldings(map[Symbol]int64{T070205: 10})
	p, err := NewPosition(date.MustParse("2016-12-01"), CNY(0), h, fees)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Settle(ctx, date.MustParse("2017-12-31"), m); err != nil {
		t.Fatal(err)
	}
	// last coupon and par at maturity, 2017-03-05.
	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
	last := p.Current()
	if last.On != date.MustParse("2017-03-05") || !last.Cash.Equal(CNY(1_034)) {
		t.Errorf("Current() = %v, want 1034 on 2017-03-05", last)
	}
	if !last.Holdings.IsEmpty() {
		t.Errorf("holdings after redemption = %v, want empty", last.Holdings)
	}
}

func TestRedemptionFractionalTerm(t *testing.T) {
	ctx := context.Background()
	testCases := []struct {
		name     string
		terms    bond.Terms
		from, to string
		want     []float64 // cash of each payment snapshot
	}{
		{
			// maturity falls on the third anniversary.
			name:  "semiannual 1.51 years",
			terms: bond.Terms{Issue: date.MustParse("2014-01-15"), Years: 1.51, CouponRate: 4, Frequency: bond.Semiannual, Par: 100},
			from:  "2015-03-01", to: "2016-12-31",
			want: []float64{1_020},
		},
		{
			// short last period, full coupon paid at maturity.
			name:  "annual 2.5 years",
			terms: bond.Terms{Issue: date.MustParse("2014-01-15"), Years: 2.5, CouponRate: 4, Frequency: bond.Annual, Par: 100},
			from:  "2014-12-01", to: "2016-12-31",
			want: []float64{40, 80, 1_120},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMarket()
			if err := m.AddBond("FRAC.IB", tc.terms); err != nil {
				t.Fatal(err)
			}
			h, _ := NewHoldings(map[Symbol]int64{"FRAC.IB": 10})
			p, err := NewPosition(date.MustParse(tc.from), CNY(0), h, fees)
			if err != nil {
				t.Fatal(err)
			}
			if err := p.Settle(ctx, date.MustParse(tc.to), m); err != nil {
				t.Fatal(err)
			}
			var got []float64
			for _, s := range p.Snapshots()[1:] {
				got = append(got, s.Cash.Value().InexactFloat64())
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("payment cash mismatch (-want +got):\n%s", diff)
			}
			last := p.Current()
			if last.On != tc.terms.Maturity() || !last.Holdings.IsEmpty() {
				t.Errorf("Current() = %v, want empty holdings on %v", last, tc.terms.Maturity())
			}
		})
	}
}

func TestDuplicatePaymentsPaidOnce(t *testing.T) {
	ctx := context.Background()
	m := &repeatingMarket{Market: newTestMarket(t)}
	h, _ := NewHoldings(map[Symbol]int64{T100315: 10})
	p, err := NewPosition(date.MustParse("2019-08-01"), CNY(0), h, fees)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Settle(ctx, date.MustParse("2020-12-31"), m); err != nil {
		t.Fatal(err)
	}
	// 10 · 1.75 on 2019-09-15, then 10 · 101.75 once at maturity.
	if got := p.Current().Cash; !got.Equal(CNY(1_035)) {
		t.Errorf("cash after maturity = %v, want 1035", got.Value())
	}
	if p.Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Len())
	}
	if diff := cmp.Diff(m.order, eventDates(m.last)); diff != "" {
		t.Errorf("PaymentsDue() result was reordered (-want +got):\n%s", diff)
	}
}

// repeatingMarket returns every payment twice, latest first.
type repeatingMarket struct {
	*Market
	last  []PaymentEvent
	order []string
}

func (r *repeatingMarket) PaymentsDue(ctx context.Context, symbols []Symbol, from, to date.Date) ([]PaymentEvent, error) {
	events, err := r.Market.PaymentsDue(ctx, symbols, from, to)
	if err != nil {
		return nil, err
	}
	var out []PaymentEvent
	for i := len(events) - 1; i >= 0; i-- {
		out = append(out, events[i], events[i])
	}
	r.last, r.order = out, eventDates(out)
	return out, nil
}

func eventDates(events []PaymentEvent) []string {
	var dates []string
	for _, e := range events {
		dates = append(dates, e.On.String())
	}
	return dates
}

func TestFailedOrderDropsCoupons(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	h, _ := NewHoldings(map[Symbol]int64{T100315: 10})
	p, err := NewPosition(date.MustParse("2014-01-01"), CNY(0), h, fees)
	if err != nil {
		t.Fatal(err)
	}
	// no price on that day: the coupon of 2014-03-15 must not be appended.
	err = p.ApplyOrder(ctx, mustOrder(t, "2014-04-01", Buy, T100315, 1), m)
	if !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("ApplyOrder() error = %v, want %v", err, ErrPriceNotFound)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestLedgerInvariants(t *testing.T) {
	ctx := context.Background()
	m := newTestMarket(t)
	setDaily(m, T070205, "2014-01-01", "2015-01-01", 99.5)
	setDaily(m, T100315, "2014-01-01", "2015-01-01", 100.5)

	p := newEmptyPosition(t, "2014-01-01", 100_000)
	orders := []Order{
		mustOrder(t, "2014-01-06", Buy, T070205, 200),
		mustOrder(t, "2014-02-03", Buy, T100315, 300),
		mustOrder(t, "2014-02-03", Sell, T070205, 50),
		mustOrder(t, "2014-05-05", Buy, T070205, 1_000), // rejected: cash
		mustOrder(t, "2014-06-02", Sell, T100315, 400),  // rejected: position
		mustOrder(t, "2014-10-06", Sell, T100315, 300),
		mustOrder(t, "2014-12-01", Sell, T070205, 150),
	}
	for _, o := range orders {
		_ = p.ApplyOrder(ctx, o, m)
	}
	for i := range p.Len() {
		s := p.At(i)
		if s.Cash.IsNegative() {
			t.Errorf("At(%d).Cash = %v is negative", i, s.Cash.Value())
		}
		for symbol, v := range s.Holdings.All() {
			if v <= 0 {
				t.Errorf("At(%d).Holdings[%s] = %d", i, symbol, v)
			}
		}
		if i > 0 && s.On.Before(p.At(i-1).On) {
			t.Errorf("At(%d).On = %v is before %v", i, s.On, p.At(i-1).On)
		}
	}
	if !p.Current().Holdings.IsEmpty() {
		t.Errorf("final holdings = %v, want empty", p.Current().Holdings)
	}
}

func TestNewPositionErrors(t *testing.T) {
	if _, err := NewPosition(date.MustParse("2014-01-01"), CNY(-1), Holdings{}, fees); !errors.Is(err, ErrInsufficientCash) {
		t.Errorf("NewPosition(negative cash) error = %v, want %v", err, ErrInsufficientCash)
	}
	if _, err := NewHoldings(map[Symbol]int64{T070205: -1}); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("NewHoldings(negative) error = %v, want %v", err, ErrInvalidOrder)
	}
}
