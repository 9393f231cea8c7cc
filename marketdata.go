package bondbt

import (
	"context"
	"fmt"
	"strings"

	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
)

// PriceField selects which quote of a bond is read.
type PriceField int

const (
	Dirty PriceField = iota
	Clean
	Yield
)

func (f PriceField) String() string {
	switch f {
	case Dirty:
		return "dirty"
	case Clean:
		return "clean"
	case Yield:
		return "yield"
	default:
		return fmt.Sprintf("PriceField(%d)", int(f))
	}
}

// ParsePriceField accepts "dirty", "clean" or "yield".
func ParsePriceField(s string) (PriceField, error) {
	switch strings.ToLower(s) {
	case "", "dirty":
		return Dirty, nil
	case "clean":
		return Clean, nil
	case "yield", "ytm":
		return Yield, nil
	default:
		return 0, fmt.Errorf("unknown price field %q", s)
	}
}

// PaymentEvent is a cash payment due to the holders of a bond.
type PaymentEvent struct {
	Symbol     Symbol
	On         date.Date
	Amount     decimal.Decimal // Amount is paid per unit held.
	Redemption bool            // Redemption marks the final payment, par included.
}

// PriceMatrix holds dirty prices by symbol and day.
type PriceMatrix map[Symbol]map[date.Date]decimal.Decimal

// Get returns the price of symbol on a day.
func (m PriceMatrix) Get(symbol Symbol, on date.Date) (decimal.Decimal, bool) {
	p, ok := m[symbol][on]
	return p, ok
}

// Set records the price of symbol on a day.
func (m PriceMatrix) Set(symbol Symbol, on date.Date, price decimal.Decimal) {
	row, ok := m[symbol]
	if !ok {
		row = make(map[date.Date]decimal.Decimal)
		m[symbol] = row
	}
	row[on] = price
}

// MarketData is the read-only source of prices, payments and calendar used by
// a Position. Implementations must be safe for concurrent use.
//
// A missing price is reported with an error wrapping ErrPriceNotFound.
type MarketData interface {
	// Price returns a quote of symbol on exactly that day.
	Price(ctx context.Context, on date.Date, symbol Symbol, field PriceField) (decimal.Decimal, error)
	// PriceMatrix returns the dirty prices of symbols over [from, to).
	PriceMatrix(ctx context.Context, symbols []Symbol, from, to date.Date) (PriceMatrix, error)
	// PaymentsDue returns the payments of symbols over (from, to], sorted by date.
	PaymentsDue(ctx context.Context, symbols []Symbol, from, to date.Date) ([]PaymentEvent, error)
	// TradingDays returns the trading days in [from, to), in order.
	TradingDays(ctx context.Context, from, to date.Date) ([]date.Date, error)
}

// CouponAmount returns the per-unit coupon of terms, computed in decimal so
// that the cash credited is exact.
func CouponAmount(terms bond.Terms) decimal.Decimal {
	return decimal.NewFromFloat(terms.Par).
		Mul(decimal.NewFromFloat(terms.CouponRate)).
		Div(decimal.NewFromInt(100 * int64(terms.Frequency)))
}

// PaymentsFromTerms returns the payments of a bond over (from, to].
// The payment at maturity includes the redemption of par.
func PaymentsFromTerms(symbol Symbol, terms bond.Terms, from, to date.Date) []PaymentEvent {
	coupon := CouponAmount(terms)
	maturity := terms.Maturity()
	var events []PaymentEvent
	for _, on := range terms.CouponDates() {
		if !on.After(from) {
			continue
		}
		if on.After(to) {
			break
		}
		e := PaymentEvent{Symbol: symbol, On: on, Amount: coupon}
		if on == maturity {
			e.Amount = coupon.Add(decimal.NewFromFloat(terms.Par))
			e.Redemption = true
		}
		events = append(events, e)
	}
	return events
}
