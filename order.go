package bondbt

import (
	"fmt"
	"strings"

	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// ParseSide accepts "buy" or "sell", case insensitive.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, s)
	}
}

// Order is an instruction to trade a volume of a bond on a given day, at that
// day's dirty price.
type Order struct {
	On     date.Date
	Symbol Symbol
	Volume int64
	Side   Side
}

// NewOrder returns a valid order.
func NewOrder(on date.Date, side Side, symbol Symbol, volume int64) (Order, error) {
	o := Order{On: on, Symbol: symbol, Volume: volume, Side: side}
	return o, o.Validate()
}

// Validate checks the order is well formed.
func (o Order) Validate() error {
	switch {
	case o.On.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidOrder)
	case o.Symbol == "":
		return fmt.Errorf("%w: missing symbol", ErrInvalidOrder)
	case o.Volume <= 0:
		return fmt.Errorf("%w: volume must be positive, got %d", ErrInvalidOrder, o.Volume)
	case o.Side != Buy && o.Side != Sell:
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, int(o.Side))
	}
	return nil
}

func (o Order) String() string {
	return fmt.Sprintf("%s %s %d %s", o.On, o.Side, o.Volume, o.Symbol)
}

// FeeModel computes transaction costs.
type FeeModel struct {
	Rate decimal.Decimal // Rate is charged per unit traded.
}

// Fee returns Rate·Volume.
func (f FeeModel) Fee(o Order) decimal.Decimal {
	return f.Rate.Mul(decimal.NewFromInt(o.Volume))
}
