package bondbt

import (
	"context"
	"fmt"
	"slices"

	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Position is a ledger: an append-only, chronological sequence of snapshots.
//
// A Position is not safe for concurrent mutation, but AssetValue can run
// while no order is being applied.
type Position struct {
	snapshots []Snapshot
	fees      FeeModel
	log       logrus.FieldLogger
}

// NewPosition returns a position holding cash and holdings on a given day.
func NewPosition(on date.Date, cash Money, holdings Holdings, fees FeeModel) (*Position, error) {
	if on.IsZero() {
		return nil, fmt.Errorf("%w: missing initial date", ErrInvalidOrder)
	}
	if cash.IsNegative() {
		return nil, fmt.Errorf("%w: initial cash %s", ErrInsufficientCash, cash.Value())
	}
	if fees.Rate.IsNegative() {
		return nil, fmt.Errorf("%w: negative fee rate %s", ErrInvalidOrder, fees.Rate)
	}
	return &Position{
		snapshots: []Snapshot{{On: on, Cash: cash, Holdings: holdings, Kind: Initial}},
		fees:      fees,
		log:       logrus.StandardLogger(),
	}, nil
}

// WithLogger sets the logger used to trace ledger operations.
func (p *Position) WithLogger(l logrus.FieldLogger) *Position {
	p.log = l
	return p
}

// Current returns the last snapshot.
func (p *Position) Current() Snapshot { return p.snapshots[len(p.snapshots)-1] }

// Len returns the number of snapshots.
func (p *Position) Len() int { return len(p.snapshots) }

// At returns the i-th snapshot.
func (p *Position) At(i int) Snapshot { return p.snapshots[i] }

// Snapshots returns a copy of all snapshots.
func (p *Position) Snapshots() []Snapshot { return slices.Clone(p.snapshots) }

// Currency returns the cash currency.
func (p *Position) Currency() string { return p.snapshots[0].Cash.Currency() }

// ApplyOrder credits the payments due up to the order date, then executes the
// order at that day's dirty price.
//
// Either every snapshot is appended or, on error, the position is left
// unchanged.
func (p *Position) ApplyOrder(ctx context.Context, order Order, market MarketData) error {
	if err := order.Validate(); err != nil {
		return err
	}
	current := p.Current()
	if order.On.Before(current.On) {
		return fmt.Errorf("%w: order on %s, ledger is on %s", ErrOutOfOrder, order.On, current.On)
	}

	pending, err := p.payments(ctx, current, order.On, market)
	if err != nil {
		return fmt.Errorf("cannot apply %v: %w", order, err)
	}
	last := current
	if len(pending) > 0 {
		last = pending[len(pending)-1]
	}

	price, err := market.Price(ctx, order.On, order.Symbol, Dirty)
	if err != nil {
		return fmt.Errorf("cannot apply %v: %w", order, err)
	}
	cur := p.Currency()
	amount := M(price, cur).Mul(decimal.NewFromInt(order.Volume))
	fee := M(p.fees.Fee(order), cur)

	next := Snapshot{On: order.On, Kind: Trade}
	switch order.Side {
	case Buy:
		next.Cash = last.Cash.Sub(amount).Sub(fee)
		if next.Cash.IsNegative() {
			return fmt.Errorf("cannot apply %v: %w: cost %s plus fee %s exceeds cash %s", order, ErrInsufficientCash, amount.Value(), fee.Value(), last.Cash.Value())
		}
		next.Holdings, err = last.Holdings.Update(order.Symbol, order.Volume)
	case Sell:
		next.Holdings, err = last.Holdings.Update(order.Symbol, -order.Volume)
		next.Cash = last.Cash.Add(amount).Sub(fee)
		if err == nil && next.Cash.IsNegative() {
			return fmt.Errorf("cannot apply %v: %w: fee %s exceeds proceeds and cash", order, ErrInsufficientCash, fee.Value())
		}
	}
	if err != nil {
		return fmt.Errorf("cannot apply %v: %w", order, err)
	}

	p.snapshots = append(p.snapshots, append(pending, next)...)
	p.log.WithFields(logrus.Fields{
		"date":   order.On,
		"side":   order.Side,
		"symbol": order.Symbol,
		"volume": order.Volume,
		"price":  price,
		"fee":    fee.Value(),
		"cash":   next.Cash.Value(),
	}).Debug("order applied")
	return nil
}

// Settle credits the payments due up to a day, without trading.
func (p *Position) Settle(ctx context.Context, on date.Date, market MarketData) error {
	current := p.Current()
	if on.Before(current.On) {
		return fmt.Errorf("%w: settle on %s, ledger is on %s", ErrOutOfOrder, on, current.On)
	}
	pending, err := p.payments(ctx, current, on, market)
	if err != nil {
		return fmt.Errorf("cannot settle on %s: %w", on, err)
	}
	p.snapshots = append(p.snapshots, pending...)
	return nil
}

// payments returns the coupon snapshots over (last.On, to], one per payment
// day, without appending them.
func (p *Position) payments(ctx context.Context, last Snapshot, to date.Date, market MarketData) ([]Snapshot, error) {
	if last.Holdings.IsEmpty() || !to.After(last.On) {
		return nil, nil
	}
	events, err := market.PaymentsDue(ctx, last.Holdings.Symbols(), last.On, to)
	if err != nil {
		return nil, err
	}
	events = slices.Clone(events)
	slices.SortStableFunc(events, func(a, b PaymentEvent) int { return a.On.Compare(b.On) })

	var pending []Snapshot
	for i := 0; i < len(events); {
		on := events[i].On
		if !on.After(last.On) || on.After(to) {
			return nil, fmt.Errorf("payment of %s on %s is outside of (%s, %s]", events[i].Symbol, on, last.On, to)
		}
		next := Snapshot{On: on, Cash: last.Cash, Holdings: last.Holdings, Kind: Coupon}
		paid := make(map[Symbol]bool)
		for ; i < len(events) && events[i].On == on; i++ {
			e := events[i]
			held := next.Holdings.Get(e.Symbol) // zero once redeemed that day
			if held == 0 || paid[e.Symbol] {
				continue
			}
			paid[e.Symbol] = true
			next.Cash = next.Cash.Add(M(e.Amount, next.Cash.Currency()).Mul(decimal.NewFromInt(held)))
			if e.Redemption {
				next.Holdings = next.Holdings.Without(e.Symbol)
			}
			p.log.WithFields(logrus.Fields{
				"date":       on,
				"symbol":     e.Symbol,
				"volume":     held,
				"amount":     e.Amount,
				"redemption": e.Redemption,
			}).Debug("payment credited")
		}
		if len(paid) > 0 {
			pending = append(pending, next)
			last = next
		}
	}
	return pending, nil
}
