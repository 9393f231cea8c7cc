package bondbt

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
)

// Market is an in-memory MarketData.
//
// Clean prices and yields that are not stored are derived from the dirty
// price and the bond terms. Without an explicit calendar every weekday is a
// trading day.
type Market struct {
	mu       sync.RWMutex
	bonds    map[Symbol]bond.Terms
	prices   map[priceKey]*date.History[float64]
	calendar []date.Date // sorted
}

type priceKey struct {
	symbol Symbol
	field  PriceField
}

// NewMarket returns a new empty market.
func NewMarket() *Market {
	return &Market{
		bonds:  make(map[Symbol]bond.Terms),
		prices: make(map[priceKey]*date.History[float64]),
	}
}

// AddBond declares the terms of a bond.
func (m *Market) AddBond(symbol Symbol, terms bond.Terms) error {
	if symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidTerms)
	}
	if err := terms.Validate(); err != nil {
		return fmt.Errorf("bond %q: %w", symbol, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bonds[symbol] = terms
	return nil
}

// Bond returns the terms of a bond.
func (m *Market) Bond(symbol Symbol) (bond.Terms, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.bonds[symbol]
	return t, ok
}

// Symbols returns every symbol with terms or prices, sorted.
func (m *Market) Symbols() []Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set := make(map[Symbol]struct{})
	for s := range m.bonds {
		set[s] = struct{}{}
	}
	for k := range m.prices {
		set[k.symbol] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// SetPrice records a quote.
func (m *Market) SetPrice(on date.Date, symbol Symbol, field PriceField, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := priceKey{symbol, field}
	h, ok := m.prices[k]
	if !ok {
		h = new(date.History[float64])
		m.prices[k] = h
	}
	h.Append(on, value)
}

// stored returns a quote as recorded.
func (m *Market) stored(on date.Date, symbol Symbol, field PriceField) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.prices[priceKey{symbol, field}]
	if !ok {
		return 0, false
	}
	return h.Get(on)
}

// History returns the stored quotes of a symbol, nil if none.
func (m *Market) History(symbol Symbol, field PriceField) *date.History[float64] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prices[priceKey{symbol, field}]
}

// AddTradingDay adds a day to the calendar.
func (m *Market) AddTradingDay(on date.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, found := slices.BinarySearchFunc(m.calendar, on, date.Date.Compare)
	if !found {
		m.calendar = slices.Insert(m.calendar, i, on)
	}
}

// Calendar returns the explicit trading days, nil if every weekday trades.
func (m *Market) Calendar() []date.Date {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.calendar)
}

// Price implements MarketData.
func (m *Market) Price(ctx context.Context, on date.Date, symbol Symbol, field PriceField) (decimal.Decimal, error) {
	if v, ok := m.stored(on, symbol, field); ok {
		return decimal.NewFromFloat(v), nil
	}
	dirty, ok := m.stored(on, symbol, Dirty)
	terms, known := m.Bond(symbol)
	if field == Dirty || !ok || !known {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %s on %s", ErrPriceNotFound, symbol, field, on)
	}
	var v float64
	var err error
	switch field {
	case Clean:
		v, err = bond.CleanPrice(terms, on, dirty)
	case Yield:
		v, err = bond.YTM(terms, on, dirty, bond.Compound)
	default:
		return decimal.Decimal{}, fmt.Errorf("unknown price field %d", int(field))
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot derive %s of %s on %s: %w", field, symbol, on, err)
	}
	return decimal.NewFromFloat(v), nil
}

// PriceMatrix implements MarketData.
func (m *Market) PriceMatrix(ctx context.Context, symbols []Symbol, from, to date.Date) (PriceMatrix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r := date.NewRange(from, to)
	matrix := make(PriceMatrix, len(symbols))
	for _, s := range symbols {
		h, ok := m.prices[priceKey{s, Dirty}]
		if !ok {
			continue
		}
		for on, v := range h.Between(r) {
			matrix.Set(s, on, decimal.NewFromFloat(v))
		}
	}
	return matrix, nil
}

// PaymentsDue implements MarketData. Symbols without terms pay nothing.
func (m *Market) PaymentsDue(ctx context.Context, symbols []Symbol, from, to date.Date) ([]PaymentEvent, error) {
	var events []PaymentEvent
	for _, s := range symbols {
		terms, ok := m.Bond(s)
		if !ok {
			continue
		}
		events = append(events, PaymentsFromTerms(s, terms, from, to)...)
	}
	slices.SortStableFunc(events, func(a, b PaymentEvent) int { return a.On.Compare(b.On) })
	return events, nil
}

// TradingDays implements MarketData.
func (m *Market) TradingDays(ctx context.Context, from, to date.Date) ([]date.Date, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var days []date.Date
	if len(m.calendar) > 0 {
		i, _ := slices.BinarySearchFunc(m.calendar, from, date.Date.Compare)
		for ; i < len(m.calendar) && m.calendar[i].Before(to); i++ {
			days = append(days, m.calendar[i])
		}
		return days, nil
	}
	for d := range date.NewRange(from, to).Days() {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, d)
		}
	}
	return days, nil
}
