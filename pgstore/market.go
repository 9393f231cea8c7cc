package pgstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Market reads market data from PostgreSQL. It is safe for concurrent use.
type Market struct {
	db    querier
	close func()
	log   logrus.FieldLogger

	mu    sync.Mutex
	bonds map[bondbt.Symbol]bond.Terms // terms are immutable, read once
}

func newMarket(db querier) *Market {
	return &Market{
		db:    db,
		log:   logrus.StandardLogger(),
		bonds: make(map[bondbt.Symbol]bond.Terms),
	}
}

// WithLogger sets the logger.
func (m *Market) WithLogger(l logrus.FieldLogger) *Market {
	m.log = l
	return m
}

// column maps a price field to its tb_sec column.
func column(f bondbt.PriceField) (string, error) {
	switch f {
	case bondbt.Dirty:
		return "dirty", nil
	case bondbt.Clean:
		return "clean", nil
	case bondbt.Yield:
		return "ytm", nil
	default:
		return "", fmt.Errorf("postgres: unknown price field %d", int(f))
	}
}

func symbolStrings(symbols []bondbt.Symbol) []string {
	codes := make([]string, len(symbols))
	for i, s := range symbols {
		codes[i] = string(s)
	}
	return codes
}

// Price implements bondbt.MarketData.
func (m *Market) Price(ctx context.Context, on date.Date, symbol bondbt.Symbol, field bondbt.PriceField) (decimal.Decimal, error) {
	col, err := column(field)
	if err != nil {
		return decimal.Decimal{}, err
	}
	query := `SELECT ` + col + ` FROM tb_sec WHERE code = $1 AND dt = $2`
	var v *float64
	err = m.db.QueryRow(ctx, query, string(symbol), on.Time()).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && v == nil) {
		return decimal.Decimal{}, fmt.Errorf("%w: %s %s on %s", bondbt.ErrPriceNotFound, symbol, field, on)
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("postgres: get %s of %s on %s: %w", field, symbol, on, err)
	}
	return decimal.NewFromFloat(*v), nil
}

// PriceMatrix implements bondbt.MarketData.
func (m *Market) PriceMatrix(ctx context.Context, symbols []bondbt.Symbol, from, to date.Date) (bondbt.PriceMatrix, error) {
	const query = `
		SELECT code, dt, dirty FROM tb_sec
		WHERE code = ANY($1) AND dt >= $2 AND dt < $3 AND dirty IS NOT NULL
		ORDER BY code, dt`
	rows, err := m.db.Query(ctx, query, symbolStrings(symbols), from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("postgres: price matrix %s: %w", date.NewRange(from, to), err)
	}
	defer rows.Close()

	matrix := make(bondbt.PriceMatrix, len(symbols))
	for rows.Next() {
		var code string
		var dt time.Time
		var dirty float64
		if err := rows.Scan(&code, &dt, &dirty); err != nil {
			return nil, fmt.Errorf("postgres: scan price: %w", err)
		}
		matrix.Set(bondbt.Symbol(code), date.FromTime(dt), decimal.NewFromFloat(dirty))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: price matrix %s: %w", date.NewRange(from, to), err)
	}
	return matrix, nil
}

// Bond returns the terms of a bond.
func (m *Market) Bond(ctx context.Context, symbol bondbt.Symbol) (bond.Terms, error) {
	terms, err := m.terms(ctx, []bondbt.Symbol{symbol})
	if err != nil {
		return bond.Terms{}, err
	}
	t, ok := terms[symbol]
	if !ok {
		return bond.Terms{}, fmt.Errorf("postgres: bond %q: %w", symbol, pgx.ErrNoRows)
	}
	return t, nil
}

// terms returns the terms of the known symbols, loading the missing ones.
func (m *Market) terms(ctx context.Context, symbols []bondbt.Symbol) (map[bondbt.Symbol]bond.Terms, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []bondbt.Symbol
	for _, s := range symbols {
		if _, ok := m.bonds[s]; !ok {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		if err := m.loadTerms(ctx, missing); err != nil {
			return nil, err
		}
	}

	terms := make(map[bondbt.Symbol]bond.Terms, len(symbols))
	for _, s := range symbols {
		if t, ok := m.bonds[s]; ok {
			terms[s] = t
		}
	}
	return terms, nil
}

// loadTerms reads tb_bond. Callers hold m.mu.
func (m *Market) loadTerms(ctx context.Context, symbols []bondbt.Symbol) error {
	const query = `SELECT code, issue, term, rate, freq, par FROM tb_bond WHERE code = ANY($1)`
	rows, err := m.db.Query(ctx, query, symbolStrings(symbols))
	if err != nil {
		return fmt.Errorf("postgres: load bonds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		var issue time.Time
		var t bond.Terms
		var freq int32
		if err := rows.Scan(&code, &issue, &t.Years, &t.CouponRate, &freq, &t.Par); err != nil {
			return fmt.Errorf("postgres: scan bond: %w", err)
		}
		t.Issue = date.FromTime(issue)
		t.Frequency = bond.Frequency(freq)
		if err := t.Validate(); err != nil {
			return fmt.Errorf("postgres: bond %q: %w", code, err)
		}
		m.bonds[bondbt.Symbol(code)] = t
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: load bonds: %w", err)
	}
	m.log.WithField("count", len(symbols)).Debug("bond terms loaded")
	return nil
}

// PaymentsDue implements bondbt.MarketData. Payments derive from tb_bond,
// symbols without terms pay nothing.
func (m *Market) PaymentsDue(ctx context.Context, symbols []bondbt.Symbol, from, to date.Date) ([]bondbt.PaymentEvent, error) {
	terms, err := m.terms(ctx, symbols)
	if err != nil {
		return nil, err
	}
	var events []bondbt.PaymentEvent
	for _, s := range symbols {
		if t, ok := terms[s]; ok {
			events = append(events, bondbt.PaymentsFromTerms(s, t, from, to)...)
		}
	}
	slices.SortStableFunc(events, func(a, b bondbt.PaymentEvent) int { return a.On.Compare(b.On) })
	return events, nil
}

// TradingDays implements bondbt.MarketData.
func (m *Market) TradingDays(ctx context.Context, from, to date.Date) ([]date.Date, error) {
	const query = `SELECT dt FROM tb_calendar WHERE dt >= $1 AND dt < $2 ORDER BY dt`
	rows, err := m.db.Query(ctx, query, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("postgres: trading days %s: %w", date.NewRange(from, to), err)
	}
	defer rows.Close()
	var days []date.Date
	for rows.Next() {
		var dt time.Time
		if err := rows.Scan(&dt); err != nil {
			return nil, fmt.Errorf("postgres: scan day: %w", err)
		}
		days = append(days, date.FromTime(dt))
	}
	return days, rows.Err()
}
