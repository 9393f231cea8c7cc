package pgstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// fakeRows is a pgx.Rows over in-memory values.
type fakeRows struct {
	data [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.i-1], nil }

func (r *fakeRows) Next() bool {
	if r.i >= len(r.data) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return scanInto(r.data[r.i-1], dest)
}

// fakeRow is a pgx.Row.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.values, dest)
}

// scanInto assigns values to pointers by reflection, nil values to nil.
func scanInto(values []any, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		d := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			d.Set(reflect.Zero(d.Type()))
			continue
		}
		src := reflect.ValueOf(v)
		if d.Kind() == reflect.Pointer {
			p := reflect.New(d.Type().Elem())
			p.Elem().Set(src.Convert(d.Type().Elem()))
			d.Set(p)
			continue
		}
		d.Set(src.Convert(d.Type()))
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

type fakeDB struct {
	row     func(sql string, args []any) fakeRow
	rows    func(sql string, args []any) (*fakeRows, error)
	queries []call
	copied  [][]any
	table   pgx.Identifier
	columns []string
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, call{sql, args})
	r, err := db.rows(sql, args)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.queries = append(db.queries, call{sql, args})
	return db.row(sql, args)
}

func (db *fakeDB) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	db.table, db.columns = table, columns
	for src.Next() {
		v, err := src.Values()
		if err != nil {
			return 0, err
		}
		db.copied = append(db.copied, v)
	}
	return int64(len(db.copied)), src.Err()
}

func day(s string) time.Time { return date.MustParse(s).Time() }

func TestPrice(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{row: func(sql string, args []any) fakeRow {
		switch args[0] {
		case "100315":
			return fakeRow{values: []any{101.75}}
		case "NULL":
			return fakeRow{values: []any{nil}}
		default:
			return fakeRow{err: pgx.ErrNoRows}
		}
	}}
	m := newMarket(db)
	on := date.New(2014, 3, 17)

	got, err := m.Price(ctx, on, "100315", bondbt.Clean)
	if err != nil {
		t.Fatalf("Price() error = %v", err)
	}
	if !got.Equal(decimal.RequireFromString("101.75")) {
		t.Errorf("Price() = %v, want 101.75", got)
	}
	if q := db.queries[0].sql; !strings.Contains(q, "SELECT clean FROM tb_sec") {
		t.Errorf("Price() query = %q, want the clean column", q)
	}

	for _, symbol := range []bondbt.Symbol{"NULL", "MISSING"} {
		if _, err := m.Price(ctx, on, symbol, bondbt.Dirty); !errors.Is(err, bondbt.ErrPriceNotFound) {
			t.Errorf("Price(%s) error = %v, want ErrPriceNotFound", symbol, err)
		}
	}
}

func TestPriceMatrix(t *testing.T) {
	db := &fakeDB{rows: func(sql string, args []any) (*fakeRows, error) {
		return &fakeRows{data: [][]any{
			{"A", day("2014-01-02"), 100.5},
			{"A", day("2014-01-03"), 100.25},
			{"B", day("2014-01-02"), 99.0},
		}}, nil
	}}
	m := newMarket(db)
	got, err := m.PriceMatrix(context.Background(), []bondbt.Symbol{"A", "B"}, date.New(2014, 1, 2), date.New(2014, 1, 6))
	if err != nil {
		t.Fatalf("PriceMatrix() error = %v", err)
	}
	want := bondbt.PriceMatrix{
		"A": {date.New(2014, 1, 2): decimal.RequireFromString("100.5"), date.New(2014, 1, 3): decimal.RequireFromString("100.25")},
		"B": {date.New(2014, 1, 2): decimal.RequireFromString("99")},
	}
	opts := []cmp.Option{
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
		cmp.Comparer(func(a, b date.Date) bool { return a == b }),
	}
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("PriceMatrix() mismatch (-want +got):\n%s", diff)
	}
	if codes := db.queries[0].args[0].([]string); !cmp.Equal(codes, []string{"A", "B"}) {
		t.Errorf("PriceMatrix() codes = %v", codes)
	}
}

func TestPaymentsDueCachesTerms(t *testing.T) {
	loads := 0
	db := &fakeDB{rows: func(sql string, args []any) (*fakeRows, error) {
		loads++
		return &fakeRows{data: [][]any{
			{"100315", day("2010-03-15"), 10.0, 3.5, int32(2), 100.0},
		}}, nil
	}}
	m := newMarket(db)
	ctx := context.Background()
	symbols := []bondbt.Symbol{"100315", "UNKNOWN"}

	for range 2 {
		events, err := m.PaymentsDue(ctx, symbols, date.New(2014, 1, 1), date.New(2015, 1, 1))
		if err != nil {
			t.Fatalf("PaymentsDue() error = %v", err)
		}
		var got []date.Date
		for _, e := range events {
			got = append(got, e.On)
		}
		want := []date.Date{date.New(2014, 3, 15), date.New(2014, 9, 15)}
		if !cmp.Equal(got, want, cmp.Comparer(func(a, b date.Date) bool { return a == b })) {
			t.Errorf("PaymentsDue() dates = %v, want %v", got, want)
		}
	}
	// UNKNOWN is looked up again, 100315 is not.
	if loads != 2 {
		t.Errorf("terms loaded %d times, want 2", loads)
	}
	if args := db.queries[1].args[0].([]string); !cmp.Equal(args, []string{"UNKNOWN"}) {
		t.Errorf("second load = %v, want [UNKNOWN]", args)
	}

	terms, err := m.Bond(ctx, "100315")
	if err != nil {
		t.Fatalf("Bond() error = %v", err)
	}
	if terms.Frequency != bond.Semiannual || terms.Par != 100 {
		t.Errorf("Bond() = %+v", terms)
	}
	if _, err := m.Bond(ctx, "UNKNOWN"); err == nil {
		t.Error("Bond(UNKNOWN) succeeded")
	}
}

func TestPaymentsDueSortedByDate(t *testing.T) {
	db := &fakeDB{rows: func(sql string, args []any) (*fakeRows, error) {
		return &fakeRows{data: [][]any{
			{"100315", day("2010-03-15"), 10.0, 3.5, int32(2), 100.0},
			{"070205", day("2007-03-05"), 10.0, 3.4, int32(1), 100.0},
		}}, nil
	}}
	events, err := newMarket(db).PaymentsDue(context.Background(), []bondbt.Symbol{"100315", "070205"}, date.New(2014, 1, 1), date.New(2015, 1, 1))
	if err != nil {
		t.Fatalf("PaymentsDue() error = %v", err)
	}
	var got []string
	for _, e := range events {
		got = append(got, e.On.String()+" "+string(e.Symbol))
	}
	want := []string{"2014-03-05 070205", "2014-03-15 100315", "2014-09-15 100315"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PaymentsDue() mismatch (-want +got):\n%s", diff)
	}
}

func TestInvalidTerms(t *testing.T) {
	db := &fakeDB{rows: func(sql string, args []any) (*fakeRows, error) {
		return &fakeRows{data: [][]any{{"X", day("2010-03-15"), 10.0, 3.5, int32(3), 100.0}}}, nil
	}}
	if _, err := newMarket(db).Bond(context.Background(), "X"); err == nil {
		t.Error("Bond() with frequency 3 succeeded")
	}
}

func TestTradingDays(t *testing.T) {
	db := &fakeDB{rows: func(sql string, args []any) (*fakeRows, error) {
		return &fakeRows{data: [][]any{{day("2014-01-02")}, {day("2014-01-03")}}}, nil
	}}
	got, err := newMarket(db).TradingDays(context.Background(), date.New(2014, 1, 1), date.New(2014, 1, 6))
	if err != nil {
		t.Fatalf("TradingDays() error = %v", err)
	}
	want := []date.Date{date.New(2014, 1, 2), date.New(2014, 1, 3)}
	if !cmp.Equal(got, want, cmp.Comparer(func(a, b date.Date) bool { return a == b })) {
		t.Errorf("TradingDays() = %v, want %v", got, want)
	}

	failing := &fakeDB{rows: func(string, []any) (*fakeRows, error) { return nil, errors.New("boom") }}
	if _, err := newMarket(failing).TradingDays(context.Background(), date.New(2014, 1, 1), date.New(2014, 1, 6)); err == nil {
		t.Error("TradingDays() succeeded on query failure")
	}
}

func TestSaveSeries(t *testing.T) {
	db := &fakeDB{}
	series := bondbt.Series{
		{On: date.New(2014, 1, 2), Cash: bondbt.M(10, "CNY"), Asset: bondbt.M(90, "CNY"), Total: bondbt.M(100, "CNY")},
		{On: date.New(2014, 1, 3), Cash: bondbt.M(10, "CNY"), Asset: bondbt.M(91, "CNY"), Total: bondbt.M(101, "CNY")},
	}
	id, err := newMarket(db).SaveSeries(context.Background(), series)
	if err != nil {
		t.Fatalf("SaveSeries() error = %v", err)
	}
	if id == uuid.Nil {
		t.Error("SaveSeries() returned a nil run id")
	}
	if !cmp.Equal(db.table, pgx.Identifier{"tb_value"}) {
		t.Errorf("table = %v", db.table)
	}
	if len(db.copied) != 2 {
		t.Fatalf("copied %d rows, want 2", len(db.copied))
	}
	if got := db.copied[1][0]; got != id {
		t.Errorf("run_id = %v, want %v", got, id)
	}
	if got := db.copied[1][4].(decimal.Decimal); !got.Equal(decimal.NewFromInt(101)) {
		t.Errorf("total = %v, want 101", got)
	}
}

func TestOpenEmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), ClientConfig{}); err == nil {
		t.Error("Open() with empty dsn succeeded")
	}
}
