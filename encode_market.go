package bondbt

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
	"github.com/sirupsen/logrus"
)

// A market folder holds three JSONL files, human-readable and git-friendly:
//
//	bonds.jsonl     {"symbol":"070205.IB","issue":"2007-03-05","years":10,"coupon":3.4,"frequency":1,"par":100}
//	prices.jsonl    {"on":"2014-01-20","symbol":"070205.IB","dirty":100,"clean":98.9,"yield":3.52}
//	calendar.jsonl  {"on":"2014-01-20"}
//
// Only bonds.jsonl is mandatory. In prices.jsonl every field but "on" and
// "symbol" is optional.
const (
	BondsFile    = "bonds.jsonl"
	PricesFile   = "prices.jsonl"
	CalendarFile = "calendar.jsonl"
)

// jbond is a line of bonds.jsonl.
type jbond struct {
	Symbol    string    `json:"symbol"`
	Issue     date.Date `json:"issue"`
	Years     float64   `json:"years"`
	Coupon    float64   `json:"coupon"`
	Frequency int       `json:"frequency"`
	Par       float64   `json:"par"`
}

// jprice is a line of prices.jsonl.
type jprice struct {
	On     date.Date `json:"on"`
	Symbol string    `json:"symbol"`
	Dirty  *float64  `json:"dirty"`
	Clean  *float64  `json:"clean"`
	Yield  *float64  `json:"yield"`
}

// fileLine structures a line from a file as the persistence layer represent it.
type fileLine struct {
	filename string
	i        int
	txt      string
}

// loadLines reads all non empty lines of a file. A missing file has no lines
// unless it is required.
func loadLines(filename string, required bool) ([]fileLine, error) {
	r, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot open %q for reading: %w", filename, err)
	}
	defer r.Close()

	var list []fileLine
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		txt := scanner.Text()
		if strings.TrimSpace(txt) == "" {
			continue
		}
		list = append(list, fileLine{filename, i, txt})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", filename, err)
	}
	return list, nil
}

// DecodeMarket reads a market folder.
func DecodeMarket(dir string) (*Market, error) {
	m := NewMarket()

	bonds, err := loadLines(filepath.Join(dir, BondsFile), true)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	prices, err := loadLines(filepath.Join(dir, PricesFile), false)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}
	calendar, err := loadLines(filepath.Join(dir, CalendarFile), false)
	if err != nil {
		return nil, fmt.Errorf("load error: %w", err)
	}

	var errs []error
	for _, l := range bonds {
		errs = append(errs, decodeBond(m, l))
	}
	for _, l := range prices {
		errs = append(errs, decodePrice(m, l))
	}
	for _, l := range calendar {
		var j struct {
			On date.Date `json:"on"`
		}
		if err := json.Unmarshal([]byte(l.txt), &j); err != nil {
			errs = append(errs, fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err))
			continue
		}
		m.AddTradingDay(j.On)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeBond decodes a single line of bonds.jsonl.
func decodeBond(m *Market, l fileLine) error {
	var j jbond
	if err := json.Unmarshal([]byte(l.txt), &j); err != nil {
		return fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err)
	}
	if _, exists := m.Bond(Symbol(j.Symbol)); exists {
		return fmt.Errorf("parse error %s:%v: bond %q is already defined", l.filename, l.i, j.Symbol)
	}
	terms := bond.Terms{
		Issue:      j.Issue,
		Years:      j.Years,
		CouponRate: j.Coupon,
		Frequency:  bond.Frequency(j.Frequency),
		Par:        j.Par,
	}
	if err := m.AddBond(Symbol(j.Symbol), terms); err != nil {
		return fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err)
	}
	return nil
}

// decodePrice decodes a single line of prices.jsonl.
func decodePrice(m *Market, l fileLine) error {
	var j jprice
	if err := json.Unmarshal([]byte(l.txt), &j); err != nil {
		return fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err)
	}
	if j.On.IsZero() || j.Symbol == "" {
		return fmt.Errorf("parse error %s:%v: \"on\" and \"symbol\" are mandatory", l.filename, l.i)
	}
	for field, v := range map[PriceField]*float64{Dirty: j.Dirty, Clean: j.Clean, Yield: j.Yield} {
		if v != nil {
			m.SetPrice(j.On, Symbol(j.Symbol), field, *v)
		}
	}
	return nil
}

// EncodeMarket writes a market into a folder. The calendar file is only
// written for an explicit calendar.
func EncodeMarket(dir string, m *Market) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("persist error: %w", err)
	}
	symbols := m.Symbols()

	err := writeFile(filepath.Join(dir, BondsFile), func(w io.Writer) error {
		for _, s := range symbols {
			t, ok := m.Bond(s)
			if !ok {
				continue
			}
			if err := writeLine(w, jbond{string(s), t.Issue, t.Years, t.CouponRate, int(t.Frequency), t.Par}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = writeFile(filepath.Join(dir, PricesFile), func(w io.Writer) error {
		for _, s := range symbols {
			dirty, clean, yield := m.History(s, Dirty), m.History(s, Clean), m.History(s, Yield)
			var histories []*date.History[float64]
			for _, h := range []*date.History[float64]{dirty, clean, yield} {
				if h != nil {
					histories = append(histories, h)
				}
			}
			for on := range date.Iterate(histories...) {
				if err := encodePrice(w, on, s, dirty, clean, yield); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	calendar := m.Calendar()
	if len(calendar) == 0 {
		return nil
	}
	return writeFile(filepath.Join(dir, CalendarFile), func(w io.Writer) error {
		for _, on := range calendar {
			var jw jsonObjectWriter
			jw.Append("on", on)
			if err := writeLine(w, &jw); err != nil {
				return err
			}
		}
		return nil
	})
}

// encodePrice persists a single line of prices.jsonl, fields in a stable order.
func encodePrice(w io.Writer, on date.Date, s Symbol, dirty, clean, yield *date.History[float64]) error {
	get := func(h *date.History[float64]) *float64 {
		if h == nil {
			return nil
		}
		if v, ok := h.Get(on); ok {
			return &v
		}
		return nil
	}
	var jw jsonObjectWriter
	jw.Append("on", on)
	jw.Append("symbol", s)
	jw.Optional("dirty", get(dirty))
	jw.Optional("clean", get(clean))
	jw.Optional("yield", get(yield))
	return writeLine(w, &jw)
}

func writeLine(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// writeFile creates filename and fills it with write.
func writeFile(filename string, write func(io.Writer) error) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("persist error: cannot create file %q: %w", filename, err)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		return fmt.Errorf("persist error: write error on file %q: %w", filename, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("persist error: write error on file %q: %w", filename, err)
	}
	logrus.WithField("name", filename).Debug("market file written")
	return f.Close()
}
