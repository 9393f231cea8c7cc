package bondbt

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/etnz/bondbt/date"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// MarshalJSON writes the order as a single ordered object.
func (o Order) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("date", o.On)
	w.Append("side", o.Side.String())
	w.Append("symbol", o.Symbol)
	w.Append("volume", o.Volume)
	return w.MarshalJSON()
}

// DecodeOrders reads orders from a JSONL stream, one order per line:
//
//	{"date":"2014-01-20","side":"buy","symbol":"070205.IB","volume":100000}
//
// Every invalid line is reported, the returned orders are the valid ones in
// file order.
func DecodeOrders(r io.Reader) ([]Order, error) {
	var orders []Order
	var errs []error
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}
		// Use a temporary type that has all possible fields.
		var temp struct {
			Date   date.Date `json:"date"`
			Side   string    `json:"side"`
			Symbol string    `json:"symbol"`
			Volume int64     `json:"volume"`
		}
		if err := json.Unmarshal(line, &temp); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))
			continue
		}
		side, err := ParseSide(temp.Side)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))
			continue
		}
		o, err := NewOrder(temp.Date, side, Symbol(temp.Symbol), temp.Volume)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", n, err))
			continue
		}
		orders = append(orders, o)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	return orders, errors.Join(errs...)
}

// EncodeOrders writes orders as JSONL.
func EncodeOrders(w io.Writer, orders []Order) error {
	for _, o := range orders {
		b, err := json.Marshal(o)
		if err != nil {
			return fmt.Errorf("cannot encode %v: %w", o, err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}
