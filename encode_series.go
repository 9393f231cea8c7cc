package bondbt

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeSeries writes a value series as JSONL, one day per line.
func EncodeSeries(w io.Writer, series Series) error {
	for _, v := range series {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("cannot encode value on %s: %w", v.On, err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// EncodeSnapshots writes the ledger of a position as JSONL.
func EncodeSnapshots(w io.Writer, p *Position) error {
	for i := range p.Len() {
		b, err := json.Marshal(p.At(i))
		if err != nil {
			return fmt.Errorf("cannot encode snapshot #%d: %w", i, err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}
