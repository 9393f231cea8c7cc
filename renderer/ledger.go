package renderer

import (
	"github.com/etnz/bondbt"
)

// Ledger is the view of a sequence of snapshots.
type Ledger struct {
	Currency string
	From, To string
	Rows     []LedgerRow
	Holdings []HoldingRow // Holdings of the last snapshot.
}

// LedgerRow is a single snapshot.
type LedgerRow struct {
	On       string
	Kind     string
	Cash     string
	Holdings string
}

// HoldingRow is the volume held of a symbol.
type HoldingRow struct {
	Symbol string
	Volume int64
}

// NewLedger builds the view of snapshots, in their order.
func NewLedger(snapshots []bondbt.Snapshot) *Ledger {
	l := &Ledger{}
	if len(snapshots) == 0 {
		return l
	}
	first, last := snapshots[0], snapshots[len(snapshots)-1]
	l.Currency = first.Cash.Currency()
	l.From, l.To = first.On.String(), last.On.String()
	for _, s := range snapshots {
		l.Rows = append(l.Rows, LedgerRow{
			On:       s.On.String(),
			Kind:     s.Kind.String(),
			Cash:     s.Cash.Value().StringFixed(2),
			Holdings: s.Holdings.String(),
		})
	}
	for symbol, volume := range last.Holdings.All() {
		l.Holdings = append(l.Holdings, HoldingRow{Symbol: string(symbol), Volume: volume})
	}
	return l
}
