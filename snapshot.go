package bondbt

import (
	"fmt"

	"github.com/etnz/bondbt/date"
)

// SnapshotKind tells what appended a snapshot.
type SnapshotKind int

const (
	Initial SnapshotKind = iota
	Trade
	Coupon
)

func (k SnapshotKind) String() string {
	switch k {
	case Initial:
		return "initial"
	case Trade:
		return "trade"
	case Coupon:
		return "coupon"
	default:
		return fmt.Sprintf("SnapshotKind(%d)", int(k))
	}
}

// Snapshot is the cash and holdings of a position at a point in time.
// Snapshots are never modified once appended to a Position.
type Snapshot struct {
	On       date.Date
	Cash     Money
	Holdings Holdings
	Kind     SnapshotKind
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s %s cash=%s holdings=%v", s.On, s.Kind, s.Cash.Value(), s.Holdings)
}

// MarshalJSON writes the snapshot as a single ordered object.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("on", s.On)
	w.Append("kind", s.Kind.String())
	w.Optional("currency", s.Cash.Currency())
	w.Append("cash", s.Cash.Value())
	w.Append("holdings", s.Holdings)
	return w.MarshalJSON()
}
