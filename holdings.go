package bondbt

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Symbol identifies a bond in the market, like "070205.IB".
type Symbol string

// Holding is a volume held for a symbol.
type Holding struct {
	Symbol Symbol
	Volume int64
}

// Holdings is an ordered map of Symbol to a strictly positive volume.
//
// Holdings are values: updates return a new Holdings and never modify the
// receiver, so a Snapshot can share them safely.
type Holdings struct {
	entries []Holding // sorted by symbol, volumes > 0
}

// NewHoldings builds holdings from a map. Zero volumes are dropped, negative
// ones are rejected.
func NewHoldings(volumes map[Symbol]int64) (Holdings, error) {
	var h Holdings
	for _, s := range slices.Sorted(maps.Keys(volumes)) {
		v := volumes[s]
		switch {
		case s == "":
			return Holdings{}, fmt.Errorf("%w: empty symbol in holdings", ErrInvalidOrder)
		case v < 0:
			return Holdings{}, fmt.Errorf("%w: negative volume %d for %q", ErrInvalidOrder, v, s)
		case v == 0:
			continue
		}
		h.entries = append(h.entries, Holding{Symbol: s, Volume: v})
	}
	return h, nil
}

func (h Holdings) search(s Symbol) (int, bool) {
	return slices.BinarySearchFunc(h.entries, s, func(e Holding, s Symbol) int { return cmp.Compare(e.Symbol, s) })
}

// Get returns the volume held for s, 0 if absent.
func (h Holdings) Get(s Symbol) int64 {
	if i, ok := h.search(s); ok {
		return h.entries[i].Volume
	}
	return 0
}

func (h Holdings) Len() int      { return len(h.entries) }
func (h Holdings) IsEmpty() bool { return len(h.entries) == 0 }

// Symbols returns the held symbols in order.
func (h Holdings) Symbols() []Symbol {
	symbols := make([]Symbol, len(h.entries))
	for i, e := range h.entries {
		symbols[i] = e.Symbol
	}
	return symbols
}

// All iterates over holdings in symbol order.
func (h Holdings) All() iter.Seq2[Symbol, int64] {
	return func(yield func(Symbol, int64) bool) {
		for _, e := range h.entries {
			if !yield(e.Symbol, e.Volume) {
				return
			}
		}
	}
}

// Map returns a copy of the holdings as a map.
func (h Holdings) Map() map[Symbol]int64 {
	m := make(map[Symbol]int64, len(h.entries))
	for _, e := range h.entries {
		m[e.Symbol] = e.Volume
	}
	return m
}

// Equal reports whether both holdings hold the same volumes.
func (h Holdings) Equal(o Holdings) bool { return slices.Equal(h.entries, o.entries) }

// Update returns a copy of the holdings with delta added to the volume of s.
// A volume reaching zero removes the symbol, a negative one fails with
// ErrInsufficientPosition.
func (h Holdings) Update(s Symbol, delta int64) (Holdings, error) {
	i, found := h.search(s)
	var held int64
	if found {
		held = h.entries[i].Volume
	}
	v := held + delta
	switch {
	case v < 0:
		return h, fmt.Errorf("%w: %d %s held, %d requested", ErrInsufficientPosition, held, s, -delta)
	case v == 0 && found:
		return Holdings{entries: slices.Delete(slices.Clone(h.entries), i, i+1)}, nil
	case v == 0:
		return h, nil
	case found:
		entries := slices.Clone(h.entries)
		entries[i].Volume = v
		return Holdings{entries: entries}, nil
	default:
		return Holdings{entries: slices.Insert(slices.Clone(h.entries), i, Holding{Symbol: s, Volume: v})}, nil
	}
}

// Without returns a copy of the holdings without s.
func (h Holdings) Without(s Symbol) Holdings {
	i, found := h.search(s)
	if !found {
		return h
	}
	return Holdings{entries: slices.Delete(slices.Clone(h.entries), i, i+1)}
}

func (h Holdings) String() string {
	if h.IsEmpty() {
		return "{}"
	}
	var b []byte
	for _, e := range h.entries {
		b = fmt.Appendf(b, " %s:%d", e.Symbol, e.Volume)
	}
	return "{" + string(b[1:]) + "}"
}

// MarshalJSON writes holdings as an object, in symbol order.
func (h Holdings) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	for _, e := range h.entries {
		w.Append(string(e.Symbol), e.Volume)
	}
	return w.MarshalJSON()
}
