package date

import (
	"fmt"
	"iter"
)

// Range represents a half-open range of dates [From, To).
type Range struct{ From, To Date }

// NewRange returns the half-open range [from, to).
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Days returns an iterator over every calendar day in the range.
func (r Range) Days() iter.Seq[Date] {
	return func(yield func(Date) bool) {
		for d := r.From; d.Before(r.To); d = d.Add(1) {
			if !yield(d) {
				return
			}
		}
	}
}

// String returns the range in interval notation.
func (r Range) String() string { return fmt.Sprintf("[%s, %s)", r.From, r.To) }
