package bond

import (
	"fmt"

	"github.com/etnz/bondbt/date"
)

// Schedule is the position of a settlement date within the coupon calendar.
type Schedule struct {
	Previous date.Date // Previous is the last anniversary on or before settlement.
	Next     date.Date // Next is the coupon date following Previous.
	T0       float64   // T0 is the fraction of the current period elapsed, in [0,1).
	Elapsed  int       // Elapsed is the number of whole periods since issue.
	Periods  []int     // Periods lists the remaining coupon dates: 0..n-1.
}

// Remaining returns the number of coupons still to be paid.
func (s Schedule) Remaining() int { return len(s.Periods) }

// NewSchedule locates settlement in the coupon calendar of terms.
//
// Anniversaries are derived from the issue date by whole months, a missing day
// is clamped to the end of the month (issued on the 31st, paid on the 30th of
// June). Both bracketing anniversaries use the same rule, so T0 stays in
// [0,1). The period length is the actual number of days between them, the
// last period of a fractional term ending at maturity.
func NewSchedule(terms Terms, settlement date.Date) (Schedule, error) {
	if err := terms.Validate(); err != nil {
		return Schedule{}, err
	}
	if settlement.Before(terms.Issue) {
		return Schedule{}, fmt.Errorf("%w: %s is before issue date %s", ErrInvalidSettlementDate, settlement, terms.Issue)
	}
	maturity := terms.Maturity()
	if !settlement.Before(maturity) {
		return Schedule{}, fmt.Errorf("%w: %s is on or after maturity %s", ErrInvalidSettlementDate, settlement, maturity)
	}

	// first guess from the month count, then fix the edges.
	months := (settlement.Year()-terms.Issue.Year())*12 + int(settlement.Month()-terms.Issue.Month())
	k := max(months/terms.Frequency.months(), 0)
	for k > 0 && terms.anniversary(k).After(settlement) {
		k--
	}
	for !terms.anniversary(k + 1).After(settlement) {
		k++
	}

	remaining := 0
	for _, d := range terms.CouponDates() {
		if d.After(settlement) {
			remaining++
		}
	}
	prev, next := terms.anniversary(k), terms.anniversary(k+1)
	if next.After(maturity) {
		next = maturity
	}
	s := Schedule{
		Previous: prev,
		Next:     next,
		T0:       float64(prev.DaysUntil(settlement)) / float64(prev.DaysUntil(next)),
		Elapsed:  k,
		Periods:  make([]int, remaining),
	}
	for i := range s.Periods {
		s.Periods[i] = i
	}
	return s, nil
}

// AccruedInterest returns the coupon accrued since the last anniversary, per unit.
func AccruedInterest(terms Terms, settlement date.Date) (float64, error) {
	s, err := NewSchedule(terms, settlement)
	if err != nil {
		return 0, err
	}
	return terms.Coupon() * s.T0, nil
}

// CleanPrice returns the price net of accrued interest.
func CleanPrice(terms Terms, settlement date.Date, dirty float64) (float64, error) {
	ai, err := AccruedInterest(terms, settlement)
	if err != nil {
		return 0, err
	}
	return dirty - ai, nil
}

// DirtyPrice returns the price including accrued interest.
func DirtyPrice(terms Terms, settlement date.Date, clean float64) (float64, error) {
	ai, err := AccruedInterest(terms, settlement)
	if err != nil {
		return 0, err
	}
	return clean + ai, nil
}
