// Package bond converts between price and yield-to-maturity for fixed-coupon
// bonds paying annual or semiannual coupons.
//
// Prices are per unit of the bond, in the same unit as Terms.Par (usually per
// 100 of face value). Yields and coupon rates are annual, in percent.
//
// All functions are pure and safe for concurrent use.
package bond

import (
	"errors"
	"fmt"
	"math"

	"github.com/etnz/bondbt/date"
)

var (
	// ErrInvalidSettlementDate is returned when the settlement date is before
	// the issue date, or on or after maturity.
	ErrInvalidSettlementDate = errors.New("invalid settlement date")
	// ErrNumericalDivergence is returned when the yield solver does not converge.
	ErrNumericalDivergence = errors.New("numerical divergence")
	// ErrInvalidTerms is returned for inconsistent bond terms.
	ErrInvalidTerms = errors.New("invalid bond terms")
	// ErrInvalidPrice is returned for a non-positive or non-finite price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidYield is returned for a yield outside of the discounting domain.
	ErrInvalidYield = errors.New("invalid yield")
)

// Frequency is the number of coupon payments per year.
type Frequency int

const (
	Annual     Frequency = 1
	Semiannual Frequency = 2
)

// months returns the number of months in a coupon period.
func (f Frequency) months() int { return 12 / int(f) }

func (f Frequency) String() string {
	switch f {
	case Annual:
		return "annual"
	case Semiannual:
		return "semiannual"
	default:
		return fmt.Sprintf("Frequency(%d)", int(f))
	}
}

// ParseFrequency accepts "1", "annual", "2" or "semiannual".
func ParseFrequency(s string) (Frequency, error) {
	switch s {
	case "1", "annual":
		return Annual, nil
	case "2", "semiannual":
		return Semiannual, nil
	default:
		return 0, fmt.Errorf("unknown coupon frequency %q", s)
	}
}

// Terms describes a fixed-coupon bond.
type Terms struct {
	Issue      date.Date // Issue is the date interest starts accruing.
	Years      float64   // Years is the nominal term, it may be fractional.
	CouponRate float64   // CouponRate is the annual coupon, in percent of Par.
	Frequency  Frequency
	Par        float64 // Par is the redemption value.
}

// Validate checks that the terms can be used to build a schedule.
func (t Terms) Validate() error {
	switch {
	case t.Issue.IsZero():
		return fmt.Errorf("%w: missing issue date", ErrInvalidTerms)
	case t.Frequency != Annual && t.Frequency != Semiannual:
		return fmt.Errorf("%w: frequency must be 1 or 2, got %d", ErrInvalidTerms, int(t.Frequency))
	case !(t.Years > 0) || math.IsInf(t.Years, 0):
		return fmt.Errorf("%w: term must be positive, got %v", ErrInvalidTerms, t.Years)
	case math.Round(t.Years*12) < 1:
		return fmt.Errorf("%w: term must be at least a month, got %v years", ErrInvalidTerms, t.Years)
	case !(t.Par > 0) || math.IsInf(t.Par, 0):
		return fmt.Errorf("%w: par must be positive, got %v", ErrInvalidTerms, t.Par)
	case !(t.CouponRate >= 0) || math.IsInf(t.CouponRate, 0):
		return fmt.Errorf("%w: coupon rate must be non negative, got %v", ErrInvalidTerms, t.CouponRate)
	}
	return nil
}

// Coupon returns the amount paid each period per unit.
func (t Terms) Coupon() float64 { return t.Par * t.CouponRate / 100 / float64(t.Frequency) }

// anniversary returns the k-th coupon anniversary, always computed from the issue date.
func (t Terms) anniversary(k int) date.Date { return t.Issue.AddMonths(k * t.Frequency.months()) }

// Maturity returns the redemption date.
func (t Terms) Maturity() date.Date {
	return t.Issue.AddMonths(int(math.Round(t.Years * 12)))
}

// CouponDates returns every payment date: the anniversaries strictly before
// maturity, then maturity. A fractional term ends with a short period.
func (t Terms) CouponDates() []date.Date {
	maturity := t.Maturity()
	var dates []date.Date
	for k := 1; t.anniversary(k).Before(maturity); k++ {
		dates = append(dates, t.anniversary(k))
	}
	return append(dates, maturity)
}
