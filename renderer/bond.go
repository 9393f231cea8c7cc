package renderer

import (
	"strconv"

	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
)

// BondReport is the view of a bond calendar, optionally at a settlement date.
type BondReport struct {
	Symbol     string
	Issue      string
	Maturity   string
	CouponRate string
	Frequency  string
	Par        string
	Coupons    []CouponRow

	// Set by At.
	Settlement string
	Previous   string
	Next       string
	T0         string
	Remaining  int
	Accrued    string

	// Set by At when a dirty price is given.
	Mode  string
	Dirty string
	Clean string
	Yield string

	terms bond.Terms
}

// CouponRow is a payment of the bond, per unit.
type CouponRow struct {
	N      int
	On     string
	Amount string
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

// NewBondReport builds the calendar of terms.
func NewBondReport(symbol string, terms bond.Terms) (*BondReport, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	b := &BondReport{
		Symbol:     symbol,
		Issue:      terms.Issue.String(),
		Maturity:   terms.Maturity().String(),
		CouponRate: strconv.FormatFloat(terms.CouponRate, 'f', -1, 64),
		Frequency:  terms.Frequency.String(),
		Par:        strconv.FormatFloat(terms.Par, 'f', -1, 64),
		terms:      terms,
	}
	dates := terms.CouponDates()
	for i, on := range dates {
		amount := terms.Coupon()
		if i == len(dates)-1 {
			amount += terms.Par
		}
		b.Coupons = append(b.Coupons, CouponRow{N: i + 1, On: on.String(), Amount: num(amount)})
	}
	return b, nil
}

// At locates settlement in the calendar. If dirty is positive the clean price
// and the yield in mode are computed too.
func (b *BondReport) At(settlement date.Date, dirty float64, mode bond.Mode) error {
	s, err := bond.NewSchedule(b.terms, settlement)
	if err != nil {
		return err
	}
	b.Settlement = settlement.String()
	b.Previous, b.Next = s.Previous.String(), s.Next.String()
	b.T0 = num(s.T0)
	b.Remaining = s.Remaining()
	b.Accrued = num(b.terms.Coupon() * s.T0)
	if dirty <= 0 {
		return nil
	}
	y, err := bond.YTM(b.terms, settlement, dirty, mode)
	if err != nil {
		return err
	}
	b.Mode = mode.String()
	b.Dirty = num(dirty)
	b.Clean = num(dirty - b.terms.Coupon()*s.T0)
	b.Yield = num(y)
	return nil
}
