package renderer

import (
	"github.com/etnz/bondbt"
	"github.com/shopspring/decimal"
)

// SeriesReport is the view of a value series.
type SeriesReport struct {
	Currency    string
	Rows        []SeriesRow
	First, Last SeriesRow
	Change      string // Change is the signed total variation from First to Last.
}

// SeriesRow is a single valuation day.
type SeriesRow struct {
	On    string
	Cash  string
	Asset string
	Total string
}

// NewSeriesReport builds the view of s.
func NewSeriesReport(s bondbt.Series) *SeriesReport {
	r := &SeriesReport{}
	if len(s) == 0 {
		return r
	}
	r.Currency = s[0].Total.Currency()
	for _, v := range s {
		r.Rows = append(r.Rows, SeriesRow{
			On:    v.On.String(),
			Cash:  v.Cash.Value().StringFixed(2),
			Asset: v.Asset.Value().StringFixed(2),
			Total: v.Total.Value().StringFixed(2),
		})
	}
	r.First, r.Last = r.Rows[0], r.Rows[len(r.Rows)-1]
	r.Change = signed(s[len(s)-1].Total.Value().Sub(s[0].Total.Value()))
	return r
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}
