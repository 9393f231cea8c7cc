package cmd

import (
	"context"
	"errors"
	"flag"

	"github.com/etnz/bondbt"
	"github.com/etnz/bondbt/bond"
	"github.com/etnz/bondbt/date"
)

// bondFlags describes a bond either by its symbol in the market or by its terms.
type bondFlags struct {
	symbol string
	issue  string
	years  float64
	rate   float64
	freq   string
	par    float64
	date   string
	mode   string
}

func (b *bondFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&b.symbol, "s", "", "symbol of the bond in the market, instead of the terms flags")
	f.StringVar(&b.issue, "issue", "", "issue date")
	f.Float64Var(&b.years, "years", 0, "term in years")
	f.Float64Var(&b.rate, "rate", 0, "annual coupon rate in percent")
	f.StringVar(&b.freq, "freq", "annual", "coupon frequency (annual, semiannual)")
	f.Float64Var(&b.par, "par", 100, "par value")
	f.StringVar(&b.date, "d", date.Today().String(), "settlement date")
	f.StringVar(&b.mode, "mode", "compound", "stub discounting (compound, simple)")
}

// terms returns the bond terms, from the market if a symbol is given.
func (b *bondFlags) terms(ctx context.Context) (string, bond.Terms, error) {
	if b.symbol != "" {
		s, err := openSession(ctx)
		if err != nil {
			return "", bond.Terms{}, err
		}
		defer s.Close()
		t, err := s.bond(ctx, bondbt.Symbol(b.symbol))
		return b.symbol, t, err
	}
	if b.issue == "" {
		return "", bond.Terms{}, errors.New("either -s or -issue is required")
	}
	issue, err := date.Parse(b.issue)
	if err != nil {
		return "", bond.Terms{}, err
	}
	freq, err := bond.ParseFrequency(b.freq)
	if err != nil {
		return "", bond.Terms{}, err
	}
	t := bond.Terms{Issue: issue, Years: b.years, CouponRate: b.rate, Frequency: freq, Par: b.par}
	if err := t.Validate(); err != nil {
		return "", bond.Terms{}, err
	}
	return "custom", t, nil
}

// settlement parses the settlement date and the discounting mode.
func (b *bondFlags) settlement() (date.Date, bond.Mode, error) {
	on, err := date.Parse(b.date)
	if err != nil {
		return date.Date{}, 0, err
	}
	mode, err := bond.ParseMode(b.mode)
	if err != nil {
		return date.Date{}, 0, err
	}
	return on, mode, nil
}
