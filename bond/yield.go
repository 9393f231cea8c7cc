package bond

import (
	"fmt"
	"math"
	"strings"

	"github.com/etnz/bondbt/date"
)

// Mode selects how the stub period T0 is discounted.
type Mode int

const (
	// Compound discounts the stub like any other period: (1+r)^T0.
	Compound Mode = iota
	// Simple discounts the stub with simple interest: 1 + T0·r.
	Simple
)

func (m Mode) String() string {
	switch m {
	case Compound:
		return "compound"
	case Simple:
		return "simple"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "0", "compound", "1" or "simple".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "0", "compound":
		return Compound, nil
	case "1", "simple":
		return Simple, nil
	default:
		return 0, fmt.Errorf("unknown day-count mode %q", s)
	}
}

// Solver holds the Newton-Raphson parameters of the yield computation.
type Solver struct {
	Guess     float64 // Guess is the annual starting yield, as a decimal (0.03 is 3%).
	Tolerance float64 // Tolerance is relative to the target price.
	MaxIter   int
}

// DefaultSolver is used by YTM.
var DefaultSolver = Solver{Guess: 0.03, Tolerance: 1e-8, MaxIter: 100}

// cashflows is the discounted cash-flow function of a bond at a settlement date.
//
// The full-period value is computed at the next anniversary, the coupon paid
// there included, and discounted back over the stub T0:
//
//	V(r)  = Σ_{t∈ts} C/(1+r)^t + Par/(1+r)^{t_last}
//	P(r)  = V(r) / D(r)   with D = (1+r)^T0 or D = 1 + T0·r
//
// r is the rate per period.
type cashflows struct {
	coupon  float64
	par     float64
	t0      float64
	periods []int
	mode    Mode
}

func newCashflows(terms Terms, settlement date.Date, mode Mode) (cashflows, error) {
	if mode != Compound && mode != Simple {
		return cashflows{}, fmt.Errorf("unknown day-count mode %d", int(mode))
	}
	s, err := NewSchedule(terms, settlement)
	if err != nil {
		return cashflows{}, err
	}
	return cashflows{
		coupon:  terms.Coupon(),
		par:     terms.Par,
		t0:      s.T0,
		periods: s.Periods,
		mode:    mode,
	}, nil
}

// inDomain reports whether every discount factor is positive at r.
func (c cashflows) inDomain(r float64) bool {
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= -1 {
		return false
	}
	return c.mode != Simple || 1+c.t0*r > 0
}

// value returns the price and its derivative with respect to r.
func (c cashflows) value(r float64) (price, deriv float64) {
	var v, dv float64
	for _, t := range c.periods {
		ft := float64(t)
		v += c.coupon * math.Pow(1+r, -ft)
		dv -= ft * c.coupon * math.Pow(1+r, -ft-1)
	}
	last := float64(c.periods[len(c.periods)-1])
	v += c.par * math.Pow(1+r, -last)
	dv -= last * c.par * math.Pow(1+r, -last-1)

	var d, dd float64
	switch c.mode {
	case Compound:
		d = math.Pow(1+r, c.t0)
		dd = c.t0 * math.Pow(1+r, c.t0-1)
	case Simple:
		d = 1 + c.t0*r
		dd = c.t0
	}
	return v / d, (dv*d - v*dd) / (d * d)
}

// Price returns the dirty price of the bond for an annual yield in percent.
func Price(terms Terms, settlement date.Date, yield float64, mode Mode) (float64, error) {
	c, err := newCashflows(terms, settlement, mode)
	if err != nil {
		return 0, err
	}
	r := yield / 100 / float64(terms.Frequency)
	if !c.inDomain(r) {
		return 0, fmt.Errorf("%w: %v%% is outside of the discounting domain", ErrInvalidYield, yield)
	}
	p, _ := c.value(r)
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%w: price is not finite for yield %v%%", ErrNumericalDivergence, yield)
	}
	return p, nil
}

// YTM returns the annual yield to maturity, in percent, implied by a dirty
// price. It uses DefaultSolver.
func YTM(terms Terms, settlement date.Date, price float64, mode Mode) (float64, error) {
	return DefaultSolver.YTM(terms, settlement, price, mode)
}

// YTM solves Price(y) = price by Newton-Raphson.
func (s Solver) YTM(terms Terms, settlement date.Date, price float64, mode Mode) (float64, error) {
	if !(price > 0) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	c, err := newCashflows(terms, settlement, mode)
	if err != nil {
		return 0, err
	}
	freq := float64(terms.Frequency)

	r := s.Guess / freq
	if !c.inDomain(r) {
		return 0, fmt.Errorf("%w: initial guess %v is outside of the discounting domain", ErrNumericalDivergence, s.Guess)
	}
	for range s.MaxIter {
		p, dp := c.value(r)
		if math.IsNaN(p) || math.IsInf(p, 0) || math.IsNaN(dp) || math.IsInf(dp, 0) {
			return 0, fmt.Errorf("%w: non finite price at rate %v", ErrNumericalDivergence, r)
		}
		diff := p - price
		if math.Abs(diff) < s.Tolerance*price {
			return freq * r * 100, nil
		}
		if dp == 0 {
			return 0, fmt.Errorf("%w: flat price function at rate %v", ErrNumericalDivergence, r)
		}

		// a step leaving the domain is halved until it is back in.
		step := diff / dp
		for !c.inDomain(r - step) {
			step /= 2
			if math.Abs(step) < 1e-15 {
				return 0, fmt.Errorf("%w: stuck on the domain boundary at rate %v", ErrNumericalDivergence, r)
			}
		}
		r -= step
	}
	return 0, fmt.Errorf("%w: no convergence after %d iterations", ErrNumericalDivergence, s.MaxIter)
}
