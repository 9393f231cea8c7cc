package bondbt

import (
	"errors"

	"github.com/etnz/bondbt/bond"
)

var (
	// ErrInvalidOrder is returned for a non-positive volume or a missing symbol.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrOutOfOrder is returned when an order is dated before the current snapshot.
	ErrOutOfOrder = errors.New("order out of chronological order")
	// ErrInsufficientCash is returned when an operation would make cash negative.
	ErrInsufficientCash = errors.New("insufficient cash")
	// ErrInsufficientPosition is returned when selling more than is held.
	ErrInsufficientPosition = errors.New("insufficient position")
	// ErrPriceNotFound is returned by MarketData when no price is available.
	ErrPriceNotFound = errors.New("price not found")
)

// Errors from the bond package, for callers that only import this one.
var (
	ErrInvalidSettlementDate = bond.ErrInvalidSettlementDate
	ErrNumericalDivergence   = bond.ErrNumericalDivergence
	ErrInvalidTerms          = bond.ErrInvalidTerms
	ErrInvalidPrice          = bond.ErrInvalidPrice
)
