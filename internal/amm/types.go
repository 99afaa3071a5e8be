package amm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// a TokenPair is two assets; unordered for scanning, ordered once a path is built
type TokenPair struct {
	Name string
	A    common.Address
	ADec int
	B    common.Address
	BDec int
}

// VenueQuote is a point-in-time quote from one venue. It is never mutated;
// a quote older than one period must be re-fetched before execution.
type VenueQuote struct {
	Venue      common.Address
	VenueName  string
	AmountIn   *big.Int
	AmountOut  *big.Int
	ReserveIn  *big.Int
	ReserveOut *big.Int
	Period     uint64
}

// Quoter is the read-only side of a venue
type Quoter interface {
	ID() common.Address
	Name() string
	Quote(path []common.Address, amountIn *big.Int) (*VenueQuote, error)
}

// Venue is a liquidity venue that can also execute swaps
type Venue interface {
	Quoter
	// Swap trades amountIn along path, failing if output < minAmountOut
	// or the deadline period has passed
	Swap(path []common.Address, amountIn, minAmountOut *big.Int, recipient common.Address, deadline uint64) (*big.Int, error)
}

// PeriodSource reports the current settlement period
type PeriodSource interface {
	Period() uint64
}
