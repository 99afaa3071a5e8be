package scanner

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/amm"
)

// Opportunity is a candidate two-leg arbitrage discovered by the scanner.
// It is consumed exactly once by the settlement pipeline and never persisted
// here; the storage collaborator gets the resulting settlement record.
type Opportunity struct {
	Pair        amm.TokenPair
	VenueFirst  common.Address
	VenueSecond common.Address
	AmountIn    *big.Int
	ExpectedOut *big.Int
	FeeCost     *big.Int
	GasCost     *big.Int
	NetProfit   *big.Int
	Divergence  float64
	Period      uint64
}

// pendingTrade is an opportunity that has been committed through the MEV
// guard and is waiting out the minimum reveal age
type pendingTrade struct {
	opp        *Opportunity
	commitment common.Hash
	secret     [32]byte
	params     []byte

	// wei bid the reveal would be submitted with, quoted at commit time
	feeBid *big.Int
}
