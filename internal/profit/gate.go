// Package profit implements the profitability gate. The same check runs
// twice per trade: once at opportunity discovery (possibly on slightly stale
// quotes) and once with live quotes right before commit. The pre-commit run
// is authoritative; a miss there aborts the attempt.
package profit

import (
	"math/big"
)

// Check carries everything the gate needs for one decision
type Check struct {
	AmountIn     *big.Int
	LegOneOut    *big.Int
	LegTwoOut    *big.Int
	FlashLoanFee *big.Int
	GasCost      *big.Int
	MinProfitBps int64
}

// Evaluate returns the net profit and whether it clears the configured
// minimum: netProfit * 10000 >= amountIn * minProfitBps.
func Evaluate(c Check) (netProfit *big.Int, profitable bool) {
	grossProfit := new(big.Int).Sub(c.LegTwoOut, c.AmountIn)

	netProfit = new(big.Int).Sub(grossProfit, c.FlashLoanFee)
	if c.GasCost != nil {
		netProfit.Sub(netProfit, c.GasCost)
	}

	lhs := new(big.Int).Mul(netProfit, big.NewInt(10000))
	rhs := new(big.Int).Mul(c.AmountIn, big.NewInt(c.MinProfitBps))

	return netProfit, lhs.Cmp(rhs) >= 0
}
