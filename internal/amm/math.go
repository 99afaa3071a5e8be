package amm

import (
	"math/big"
)

// GetAmountOut calculates output for a constant-product swap after the venue
// fee. feeBps is the venue fee in basis points (30 = 0.3%).
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps int64) *big.Int {
	if amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}

	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(10000-feeBps))
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)

	denominator := new(big.Int).Mul(reserveIn, big.NewInt(10000))
	denominator.Add(denominator, amountInWithFee)

	return new(big.Int).Div(numerator, denominator)
}

// calculates price of token B in terms of token A adjusting for decimals
func CalculatePrice(reserveA, reserveB *big.Int, decimalsA, decimalsB int) *big.Float {
	rA := new(big.Float).SetInt(reserveA)
	rB := new(big.Float).SetInt(reserveB)

	// price = reserveA/reserveB * 10^(decimalsB-decimalsA)
	decimalAdj := new(big.Float).SetInt(
		new(big.Int).Exp(
			big.NewInt(10),
			big.NewInt(int64(decimalsB-decimalsA)),
			nil,
		),
	)

	price := new(big.Float).Quo(rA, rB)
	price.Mul(price, decimalAdj)

	return price
}

// returns difference of price between venues (percentage relative to the lower)
func ComparePrices(price1, price2 *big.Float) float64 {
	cmp := price1.Cmp(price2)
	if cmp == 0 {
		return 0.0
	}
	var higher, lower *big.Float
	if cmp > 0 {
		higher = price1
		lower = price2
	} else {
		higher = price2
		lower = price1
	}

	diff := new(big.Float).Sub(higher, lower)
	pctDiff := new(big.Float).Quo(diff, lower)
	pctDiff.Mul(pctDiff, big.NewFloat(100.0))

	result, _ := pctDiff.Float64()
	return result
}

// RoundTrip simulates both legs of an arbitrage against reserve snapshots and
// returns final output minus input. Leg 2 sees the trade-size price impact
// since it quotes against its own reserves with the full leg-1 output.
func RoundTrip(amountIn *big.Int, first, second *VenueQuote, feeBps int64) *big.Int {
	legOne := GetAmountOut(amountIn, first.ReserveIn, first.ReserveOut, feeBps)
	legTwo := GetAmountOut(legOne, second.ReserveOut, second.ReserveIn, feeBps)

	return new(big.Int).Sub(legTwo, amountIn)
}

// FindOptimalInput searches for the principal that maximises round-trip
// profit between two venues using ternary search over [minAmount, maxAmount].
func FindOptimalInput(first, second *VenueQuote, feeBps int64, minAmount, maxAmount *big.Int) (optimalInput, maxProfit *big.Int) {
	steps := 20

	left := new(big.Int).Set(minAmount)
	right := new(big.Int).Set(maxAmount)

	bestInput := new(big.Int).Set(minAmount)
	bestProfit := RoundTrip(minAmount, first, second, feeBps)

	for i := 0; i < steps; i++ {
		third := new(big.Int).Sub(right, left)
		third.Div(third, big.NewInt(3))
		mid1 := new(big.Int).Add(left, third)
		mid2 := new(big.Int).Add(left, new(big.Int).Mul(third, big.NewInt(2)))

		profit1 := RoundTrip(mid1, first, second, feeBps)
		profit2 := RoundTrip(mid2, first, second, feeBps)

		if profit1.Cmp(bestProfit) > 0 {
			bestProfit = profit1
			bestInput = mid1
		}
		if profit2.Cmp(bestProfit) > 0 {
			bestProfit = profit2
			bestInput = mid2
		}

		if profit1.Cmp(profit2) > 0 {
			right = mid2
		} else {
			left = mid1
		}
	}

	return bestInput, bestProfit
}
