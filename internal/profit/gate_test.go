package profit

import (
	"math/big"
	"testing"
)

func TestEvaluateProfitable(t *testing.T) {
	// 100 in, 127 back, small fees: clearly profitable at 10 bps minimum
	net, ok := Evaluate(Check{
		AmountIn:     big.NewInt(100_000000),
		LegOneOut:    big.NewInt(99_700_000000),
		LegTwoOut:    big.NewInt(127_000000),
		FlashLoanFee: big.NewInt(90000), // 0.09%
		GasCost:      big.NewInt(10000),
		MinProfitBps: 10,
	})

	if !ok {
		t.Fatalf("expected profitable, net %s", net)
	}
	want := big.NewInt(26_900000) // 27 gross - fee - gas
	if net.Cmp(want) != 0 {
		t.Errorf("net profit = %s, want %s", net, want)
	}
}

func TestEvaluateRoundTripAtParLoses(t *testing.T) {
	// identical rates both ways with a non-zero flash fee: never profitable
	net, ok := Evaluate(Check{
		AmountIn:     big.NewInt(100_000000),
		LegOneOut:    big.NewInt(100_000_000000),
		LegTwoOut:    big.NewInt(100_000000),
		FlashLoanFee: big.NewInt(90000),
		MinProfitBps: 0,
	})

	if ok {
		t.Fatalf("par round trip with fee must not be profitable, net %s", net)
	}
	if net.Sign() >= 0 {
		t.Errorf("net should be negative, got %s", net)
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	// netProfit * 10000 == amountIn * minProfitBps is exactly profitable
	amountIn := big.NewInt(1_000_000)
	// net = 100, min 1 bps of 1,000,000 = 100 exactly
	net, ok := Evaluate(Check{
		AmountIn:     amountIn,
		LegOneOut:    big.NewInt(1),
		LegTwoOut:    big.NewInt(1_000_100),
		FlashLoanFee: big.NewInt(0),
		MinProfitBps: 1,
	})
	if !ok || net.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("boundary case should pass with net 100, got ok=%v net=%s", ok, net)
	}

	// one unit short fails
	_, ok = Evaluate(Check{
		AmountIn:     amountIn,
		LegOneOut:    big.NewInt(1),
		LegTwoOut:    big.NewInt(1_000_099),
		FlashLoanFee: big.NewInt(0),
		MinProfitBps: 1,
	})
	if ok {
		t.Error("one unit below threshold should fail")
	}
}

func TestEvaluateNilGasCost(t *testing.T) {
	net, ok := Evaluate(Check{
		AmountIn:     big.NewInt(100),
		LegOneOut:    big.NewInt(1000),
		LegTwoOut:    big.NewInt(200),
		FlashLoanFee: big.NewInt(1),
		MinProfitBps: 10,
	})
	if !ok {
		t.Errorf("expected profitable with nil gas cost, net %s", net)
	}
}
