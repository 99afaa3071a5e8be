package settlement

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/amm"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	alice  = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	poolID = common.HexToAddress("0x000000000000000000000000000000000000f001")
)

func TestLedgerDebitInsufficient(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, tokenA, big.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	err := l.Debit(alice, tokenA, big.NewInt(101))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if got := l.Balance(alice, tokenA); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("failed debit must not change balance, got %s", got)
	}

	if err := l.Debit(alice, tokenA, big.NewInt(100)); err != nil {
		t.Fatalf("exact debit: %v", err)
	}
	if got := l.Balance(alice, tokenA); got.Sign() != 0 {
		t.Errorf("balance after full debit = %s, want 0", got)
	}
}

func TestLedgerZeroDebitFreshAccount(t *testing.T) {
	l := NewLedger()

	// account has never been credited; a zero debit must be a no-op
	if err := l.Debit(alice, tokenA, big.NewInt(0)); err != nil {
		t.Fatalf("zero debit on fresh account: %v", err)
	}
	if got := l.Balance(alice, tokenA); got.Sign() != 0 {
		t.Errorf("balance after zero debit = %s, want 0", got)
	}
}

func TestLedgerNegativeAmountsRejected(t *testing.T) {
	l := NewLedger()
	if err := l.Credit(alice, tokenA, big.NewInt(-1)); err == nil {
		t.Error("negative credit should fail")
	}
	if err := l.Debit(alice, tokenA, big.NewInt(-1)); err == nil {
		t.Error("negative debit should fail")
	}
}

func TestLedgerSnapshotRevert(t *testing.T) {
	l := NewLedger()
	l.Credit(alice, tokenA, big.NewInt(1000))

	snap := l.Snapshot()
	l.Debit(alice, tokenA, big.NewInt(400))
	l.Credit(alice, tokenB, big.NewInt(77))

	if err := l.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}
	if got := l.Balance(alice, tokenA); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("tokenA after revert = %s, want 1000", got)
	}
	if got := l.Balance(alice, tokenB); got.Sign() != 0 {
		t.Errorf("tokenB after revert = %s, want 0", got)
	}
}

func TestLedgerRevertDropsLaterSnapshots(t *testing.T) {
	l := NewLedger()
	l.Credit(alice, tokenA, big.NewInt(10))

	outer := l.Snapshot()
	l.Credit(alice, tokenA, big.NewInt(5))
	inner := l.Snapshot()
	l.Credit(alice, tokenA, big.NewInt(5))

	if err := l.RevertToSnapshot(outer); err != nil {
		t.Fatalf("revert outer: %v", err)
	}
	if got := l.Balance(alice, tokenA); got.Cmp(big.NewInt(10)) != 0 {
		t.Errorf("balance = %s, want 10", got)
	}
	if err := l.RevertToSnapshot(inner); err == nil {
		t.Error("inner snapshot should be invalid after outer revert")
	}
}

func newTestPool(env *Environment) *Pool {
	return NewPool(poolID, "alpha", tokenA, tokenB, 30, env.Ledger(), env)
}

func TestPoolQuoteMatchesFormula(t *testing.T) {
	env := NewEnvironment(true)
	pool := newTestPool(env)
	if err := pool.Seed(big.NewInt(10_000_000), big.NewInt(20_000_000)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	in := big.NewInt(50_000)
	q, err := pool.Quote([]common.Address{tokenA, tokenB}, in)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	want := amm.GetAmountOut(in, big.NewInt(10_000_000), big.NewInt(20_000_000), 30)
	if q.AmountOut.Cmp(want) != 0 {
		t.Errorf("amount out = %s, want %s", q.AmountOut, want)
	}
	if q.ReserveIn.Cmp(big.NewInt(10_000_000)) != 0 || q.ReserveOut.Cmp(big.NewInt(20_000_000)) != 0 {
		t.Errorf("reserves = %s/%s, want 10000000/20000000", q.ReserveIn, q.ReserveOut)
	}
}

func TestPoolQuoteErrors(t *testing.T) {
	env := NewEnvironment(true)
	pool := newTestPool(env)

	// empty pool
	_, err := pool.Quote([]common.Address{tokenA, tokenB}, big.NewInt(100))
	if !errors.Is(err, amm.ErrNoLiquidity) {
		t.Fatalf("empty pool: expected ErrNoLiquidity, got %v", err)
	}

	// unknown pair
	pool.Seed(big.NewInt(1000), big.NewInt(1000))
	other := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	_, err = pool.Quote([]common.Address{tokenA, other}, big.NewInt(100))
	if !errors.Is(err, amm.ErrNoLiquidity) {
		t.Fatalf("unknown pair: expected ErrNoLiquidity, got %v", err)
	}
}

func TestPoolSwapMovesFundsAndReserves(t *testing.T) {
	env := NewEnvironment(true)
	ledger := env.Ledger()
	pool := newTestPool(env)
	pool.Seed(big.NewInt(1_000_000), big.NewInt(1_000_000))
	ledger.Credit(alice, tokenA, big.NewInt(10_000))

	out, err := pool.Swap([]common.Address{tokenA, tokenB}, big.NewInt(10_000), big.NewInt(1), alice, env.Period())
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	if got := ledger.Balance(alice, tokenA); got.Sign() != 0 {
		t.Errorf("alice tokenA = %s, want 0", got)
	}
	if got := ledger.Balance(alice, tokenB); got.Cmp(out) != 0 {
		t.Errorf("alice tokenB = %s, want %s", got, out)
	}

	// the swap is reflected in the pool's own reserves
	if got := ledger.Balance(poolID, tokenA); got.Cmp(big.NewInt(1_010_000)) != 0 {
		t.Errorf("pool tokenA reserve = %s, want 1010000", got)
	}
	wantB := new(big.Int).Sub(big.NewInt(1_000_000), out)
	if got := ledger.Balance(poolID, tokenB); got.Cmp(wantB) != 0 {
		t.Errorf("pool tokenB reserve = %s, want %s", got, wantB)
	}
}

func TestPoolSwapDeadline(t *testing.T) {
	env := NewEnvironment(true)
	pool := newTestPool(env)
	pool.Seed(big.NewInt(1000), big.NewInt(1000))
	env.Ledger().Credit(alice, tokenA, big.NewInt(100))

	env.AdvancePeriod()
	env.AdvancePeriod()

	_, err := pool.Swap([]common.Address{tokenA, tokenB}, big.NewInt(100), big.NewInt(1), alice, 1)
	if !errors.Is(err, ErrDeadlinePassed) {
		t.Fatalf("expected ErrDeadlinePassed, got %v", err)
	}
}

func TestPoolSwapSlippage(t *testing.T) {
	env := NewEnvironment(true)
	pool := newTestPool(env)
	pool.Seed(big.NewInt(1_000_000), big.NewInt(1_000_000))
	env.Ledger().Credit(alice, tokenA, big.NewInt(10_000))

	// demand more than the pool can give at this size
	_, err := pool.Swap([]common.Address{tokenA, tokenB}, big.NewInt(10_000), big.NewInt(10_000), alice, env.Period())
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	if got := env.Ledger().Balance(alice, tokenA); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("failed swap must not move funds, alice has %s", got)
	}
}

func TestRunAtomicCommit(t *testing.T) {
	env := NewEnvironment(true)
	env.Ledger().Credit(alice, tokenA, big.NewInt(100))

	err := env.RunAtomic(func() error {
		return env.Ledger().Debit(alice, tokenA, big.NewInt(30))
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if got := env.Ledger().Balance(alice, tokenA); got.Cmp(big.NewInt(70)) != 0 {
		t.Errorf("balance = %s, want 70", got)
	}
}

func TestRunAtomicRollback(t *testing.T) {
	env := NewEnvironment(true)
	ledger := env.Ledger()
	pool := newTestPool(env)
	pool.Seed(big.NewInt(1_000_000), big.NewInt(1_000_000))
	ledger.Credit(alice, tokenA, big.NewInt(10_000))

	batchErr := errors.New("leg two failed")
	err := env.RunAtomic(func() error {
		// a swap succeeds mid-batch, then the batch fails
		if _, err := pool.Swap([]common.Address{tokenA, tokenB}, big.NewInt(10_000), big.NewInt(1), alice, env.Period()); err != nil {
			return err
		}
		return batchErr
	})
	if !errors.Is(err, batchErr) {
		t.Fatalf("expected batch error, got %v", err)
	}

	// every balance, pool reserves included, is exactly as before the batch
	if got := ledger.Balance(alice, tokenA); got.Cmp(big.NewInt(10_000)) != 0 {
		t.Errorf("alice tokenA = %s, want 10000", got)
	}
	if got := ledger.Balance(alice, tokenB); got.Sign() != 0 {
		t.Errorf("alice tokenB = %s, want 0", got)
	}
	if got := ledger.Balance(poolID, tokenA); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("pool tokenA = %s, want 1000000", got)
	}
	if got := ledger.Balance(poolID, tokenB); got.Cmp(big.NewInt(1_000_000)) != 0 {
		t.Errorf("pool tokenB = %s, want 1000000", got)
	}
}

func TestRunAtomicPanicReverts(t *testing.T) {
	env := NewEnvironment(true)
	env.Ledger().Credit(alice, tokenA, big.NewInt(100))

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic should propagate out of the batch")
			}
		}()
		env.RunAtomic(func() error {
			env.Ledger().Debit(alice, tokenA, big.NewInt(100))
			panic("mid-batch failure")
		})
	}()

	if got := env.Ledger().Balance(alice, tokenA); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("balance after panic = %s, want 100", got)
	}
}

func TestLendingPoolFeeAndBorrow(t *testing.T) {
	env := NewEnvironment(true)
	lp := NewLendingPool(common.HexToAddress("0x00000000000000000000000000000000000f10a0"), 9, env.Ledger())
	lp.Seed(tokenA, big.NewInt(1_000_000))

	if fee := lp.Fee(big.NewInt(100_000)); fee.Cmp(big.NewInt(90)) != 0 {
		t.Errorf("fee on 100000 at 9 bps = %s, want 90", fee)
	}

	if err := lp.Borrow(tokenA, big.NewInt(400_000), alice); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if got := lp.Available(tokenA); got.Cmp(big.NewInt(600_000)) != 0 {
		t.Errorf("available = %s, want 600000", got)
	}
	if got := env.Ledger().Balance(alice, tokenA); got.Cmp(big.NewInt(400_000)) != 0 {
		t.Errorf("borrower balance = %s, want 400000", got)
	}

	err := lp.Borrow(tokenA, big.NewInt(700_000), alice)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("over-borrow: expected ErrInsufficientBalance, got %v", err)
	}
}

func TestEnvironmentPeriod(t *testing.T) {
	env := NewEnvironment(false)
	if env.Period() != 0 {
		t.Fatalf("period = %d, want 0", env.Period())
	}
	for i := 0; i < 5; i++ {
		env.AdvancePeriod()
	}
	if env.Period() != 5 {
		t.Errorf("period = %d, want 5", env.Period())
	}
	if env.Simulated() {
		t.Error("environment built with simulated=false")
	}
}
