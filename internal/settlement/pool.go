package settlement

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/amm"
)

// Pool is a constant-product liquidity venue. Its reserves are held as
// ledger balances of the pool's own account, so batch rollback restores
// reserves and trader balances together.
type Pool struct {
	id     common.Address
	name   string
	token0 common.Address
	token1 common.Address
	feeBps int64

	ledger *Ledger
	clock  amm.PeriodSource
}

func NewPool(id common.Address, name string, token0, token1 common.Address, feeBps int64, ledger *Ledger, clock amm.PeriodSource) *Pool {
	return &Pool{
		id:     id,
		name:   name,
		token0: token0,
		token1: token1,
		feeBps: feeBps,
		ledger: ledger,
		clock:  clock,
	}
}

func (p *Pool) ID() common.Address { return p.id }
func (p *Pool) Name() string       { return p.name }

// Seed adds initial liquidity to the pool account
func (p *Pool) Seed(reserve0, reserve1 *big.Int) error {
	if err := p.ledger.Credit(p.id, p.token0, reserve0); err != nil {
		return err
	}
	return p.ledger.Credit(p.id, p.token1, reserve1)
}

func (p *Pool) reserves(tokenIn, tokenOut common.Address) (reserveIn, reserveOut *big.Int, err error) {
	if !p.hasPair(tokenIn, tokenOut) {
		return nil, nil, fmt.Errorf("%w: venue %s does not trade %s/%s",
			amm.ErrNoLiquidity, p.name, tokenIn.Hex(), tokenOut.Hex())
	}

	reserveIn = p.ledger.Balance(p.id, tokenIn)
	reserveOut = p.ledger.Balance(p.id, tokenOut)
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: venue %s pool is empty", amm.ErrNoLiquidity, p.name)
	}
	return reserveIn, reserveOut, nil
}

func (p *Pool) hasPair(a, b common.Address) bool {
	return (a == p.token0 && b == p.token1) || (a == p.token1 && b == p.token0)
}

// Quote applies the constant-product formula with the venue fee. Read-only,
// safe to call concurrently.
func (p *Pool) Quote(path []common.Address, amountIn *big.Int) (*amm.VenueQuote, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("pool quote supports 2-token paths, got %d", len(path))
	}

	reserveIn, reserveOut, err := p.reserves(path[0], path[1])
	if err != nil {
		return nil, err
	}

	amountOut := amm.GetAmountOut(amountIn, reserveIn, reserveOut, p.feeBps)

	return &amm.VenueQuote{
		Venue:      p.id,
		VenueName:  p.name,
		AmountIn:   new(big.Int).Set(amountIn),
		AmountOut:  amountOut,
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
		Period:     p.clock.Period(),
	}, nil
}

// Swap trades amountIn for the path's output token, moving funds between the
// recipient and the pool account. Must run inside an atomic batch.
func (p *Pool) Swap(path []common.Address, amountIn, minAmountOut *big.Int, recipient common.Address, deadline uint64) (*big.Int, error) {
	if p.clock.Period() > deadline {
		return nil, fmt.Errorf("%w: deadline %d, period %d", ErrDeadlinePassed, deadline, p.clock.Period())
	}

	q, err := p.Quote(path, amountIn)
	if err != nil {
		return nil, err
	}
	if q.AmountOut.Cmp(minAmountOut) < 0 {
		return nil, fmt.Errorf("%w: got %s, want at least %s", ErrSlippageExceeded, q.AmountOut, minAmountOut)
	}

	if err := p.ledger.Transfer(recipient, p.id, path[0], amountIn); err != nil {
		return nil, fmt.Errorf("swap input transfer: %w", err)
	}
	if err := p.ledger.Transfer(p.id, recipient, path[1], q.AmountOut); err != nil {
		return nil, fmt.Errorf("swap output transfer: %w", err)
	}

	return q.AmountOut, nil
}
