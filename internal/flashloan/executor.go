package flashloan

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/amm"
	"github.com/pulkyeet/flash-arb/internal/governor"
	"github.com/pulkyeet/flash-arb/internal/profit"
	"github.com/pulkyeet/flash-arb/internal/settlement"
)

// Executor runs the two-leg arbitrage inside the flash-loan callback. It
// operates on its own ledger account: the coordinator lands the principal
// there, both swap legs run against it, and repayment leaves from it. Any
// surplus above principal+fee stays with the account, i.e. the initiator.
type Executor struct {
	account common.Address
	ledger  *settlement.Ledger
	venues  map[common.Address]amm.Venue
	params  *governor.Params
	clock   amm.PeriodSource
}

func NewExecutor(account common.Address, ledger *settlement.Ledger, params *governor.Params, clock amm.PeriodSource) *Executor {
	return &Executor{
		account: account,
		ledger:  ledger,
		venues:  make(map[common.Address]amm.Venue),
		params:  params,
		clock:   clock,
	}
}

func (e *Executor) Account() common.Address { return e.account }

// RegisterVenue makes a venue addressable from trade params
func (e *Executor) RegisterVenue(v amm.Venue) {
	e.venues[v.ID()] = v
}

func (e *Executor) venue(id common.Address) (amm.Venue, error) {
	v, ok := e.venues[id]
	if !ok || !e.params.VenueApproved(id) {
		return nil, fmt.Errorf("%w: %s", ErrVenueNotApproved, id.Hex())
	}
	return v, nil
}

// ExecuteOperation is the flash-loan callback: decode params, swap
// asset -> path end on the first venue, swap back on the second, verify
// realized profitability, repay principal+fee to the lending pool account.
// Runs entirely inside the coordinator's atomic batch, so any error here
// unwinds both legs.
func (e *Executor) ExecuteOperation(asset common.Address, amount, fee *big.Int, paramsBlob []byte, repayTo common.Address) error {
	p, err := DecodeParams(paramsBlob)
	if err != nil {
		return fmt.Errorf("decode execution params: %w", err)
	}
	if p.Path[0] != asset {
		return fmt.Errorf("params path starts at %s, borrowed asset is %s", p.Path[0].Hex(), asset.Hex())
	}
	for _, token := range p.Path {
		if !e.params.TokenAllowed(token) {
			return fmt.Errorf("%w: %s", ErrTokenNotAllowed, token.Hex())
		}
	}

	first, err := e.venue(p.VenueFirst)
	if err != nil {
		return err
	}
	second, err := e.venue(p.VenueSecond)
	if err != nil {
		return err
	}

	reversePath := make([]common.Address, len(p.Path))
	for i, token := range p.Path {
		reversePath[len(p.Path)-1-i] = token
	}

	// check profitability on live quotes before touching either leg
	quoteOne, err := first.Quote(p.Path, amount)
	if err != nil {
		return fmt.Errorf("%w: leg 1 quote: %v", ErrUnprofitable, err)
	}
	quoteTwo, err := second.Quote(reversePath, quoteOne.AmountOut)
	if err != nil {
		return fmt.Errorf("%w: leg 2 quote: %v", ErrUnprofitable, err)
	}
	if _, ok := profit.Evaluate(profit.Check{
		AmountIn:     amount,
		LegOneOut:    quoteOne.AmountOut,
		LegTwoOut:    quoteTwo.AmountOut,
		FlashLoanFee: fee,
		GasCost:      p.GasCost,
		MinProfitBps: p.MinProfitBps.Int64(),
	}); !ok {
		return fmt.Errorf("%w: pre-swap check", ErrUnprofitable)
	}

	deadline := e.clock.Period() + 1

	// leg 1: asset -> intermediate on the first venue, 2% slippage floor
	minOutOne := mulPct(quoteOne.AmountOut, 98)
	legOneOut, err := first.Swap(p.Path, amount, minOutOne, e.account, deadline)
	if err != nil {
		return fmt.Errorf("%w: leg 1 swap: %v", ErrUnprofitable, err)
	}

	// leg 2: intermediate -> asset back on the second venue
	minOutTwo := mulPct(quoteTwo.AmountOut, 98)
	legTwoOut, err := second.Swap(reversePath, legOneOut, minOutTwo, e.account, deadline)
	if err != nil {
		return fmt.Errorf("%w: leg 2 swap: %v", ErrUnprofitable, err)
	}

	// realized outputs are authoritative; revert if they fell short
	if _, ok := profit.Evaluate(profit.Check{
		AmountIn:     amount,
		LegOneOut:    legOneOut,
		LegTwoOut:    legTwoOut,
		FlashLoanFee: fee,
		GasCost:      p.GasCost,
		MinProfitBps: p.MinProfitBps.Int64(),
	}); !ok {
		return fmt.Errorf("%w: realized output %s on principal %s", ErrUnprofitable, legTwoOut, amount)
	}

	repayment := new(big.Int).Add(amount, fee)
	if err := e.ledger.Transfer(e.account, repayTo, asset, repayment); err != nil {
		return fmt.Errorf("repay flash loan: %w", err)
	}

	return nil
}

func mulPct(v *big.Int, pct int64) *big.Int {
	out := new(big.Int).Mul(v, big.NewInt(pct))
	return out.Div(out, big.NewInt(100))
}
