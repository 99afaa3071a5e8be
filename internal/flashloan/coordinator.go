package flashloan

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/governor"
	"github.com/pulkyeet/flash-arb/internal/settlement"
)

// Outcome of one flash-loan attempt
type Outcome string

const (
	OutcomeCommitted  Outcome = "committed"
	OutcomeRolledBack Outcome = "rolled_back"
	OutcomeRejected   Outcome = "rejected"
)

// Receipt describes one flash-loan attempt. Only committed attempts reach
// the persistence collaborator; it is then the only durable trace.
type Receipt struct {
	Asset   common.Address
	Amount  *big.Int
	Fee     *big.Int
	Caller  common.Address
	Outcome Outcome
	Period  uint64
	At      time.Time
}

// Operation is the flash-loan callback contract
type Operation interface {
	Account() common.Address
	ExecuteOperation(asset common.Address, amount, fee *big.Int, params []byte, repayTo common.Address) error
}

// RecordSink receives settlement records for storage; the core never reads
// them back for its own decisions
type RecordSink interface {
	SaveSettlement(rec *Receipt) error
}

// Coordinator borrows principal, invokes the operation callback, and
// enforces repayment before the atomic batch concludes. The batch primitive
// itself serializes attempts; no extra lock is needed beyond that.
type Coordinator struct {
	env     *settlement.Environment
	lending *settlement.LendingPool
	op      Operation
	gov     *governor.Governor
	sink    RecordSink
	logger  *slog.Logger
}

func NewCoordinator(env *settlement.Environment, lending *settlement.LendingPool, op Operation, gov *governor.Governor, sink RecordSink, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		env:     env,
		lending: lending,
		op:      op,
		gov:     gov,
		sink:    sink,
		logger:  logger.With(slog.String("component", "flashloan")),
	}
}

// BorrowAndExecute runs one complete attempt: validate bounds, borrow,
// execute, verify repayment. Either every balance change commits or none
// does; there is no partially-applied state afterward.
func (c *Coordinator) BorrowAndExecute(ctx context.Context, asset common.Address, amount *big.Int, params []byte) (*Receipt, error) {
	if c.gov.Paused() {
		return nil, governor.ErrPaused
	}

	fee := c.lending.Fee(amount)
	ledger := c.env.Ledger()
	borrower := c.op.Account()

	rec := &Receipt{
		Asset:  asset,
		Amount: new(big.Int).Set(amount),
		Fee:    fee,
		Caller: borrower,
		Period: c.env.Period(),
		At:     time.Now().UTC(),
	}

	minAmount, maxAmount := c.gov.Params().TradeBounds()
	if amount.Cmp(minAmount) < 0 || amount.Cmp(maxAmount) > 0 {
		rec.Outcome = OutcomeRejected
		return rec, fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidAmount, amount, minAmount, maxAmount)
	}

	err := c.env.RunAtomic(func() error {
		preBalance := ledger.Balance(c.lending.ID(), asset)

		if err := c.lending.Borrow(asset, amount, borrower); err != nil {
			return fmt.Errorf("borrow: %w", err)
		}

		if err := c.op.ExecuteOperation(asset, amount, fee, params, c.lending.ID()); err != nil {
			return err
		}

		// pool must end the batch holding at least principal + fee more
		// than it would have without the loan
		required := new(big.Int).Add(preBalance, fee)
		postBalance := ledger.Balance(c.lending.ID(), asset)
		if postBalance.Cmp(required) < 0 {
			return fmt.Errorf("%w: pool has %s, requires %s", ErrInsufficientRepayment, postBalance, required)
		}

		return nil
	})

	// a failed attempt leaves no durable trace; the receipt only travels
	// back to the caller
	if err != nil {
		rec.Outcome = OutcomeRolledBack
		return rec, err
	}

	rec.Outcome = OutcomeCommitted
	c.record(ctx, rec)

	c.logger.InfoContext(ctx, "flash loan settled",
		slog.String("asset", asset.Hex()),
		slog.String("amount", amount.String()),
		slog.String("fee", fee.String()),
	)
	return rec, nil
}

func (c *Coordinator) record(ctx context.Context, rec *Receipt) {
	if c.sink == nil {
		return
	}
	if err := c.sink.SaveSettlement(rec); err != nil {
		// persistence is a collaborator; its failure never unwinds a settlement
		c.logger.WarnContext(ctx, "failed to persist settlement record", slog.Any("err", err))
	}
}
