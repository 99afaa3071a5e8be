package settlement

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// LendingPool holds flash-loan liquidity as ledger balances of its own
// account. Borrowed principal plus fee must be back in the pool account by
// the end of the atomic batch; the coordinator enforces that.
type LendingPool struct {
	id     common.Address
	feeBps int64
	ledger *Ledger
}

func NewLendingPool(id common.Address, feeBps int64, ledger *Ledger) *LendingPool {
	return &LendingPool{id: id, feeBps: feeBps, ledger: ledger}
}

func (lp *LendingPool) ID() common.Address { return lp.id }

// Seed deposits lendable liquidity
func (lp *LendingPool) Seed(asset common.Address, amount *big.Int) error {
	return lp.ledger.Credit(lp.id, asset, amount)
}

// Available returns the pool's current balance of asset
func (lp *LendingPool) Available(asset common.Address) *big.Int {
	return lp.ledger.Balance(lp.id, asset)
}

// Fee computes the flash-loan fee for a principal (principal * feeBps / 10000)
func (lp *LendingPool) Fee(principal *big.Int) *big.Int {
	fee := new(big.Int).Mul(principal, big.NewInt(lp.feeBps))
	return fee.Div(fee, big.NewInt(10000))
}

// Borrow transfers principal to the borrower. Only valid inside an atomic
// batch; repayment is checked against the pool balance at batch end.
func (lp *LendingPool) Borrow(asset common.Address, amount *big.Int, borrower common.Address) error {
	return lp.ledger.Transfer(lp.id, borrower, asset, amount)
}
