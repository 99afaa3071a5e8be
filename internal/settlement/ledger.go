package settlement

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ledger tracks per-account, per-asset balances with snapshot/revert support.
// All balance-affecting calls inside one atomic batch run against the same
// ledger; a failed batch reverts to the snapshot taken at batch start so no
// partial state is ever observable.
type Ledger struct {
	mu       sync.RWMutex
	balances map[common.Address]map[common.Address]*uint256.Int

	// snapshots for revert
	snapshots []map[common.Address]map[common.Address]*uint256.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:  make(map[common.Address]map[common.Address]*uint256.Int),
		snapshots: make([]map[common.Address]map[common.Address]*uint256.Int, 0),
	}
}

// Balance returns the account's balance of asset as a fresh big.Int
func (l *Ledger) Balance(account, asset common.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if assets, ok := l.balances[account]; ok {
		if bal, ok := assets[asset]; ok {
			return bal.ToBig()
		}
	}
	return big.NewInt(0)
}

// Credit adds amount of asset to account
func (l *Ledger) Credit(account, asset common.Address, amount *big.Int) error {
	val, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 {
		return fmt.Errorf("credit amount out of range: %s", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[account] == nil {
		l.balances[account] = make(map[common.Address]*uint256.Int)
	}
	bal := l.balances[account][asset]
	if bal == nil {
		bal = uint256.NewInt(0)
	}
	l.balances[account][asset] = new(uint256.Int).Add(bal, val)
	return nil
}

// Debit removes amount of asset from account, failing on insufficient balance
func (l *Ledger) Debit(account, asset common.Address, amount *big.Int) error {
	val, overflow := uint256.FromBig(amount)
	if overflow || amount.Sign() < 0 {
		return fmt.Errorf("debit amount out of range: %s", amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := uint256.NewInt(0)
	if assets, ok := l.balances[account]; ok {
		if b, ok := assets[asset]; ok {
			bal = b
		}
	}
	if bal.Lt(val) {
		return fmt.Errorf("%w: account %s has %s, needs %s", ErrInsufficientBalance, account.Hex(), bal, val)
	}

	if l.balances[account] == nil {
		l.balances[account] = make(map[common.Address]*uint256.Int)
	}
	l.balances[account][asset] = new(uint256.Int).Sub(bal, val)
	return nil
}

// Transfer moves amount of asset between accounts
func (l *Ledger) Transfer(from, to, asset common.Address, amount *big.Int) error {
	if err := l.Debit(from, asset, amount); err != nil {
		return err
	}
	return l.Credit(to, asset, amount)
}

// Snapshot creates a revert point and returns its id
func (l *Ledger) Snapshot() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := make(map[common.Address]map[common.Address]*uint256.Int, len(l.balances))
	for account, assets := range l.balances {
		snap[account] = make(map[common.Address]*uint256.Int, len(assets))
		for asset, bal := range assets {
			snap[account][asset] = new(uint256.Int).Set(bal)
		}
	}

	l.snapshots = append(l.snapshots, snap)
	return len(l.snapshots) - 1
}

// RevertToSnapshot restores the ledger to a previous snapshot, discarding it
// and anything taken after it
func (l *Ledger) RevertToSnapshot(snapID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if snapID < 0 || snapID >= len(l.snapshots) {
		return fmt.Errorf("invalid snapshot id: %d", snapID)
	}

	l.balances = l.snapshots[snapID]
	l.snapshots = l.snapshots[:snapID]
	return nil
}

// DiscardSnapshot drops a snapshot after a successful batch commit
func (l *Ledger) DiscardSnapshot(snapID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if snapID >= 0 && snapID < len(l.snapshots) {
		l.snapshots = l.snapshots[:snapID]
	}
}
