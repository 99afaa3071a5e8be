package settlement

import (
	"sync"
	"sync/atomic"
)

// Environment is the settlement collaborator: it owns the period counter,
// the ledger, and the atomic-batch primitive. A batch either fully applies
// or is discarded as if it never ran; no intermediate state is visible to
// anyone else and mid-batch cancellation is not offered.
type Environment struct {
	ledger *Ledger
	period atomic.Uint64

	// serializes batches; the batch body itself takes no other locks
	batchMu sync.Mutex

	// true when running against a forked/simulated chain
	simulated bool
}

func NewEnvironment(simulated bool) *Environment {
	return &Environment{
		ledger:    NewLedger(),
		simulated: simulated,
	}
}

func (e *Environment) Ledger() *Ledger { return e.ledger }

// Period returns the current settlement period
func (e *Environment) Period() uint64 { return e.period.Load() }

// AdvancePeriod moves the environment forward one period
func (e *Environment) AdvancePeriod() { e.period.Add(1) }

// Simulated reports whether this is a forked/simulated environment
func (e *Environment) Simulated() bool { return e.simulated }

// RunAtomic executes fn as one indivisible batch. Any error (or panic)
// reverts every ledger change fn made; success commits them all.
func (e *Environment) RunAtomic(fn func() error) (err error) {
	e.batchMu.Lock()
	defer e.batchMu.Unlock()

	snapID := e.ledger.Snapshot()

	defer func() {
		if r := recover(); r != nil {
			e.ledger.RevertToSnapshot(snapID)
			panic(r)
		}
		if err != nil {
			e.ledger.RevertToSnapshot(snapID)
		} else {
			e.ledger.DiscardSnapshot(snapID)
		}
	}()

	return fn()
}
