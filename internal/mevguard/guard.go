// Package mevguard hides trade parameters behind a two-phase commit-reveal
// so mempool observers cannot front-run a pending arbitrage. A commitment
// may be revealed exactly once, no earlier than minAge and no later than
// maxAge periods after creation.
package mevguard

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidCommitment  = errors.New("revealed parameters do not match commitment")
	ErrCommitmentNotReady = errors.New("commitment has not aged past minimum")
	ErrCommitmentExpired  = errors.New("commitment is past maximum age")
	ErrCommitmentRequired = errors.New("commitment unknown or already consumed")
	ErrCommitmentExists   = errors.New("commitment already recorded for these parameters")
)

// PeriodSource reports the current settlement period
type PeriodSource interface {
	Period() uint64
}

type commitment struct {
	createdAt uint64
	consumed  bool
}

// Guard holds pending commitments. The consumed flag on each record is what
// enforces one-settlement-per-commitment; no separate lock object exists.
type Guard struct {
	mu          sync.Mutex
	commitments map[common.Hash]*commitment

	minAge uint64
	maxAge uint64
	clock  PeriodSource

	// route reveals through a private relay instead of the public pool;
	// orthogonal to commit-reveal correctness
	privateRelay bool
}

func New(clock PeriodSource, minAge, maxAge uint64, privateRelay bool) *Guard {
	return &Guard{
		commitments:  make(map[common.Hash]*commitment),
		minAge:       minAge,
		maxAge:       maxAge,
		clock:        clock,
		privateRelay: privateRelay,
	}
}

// Hash computes the commitment hash keccak256(asset || amount || secret)
func Hash(asset common.Address, amount *big.Int, secret [32]byte) common.Hash {
	buf := make([]byte, 0, 96)
	buf = append(buf, common.LeftPadBytes(asset.Bytes(), 32)...)
	buf = append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
	buf = append(buf, secret[:]...)
	return crypto.Keccak256Hash(buf)
}

// Commit stores a commitment tagged with the current period and returns its
// hash. Committing the same parameters again is refused while any record for
// the hash remains, consumed or not: overwriting would reset createdAt and
// reopen the reveal window.
func (g *Guard) Commit(asset common.Address, amount *big.Int, secret [32]byte) (common.Hash, error) {
	h := Hash(asset, amount, secret)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.commitments[h]; ok {
		return common.Hash{}, ErrCommitmentExists
	}
	g.commitments[h] = &commitment{createdAt: g.clock.Period()}
	return h, nil
}

// Reveal validates the supplied parameters against the commitment and
// consumes it. Errors follow the protocol taxonomy: a rejected reveal
// changes no state.
func (g *Guard) Reveal(asset common.Address, amount *big.Int, secret [32]byte, commitmentHash common.Hash) error {
	if Hash(asset, amount, secret) != commitmentHash {
		return ErrInvalidCommitment
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.commitments[commitmentHash]
	if !ok || c.consumed {
		return ErrCommitmentRequired
	}

	age := g.clock.Period() - c.createdAt
	if age < g.minAge {
		return ErrCommitmentNotReady
	}
	if age > g.maxAge {
		return ErrCommitmentExpired
	}

	c.consumed = true
	return nil
}

// Age returns how many periods old a commitment is, and whether it exists
// unconsumed
func (g *Guard) Age(commitmentHash common.Hash) (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.commitments[commitmentHash]
	if !ok || c.consumed {
		return 0, false
	}
	return g.clock.Period() - c.createdAt, true
}

// Ready reports whether a commitment is inside its reveal window
func (g *Guard) Ready(commitmentHash common.Hash) bool {
	age, ok := g.Age(commitmentHash)
	return ok && age >= g.minAge && age <= g.maxAge
}

// Expired reports whether a commitment has aged out
func (g *Guard) Expired(commitmentHash common.Hash) bool {
	age, ok := g.Age(commitmentHash)
	return ok && age > g.maxAge
}

// Drop removes an expired or abandoned commitment
func (g *Guard) Drop(commitmentHash common.Hash) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.commitments, commitmentHash)
}

// PrivateRelay reports whether reveals should bypass the public pool
func (g *Guard) PrivateRelay() bool { return g.privateRelay }
