// Package governor holds operational parameters behind a timelock. A change
// requested now cannot take effect in the same settlement window, which
// keeps a compromised operator key from instantly redirecting funds or
// gutting the safety thresholds.
package governor

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrChangeNotReady = errors.New("timelock delay has not elapsed")
	ErrChangePending  = errors.New("change already pending for key")
	ErrNoSuchChange   = errors.New("no pending change for key")
	ErrChangeExpired  = errors.New("pending change has lapsed")
	ErrUnknownKey     = errors.New("unknown parameter key")
	ErrPaused         = errors.New("engine is paused")
)

// governed parameter keys. Whitelist keys carry the subject address as a
// suffix, e.g. "token_whitelist:0xdead...".
const (
	KeyMinProfitBps   = "min_profit_bps"
	KeyMinTradeAmount = "min_trade_amount"
	KeyMaxTradeAmount = "max_trade_amount"
	KeyTokenWhitelist = "token_whitelist"
	KeyApprovedVenue  = "approved_venue"
)

// PeriodSource reports the current settlement period
type PeriodSource interface {
	Period() uint64
}

type pendingChange struct {
	requestedAt uint64
}

// Governor is a per-key None -> Pending -> Executable -> Applied state
// machine with Pending -> Cancelled as the escape hatch. Pause/unpause is an
// immediate circuit breaker outside the timelock.
type Governor struct {
	mu      sync.Mutex
	pending map[string]*pendingChange

	params *Params
	clock  PeriodSource

	delay  uint64
	expiry uint64

	paused bool
}

func New(params *Params, clock PeriodSource, delayPeriods, expiryPeriods uint64) *Governor {
	return &Governor{
		pending: make(map[string]*pendingChange),
		params:  params,
		clock:   clock,
		delay:   delayPeriods,
		expiry:  expiryPeriods,
	}
}

func (g *Governor) Params() *Params { return g.params }

// RequestChange opens the timelock for a key. Fails if a change for the key
// is already pending.
func (g *Governor) RequestChange(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.pending[key]; ok {
		return fmt.Errorf("%w: %s", ErrChangePending, key)
	}

	g.pending[key] = &pendingChange{requestedAt: g.clock.Period()}
	return nil
}

// CancelChange drops a pending change and clears its state
func (g *Governor) CancelChange(key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.pending[key]; !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchChange, key)
	}
	delete(g.pending, key)
	return nil
}

// ExecuteChange applies value to the key once the timelock has elapsed.
// Numeric params take the value directly; whitelist keys interpret a
// non-zero value as allow and zero as deny.
func (g *Governor) ExecuteChange(key string, value *big.Int) error {
	g.mu.Lock()
	c, ok := g.pending[key]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSuchChange, key)
	}

	age := g.clock.Period() - c.requestedAt
	if age < g.delay {
		g.mu.Unlock()
		return fmt.Errorf("%w: key %s, %d of %d periods elapsed", ErrChangeNotReady, key, age, g.delay)
	}
	if g.expiry > 0 && age > g.delay+g.expiry {
		delete(g.pending, key)
		g.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrChangeExpired, key)
	}

	delete(g.pending, key)
	g.mu.Unlock()

	return g.apply(key, value)
}

func (g *Governor) apply(key string, value *big.Int) error {
	base, subject, _ := strings.Cut(key, ":")

	switch base {
	case KeyMinProfitBps:
		g.params.setMinProfitBps(value.Int64())
	case KeyMinTradeAmount:
		g.params.setMinTrade(value)
	case KeyMaxTradeAmount:
		g.params.setMaxTrade(value)
	case KeyTokenWhitelist:
		g.params.SetTokenAllowed(common.HexToAddress(subject), value.Sign() != 0)
	case KeyApprovedVenue:
		g.params.SetVenueApproved(common.HexToAddress(subject), value.Sign() != 0)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// Pause rejects all new settlement attempts immediately. Nothing can be
// in-flight across a pause given batch atomicity, so there is no draining.
func (g *Governor) Pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = true
}

func (g *Governor) Unpause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paused = false
}

func (g *Governor) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}
