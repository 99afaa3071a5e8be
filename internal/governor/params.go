package governor

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Params are the live operational parameters. Reads are frequent (every
// scan cycle and every settlement attempt); writes only happen through an
// executed governance change or the initial wiring.
type Params struct {
	mu sync.RWMutex

	minProfitBps   int64
	minTradeAmount *big.Int
	maxTradeAmount *big.Int

	tokenWhitelist map[common.Address]bool
	approvedVenues map[common.Address]bool
}

func NewParams(minProfitBps int64, minTrade, maxTrade *big.Int) *Params {
	return &Params{
		minProfitBps:   minProfitBps,
		minTradeAmount: new(big.Int).Set(minTrade),
		maxTradeAmount: new(big.Int).Set(maxTrade),
		tokenWhitelist: make(map[common.Address]bool),
		approvedVenues: make(map[common.Address]bool),
	}
}

func (p *Params) MinProfitBps() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.minProfitBps
}

func (p *Params) TradeBounds() (min, max *big.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return new(big.Int).Set(p.minTradeAmount), new(big.Int).Set(p.maxTradeAmount)
}

func (p *Params) TokenAllowed(token common.Address) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tokenWhitelist[token]
}

func (p *Params) VenueApproved(venue common.Address) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.approvedVenues[venue]
}

// direct setters, used at wiring time before the governor takes over
func (p *Params) SetTokenAllowed(token common.Address, allowed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if allowed {
		p.tokenWhitelist[token] = true
	} else {
		delete(p.tokenWhitelist, token)
	}
}

func (p *Params) SetVenueApproved(venue common.Address, approved bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if approved {
		p.approvedVenues[venue] = true
	} else {
		delete(p.approvedVenues, venue)
	}
}

func (p *Params) setMinProfitBps(v int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minProfitBps = v
}

func (p *Params) setMinTrade(v *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.minTradeAmount = new(big.Int).Set(v)
}

func (p *Params) setMaxTrade(v *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.maxTradeAmount = new(big.Int).Set(v)
}
