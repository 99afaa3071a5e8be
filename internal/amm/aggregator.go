package amm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

type quoteKey struct {
	venue    common.Address
	tokenIn  common.Address
	tokenOut common.Address
	amountIn string
	period   uint64
}

// Aggregator fetches venue quotes and caches them per settlement period.
// Quotes are side-effect free so concurrent use is always safe; the cache
// just avoids hammering venues for the same (venue, path, amount) within
// one period.
type Aggregator struct {
	cache *lru.Cache[quoteKey, *VenueQuote]
	clock PeriodSource
}

func NewAggregator(clock PeriodSource, cacheSize int) (*Aggregator, error) {
	cache, err := lru.New[quoteKey, *VenueQuote](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create quote cache: %w", err)
	}

	return &Aggregator{cache: cache, clock: clock}, nil
}

// Quote returns the venue's output amount and reserve snapshot for amountIn
// along path. Results are cached for the current period only.
func (a *Aggregator) Quote(venue Quoter, path []common.Address, amountIn *big.Int) (*VenueQuote, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path needs at least 2 tokens, got %d", len(path))
	}

	period := a.clock.Period()
	key := quoteKey{
		venue:    venue.ID(),
		tokenIn:  path[0],
		tokenOut: path[len(path)-1],
		amountIn: amountIn.String(),
		period:   period,
	}

	if q, ok := a.cache.Get(key); ok {
		return q, nil
	}

	q, err := venue.Quote(path, amountIn)
	if err != nil {
		return nil, err
	}
	// chain-backed venues stamp their own period (block number); local
	// ones leave it for us
	if q.Period == 0 {
		q.Period = period
	}

	a.cache.Add(key, q)
	return q, nil
}

// ValidateFresh rejects quotes older than one period. Execution paths must
// call this right before acting on a quote.
func (a *Aggregator) ValidateFresh(q *VenueQuote) error {
	now := a.clock.Period()
	if now > q.Period && now-q.Period > 1 {
		return fmt.Errorf("%w: quoted at period %d, now %d", ErrStaleQuote, q.Period, now)
	}
	return nil
}
