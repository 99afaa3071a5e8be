package amm

import "errors"

var (
	// ErrNoLiquidity means the venue has no pool (or an empty pool) for the pair
	ErrNoLiquidity = errors.New("no liquidity for pair")

	// ErrStaleQuote means a quote older than one period was offered for execution
	ErrStaleQuote = errors.New("quote is stale, re-fetch before use")
)
