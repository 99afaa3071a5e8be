package gas

import (
	"context"
	"log/slog"
	"math/big"
)

// Oracle supplies the current network fee estimate
type Oracle interface {
	GasPrice(ctx context.Context) (*big.Int, error)
}

// Estimator dry-runs an operation and reports its gas cost
type Estimator interface {
	EstimateGas(ctx context.Context, op string) (uint64, error)
}

// minimum history before the optimizer deviates from the observed price
const minSamples = 10

// Optimizer maintains the rolling gas window and recommends a fee bid that
// balances inclusion probability against cost. Oracle failures are never
// fatal: callers get the last usable price or the configured default.
type Optimizer struct {
	window       *Window
	oracle       Oracle
	estimator    Estimator
	ceiling      *big.Int
	defaultLimit uint64
	lastPrice    *big.Int
	logger       *slog.Logger
}

func NewOptimizer(oracle Oracle, estimator Estimator, windowSize int, ceiling *big.Int, defaultLimit uint64, logger *slog.Logger) *Optimizer {
	return &Optimizer{
		window:       NewWindow(windowSize),
		oracle:       oracle,
		estimator:    estimator,
		ceiling:      new(big.Int).Set(ceiling),
		defaultLimit: defaultLimit,
		logger:       logger.With(slog.String("component", "gas")),
	}
}

// Observe feeds a historical sample into the window without consulting the
// oracle (used by warmup/ingest)
func (o *Optimizer) Observe(price *big.Int) {
	o.window.Add(price)
	o.lastPrice = new(big.Int).Set(price)
}

// Recommend queries the oracle once, records the sample, and returns the fee
// bid to use:
//   - fewer than 10 samples: observed price unchanged
//   - observed < mean-stddev: favorable, use as-is
//   - observed > mean+stddev: spike, bid min(observed*1.10, ceiling)
//   - otherwise: observed price unchanged
func (o *Optimizer) Recommend(ctx context.Context) *big.Int {
	current, err := o.oracle.GasPrice(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "gas oracle unavailable, using last price", slog.Any("err", err))
		if o.lastPrice != nil {
			return new(big.Int).Set(o.lastPrice)
		}
		return new(big.Int).Set(o.ceiling)
	}

	o.window.Add(current)
	o.lastPrice = new(big.Int).Set(current)

	if o.window.Len() < minSamples {
		return new(big.Int).Set(current)
	}

	mean, stddev := o.window.MeanStdDev()
	cur, _ := new(big.Float).SetInt(current).Float64()

	switch {
	case cur < mean-stddev:
		// favorable dip, take it
		return new(big.Int).Set(current)
	case cur > mean+stddev:
		// spike: overbid 10% to stay included, but cap exposure
		bumped := new(big.Int).Mul(current, big.NewInt(110))
		bumped.Div(bumped, big.NewInt(100))
		if bumped.Cmp(o.ceiling) > 0 {
			return new(big.Int).Set(o.ceiling)
		}
		return bumped
	default:
		return new(big.Int).Set(current)
	}
}

// EstimateLimit dry-runs the operation and applies a 20% safety buffer.
// Estimate failures fall back to the configured conservative default.
func (o *Optimizer) EstimateLimit(ctx context.Context, op string) uint64 {
	if o.estimator == nil {
		return o.defaultLimit
	}

	est, err := o.estimator.EstimateGas(ctx, op)
	if err != nil {
		o.logger.WarnContext(ctx, "gas estimate failed, using default limit",
			slog.String("op", op), slog.Any("err", err))
		return o.defaultLimit
	}

	return est + est/5
}
