// Package scanner runs the continuous off-ledger opportunity scan: quote
// every configured venue per pair, find price divergence, and feed sized
// candidates through the gas optimizer, the MEV guard, and the flash-loan
// coordinator. One pair failing never blocks the rest of the cycle.
package scanner

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/amm"
	"github.com/pulkyeet/flash-arb/internal/flashloan"
	"github.com/pulkyeet/flash-arb/internal/gas"
	"github.com/pulkyeet/flash-arb/internal/governor"
	"github.com/pulkyeet/flash-arb/internal/mevguard"
	"github.com/pulkyeet/flash-arb/internal/profit"
)

// Config tunes the scan loop
type Config struct {
	Interval time.Duration
	// multiplier applied to Interval when the settlement environment is a
	// simulated/forked one, to cut churn
	SimulatedSlowdown int
	QuoteTimeout      time.Duration
	VenueFeeBps       int64
	FlashLoanFeeBps   int64
	// log opportunities without committing or settling (live read-only mode)
	DetectOnly bool
}

// Env is the slice of the settlement environment the scanner needs
type Env interface {
	Period() uint64
	AdvancePeriod()
	Simulated() bool
}

// Scanner polls venue quotes for configured pairs and drives candidates
// through commit-reveal into settlement
type Scanner struct {
	cfg    Config
	env    Env
	agg    *amm.Aggregator
	venues []amm.Quoter
	pairs  []amm.TokenPair

	optimizer *gas.Optimizer
	guard     *mevguard.Guard
	coord     *flashloan.Coordinator
	gov       *governor.Governor

	pending []*pendingTrade
	logger  *slog.Logger
}

func New(cfg Config, env Env, agg *amm.Aggregator, venues []amm.Quoter, pairs []amm.TokenPair,
	optimizer *gas.Optimizer, guard *mevguard.Guard, coord *flashloan.Coordinator, gov *governor.Governor,
	logger *slog.Logger) *Scanner {

	if cfg.SimulatedSlowdown <= 0 {
		cfg.SimulatedSlowdown = 4
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = 5 * time.Second
	}

	return &Scanner{
		cfg:       cfg,
		env:       env,
		agg:       agg,
		venues:    venues,
		pairs:     pairs,
		optimizer: optimizer,
		guard:     guard,
		coord:     coord,
		gov:       gov,
		logger:    logger.With(slog.String("component", "scanner")),
	}
}

// Run loops until ctx is cancelled. Cancellation lands between cycles only;
// the settlement batch itself cannot be interrupted mid-flight.
func (s *Scanner) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if s.env.Simulated() {
		interval *= time.Duration(s.cfg.SimulatedSlowdown)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "scanner started",
		slog.Duration("interval", interval),
		slog.Int("pairs", len(s.pairs)),
		slog.Int("venues", len(s.venues)),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scanner stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Cycle(ctx)
			if s.env.Simulated() {
				s.env.AdvancePeriod()
			}
		}
	}
}

// Cycle runs one scan pass: settle any pending commits that are ready, then
// scan every pair for fresh opportunities
func (s *Scanner) Cycle(ctx context.Context) {
	s.settlePending(ctx)

	for _, pair := range s.pairs {
		opp, err := s.scanPair(ctx, pair)
		if err != nil {
			// per-pair failures are isolated; skip and retry next cycle
			if !errors.Is(err, amm.ErrNoLiquidity) {
				s.logger.WarnContext(ctx, "pair scan failed",
					slog.String("pair", pair.Name), slog.Any("err", err))
			}
			continue
		}
		if opp == nil {
			continue
		}

		if s.cfg.DetectOnly {
			s.logger.InfoContext(ctx, "opportunity detected (detect-only)",
				slog.String("pair", pair.Name),
				slog.Float64("divergence_pct", opp.Divergence),
				slog.String("est_net_profit", opp.NetProfit.String()),
			)
			continue
		}

		if err := s.commitOpportunity(ctx, opp); err != nil {
			s.logger.WarnContext(ctx, "commit failed",
				slog.String("pair", pair.Name), slog.Any("err", err))
		}
	}
}

// scanPair quotes the pair on every venue concurrently and returns a sized
// opportunity when divergence clears the threshold, nil when nothing is there
func (s *Scanner) scanPair(ctx context.Context, pair amm.TokenPair) (*Opportunity, error) {
	if !s.gov.Params().TokenAllowed(pair.A) || !s.gov.Params().TokenAllowed(pair.B) {
		return nil, nil
	}

	minTrade, maxTrade := s.gov.Params().TradeBounds()
	path := []common.Address{pair.A, pair.B}

	quotes := make([]*amm.VenueQuote, len(s.venues))
	g, qctx := errgroup.WithContext(ctx)

	for i, venue := range s.venues {
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(qctx, s.cfg.QuoteTimeout)
			defer cancel()

			q, err := s.quoteWithTimeout(qctx, venue, path, minTrade)
			if err != nil {
				// a venue with no pool just sits this cycle out
				return nil
			}
			quotes[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	live := quotes[:0:0]
	for _, q := range quotes {
		if q != nil {
			live = append(live, q)
		}
	}
	if len(live) < 2 {
		return nil, fmt.Errorf("%w: only %d venues quoted %s", amm.ErrNoLiquidity, len(live), pair.Name)
	}

	// best divergence across venue pairs
	threshold := float64(s.gov.Params().MinProfitBps()) / 100.0
	var best *Opportunity
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			opp := s.sizeCandidate(pair, live[i], live[j], threshold, minTrade, maxTrade)
			if opp != nil && (best == nil || opp.NetProfit.Cmp(best.NetProfit) > 0) {
				best = opp
			}
		}
	}
	return best, nil
}

func (s *Scanner) quoteWithTimeout(ctx context.Context, venue amm.Quoter, path []common.Address, amountIn *big.Int) (*amm.VenueQuote, error) {
	type result struct {
		q   *amm.VenueQuote
		err error
	}
	ch := make(chan result, 1)

	go func() {
		q, err := s.agg.Quote(venue, path, amountIn)
		ch <- result{q, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.q, r.err
	}
}

// sizeCandidate checks divergence between two venue quotes and, if it clears
// the threshold, finds the profit-maximising principal within bounds
func (s *Scanner) sizeCandidate(pair amm.TokenPair, qa, qb *amm.VenueQuote, threshold float64, minTrade, maxTrade *big.Int) *Opportunity {
	priceA := amm.CalculatePrice(qa.ReserveIn, qa.ReserveOut, pair.ADec, pair.BDec)
	priceB := amm.CalculatePrice(qb.ReserveIn, qb.ReserveOut, pair.ADec, pair.BDec)

	divergence := amm.ComparePrices(priceA, priceB)
	if divergence < threshold {
		return nil
	}

	// try both leg orders and keep the better one
	inAB, profitAB := amm.FindOptimalInput(qa, qb, s.cfg.VenueFeeBps, minTrade, maxTrade)
	inBA, profitBA := amm.FindOptimalInput(qb, qa, s.cfg.VenueFeeBps, minTrade, maxTrade)

	first, second := qa, qb
	amountIn, gross := inAB, profitAB
	if profitBA.Cmp(profitAB) > 0 {
		first, second = qb, qa
		amountIn, gross = inBA, profitBA
	}

	feeCost := new(big.Int).Mul(amountIn, big.NewInt(s.cfg.FlashLoanFeeBps))
	feeCost.Div(feeCost, big.NewInt(10000))

	expectedOut := new(big.Int).Add(amountIn, gross)
	legOne := amm.GetAmountOut(amountIn, first.ReserveIn, first.ReserveOut, s.cfg.VenueFeeBps)

	// discovery-time gate; re-checked with live quotes before reveal
	net, ok := profit.Evaluate(profit.Check{
		AmountIn:     amountIn,
		LegOneOut:    legOne,
		LegTwoOut:    expectedOut,
		FlashLoanFee: feeCost,
		GasCost:      big.NewInt(0),
		MinProfitBps: s.gov.Params().MinProfitBps(),
	})
	if !ok {
		return nil
	}

	return &Opportunity{
		Pair:        pair,
		VenueFirst:  first.Venue,
		VenueSecond: second.Venue,
		AmountIn:    amountIn,
		ExpectedOut: expectedOut,
		FeeCost:     feeCost,
		GasCost:     big.NewInt(0),
		NetProfit:   net,
		Divergence:  divergence,
		Period:      s.env.Period(),
	}
}

// commitOpportunity hides the trade behind a commitment and queues it for
// reveal once the minimum age has passed
func (s *Scanner) commitOpportunity(ctx context.Context, opp *Opportunity) error {
	// fee bid for the settlement submission; the gate's gas cost stays
	// denominated in the borrowed asset (opp.GasCost)
	feePrice := s.optimizer.Recommend(ctx)
	limit := s.optimizer.EstimateLimit(ctx, "borrow_and_execute")
	feeBid := new(big.Int).Mul(feePrice, new(big.Int).SetUint64(limit))

	params := &flashloan.TradeParams{
		VenueFirst:   opp.VenueFirst,
		VenueSecond:  opp.VenueSecond,
		Path:         []common.Address{opp.Pair.A, opp.Pair.B},
		GasCost:      opp.GasCost,
		MinProfitBps: big.NewInt(s.gov.Params().MinProfitBps()),
	}
	blob, err := params.Encode()
	if err != nil {
		return fmt.Errorf("encode trade params: %w", err)
	}

	var secret [32]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return fmt.Errorf("generate commitment secret: %w", err)
	}

	h, err := s.guard.Commit(opp.Pair.A, opp.AmountIn, secret)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.pending = append(s.pending, &pendingTrade{
		opp:        opp,
		commitment: h,
		secret:     secret,
		params:     blob,
		feeBid:     feeBid,
	})

	s.logger.InfoContext(ctx, "opportunity committed",
		slog.String("pair", opp.Pair.Name),
		slog.String("amount", opp.AmountIn.String()),
		slog.Float64("divergence_pct", opp.Divergence),
		slog.String("est_net_profit", opp.NetProfit.String()),
		slog.String("fee_bid", feeBid.String()),
	)
	return nil
}

// settlePending reveals and settles any committed trade whose reveal window
// has opened, after re-validating profitability on live quotes. Expired
// commitments are dropped.
func (s *Scanner) settlePending(ctx context.Context) {
	keep := s.pending[:0]

	for _, pt := range s.pending {
		if s.guard.Expired(pt.commitment) {
			s.guard.Drop(pt.commitment)
			s.logger.WarnContext(ctx, "commitment expired unrevealed",
				slog.String("pair", pt.opp.Pair.Name))
			continue
		}
		if !s.guard.Ready(pt.commitment) {
			keep = append(keep, pt)
			continue
		}

		if err := s.settleOne(ctx, pt); err != nil {
			// expected business outcomes are logged and dropped, the
			// opportunity is gone either way
			s.logger.InfoContext(ctx, "pending trade not settled",
				slog.String("pair", pt.opp.Pair.Name), slog.Any("err", err))
		}
	}
	s.pending = keep
}

func (s *Scanner) settleOne(ctx context.Context, pt *pendingTrade) error {
	// authoritative pre-commit check on quotes from this settlement window
	if err := s.recheck(ctx, pt); err != nil {
		s.guard.Drop(pt.commitment)
		return err
	}

	if err := s.guard.Reveal(pt.opp.Pair.A, pt.opp.AmountIn, pt.secret, pt.commitment); err != nil {
		return fmt.Errorf("reveal: %w", err)
	}
	// consumed either way; keep the guard map from growing without bound
	defer s.guard.Drop(pt.commitment)

	s.logger.InfoContext(ctx, "revealing committed trade",
		slog.String("pair", pt.opp.Pair.Name),
		slog.String("amount", pt.opp.AmountIn.String()),
		slog.String("fee_bid", pt.feeBid.String()),
	)

	_, err := s.coord.BorrowAndExecute(ctx, pt.opp.Pair.A, pt.opp.AmountIn, pt.params)
	return err
}

func (s *Scanner) recheck(ctx context.Context, pt *pendingTrade) error {
	var first, second amm.Quoter
	for _, v := range s.venues {
		switch v.ID() {
		case pt.opp.VenueFirst:
			first = v
		case pt.opp.VenueSecond:
			second = v
		}
	}
	if first == nil || second == nil {
		return fmt.Errorf("venue disappeared from scan set")
	}

	path := []common.Address{pt.opp.Pair.A, pt.opp.Pair.B}
	qa, err := s.agg.Quote(first, path, pt.opp.AmountIn)
	if err != nil {
		return fmt.Errorf("live leg 1 quote: %w", err)
	}
	if err := s.agg.ValidateFresh(qa); err != nil {
		return err
	}
	legTwoIn := qa.AmountOut

	reverse := []common.Address{pt.opp.Pair.B, pt.opp.Pair.A}
	qb, err := s.agg.Quote(second, reverse, legTwoIn)
	if err != nil {
		return fmt.Errorf("live leg 2 quote: %w", err)
	}
	if err := s.agg.ValidateFresh(qb); err != nil {
		return err
	}

	net, ok := profit.Evaluate(profit.Check{
		AmountIn:     pt.opp.AmountIn,
		LegOneOut:    qa.AmountOut,
		LegTwoOut:    qb.AmountOut,
		FlashLoanFee: pt.opp.FeeCost,
		GasCost:      pt.opp.GasCost,
		MinProfitBps: s.gov.Params().MinProfitBps(),
	})
	if !ok {
		return fmt.Errorf("%w: live re-check net %s", flashloan.ErrUnprofitable, net)
	}
	return nil
}
