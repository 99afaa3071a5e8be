package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/pulkyeet/flash-arb/internal/amm"
	"github.com/pulkyeet/flash-arb/internal/config"
	"github.com/pulkyeet/flash-arb/internal/eth"
	"github.com/pulkyeet/flash-arb/internal/flashloan"
	"github.com/pulkyeet/flash-arb/internal/gas"
	"github.com/pulkyeet/flash-arb/internal/governor"
	"github.com/pulkyeet/flash-arb/internal/mevguard"
	"github.com/pulkyeet/flash-arb/internal/scanner"
	"github.com/pulkyeet/flash-arb/internal/settlement"
	"github.com/pulkyeet/flash-arb/internal/storage"
)

type flatOracle struct{ price *big.Int }

func (o flatOracle) GasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(o.price), nil
}

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.toml", "path to config file")
	mode := flag.String("mode", "sim", "sim (in-memory venues) or live (on-chain quotes, detect only)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sc *scanner.Scanner
	switch *mode {
	case "sim":
		sc, err = wireSim(cfg, logger)
	case "live":
		sc, err = wireLive(cfg, logger)
	default:
		log.Fatalf("unknown mode %q (use sim or live)", *mode)
	}
	if err != nil {
		log.Fatalf("wire %s mode: %v", *mode, err)
	}

	fmt.Printf("starting scanner in %s mode (interval %s)...\n", *mode, cfg.ScanInterval())

	if err := sc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("scanner: %v", err)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// wireSim builds the full engine against an in-memory settlement
// environment with two seeded venues
func wireSim(cfg *config.Config, logger *slog.Logger) (*scanner.Scanner, error) {
	env := settlement.NewEnvironment(true)
	ledger := env.Ledger()

	tokenA := common.HexToAddress("0x00000000000000000000000000000000000000AA")
	tokenB := common.HexToAddress("0x00000000000000000000000000000000000000BB")
	pair := amm.TokenPair{Name: "TKA/TKB", A: tokenA, ADec: 6, B: tokenB, BDec: 6}

	alpha := settlement.NewPool(
		common.HexToAddress("0x0000000000000000000000000000000000000A01"),
		"alpha", tokenA, tokenB, cfg.Scanner.VenueFeeBps, ledger, env,
	)
	beta := settlement.NewPool(
		common.HexToAddress("0x0000000000000000000000000000000000000B01"),
		"beta", tokenA, tokenB, cfg.Scanner.VenueFeeBps, ledger, env,
	)

	million := big.NewInt(1_000_000)
	if err := alpha.Seed(
		new(big.Int).Mul(big.NewInt(10_000), million),
		new(big.Int).Mul(big.NewInt(10_000_000), million),
	); err != nil {
		return nil, err
	}
	if err := beta.Seed(
		new(big.Int).Mul(big.NewInt(12_000), million),
		new(big.Int).Mul(big.NewInt(10_000_000), million),
	); err != nil {
		return nil, err
	}

	lending := settlement.NewLendingPool(
		common.HexToAddress("0x0000000000000000000000000000000000000F10"),
		cfg.FlashLoan.FeeBps, ledger,
	)
	if err := lending.Seed(tokenA, new(big.Int).Mul(big.NewInt(1_000_000), million)); err != nil {
		return nil, err
	}

	params := governor.NewParams(cfg.Governor.MinProfitBps, cfg.MinTrade(), cfg.MaxTrade())
	params.SetTokenAllowed(tokenA, true)
	params.SetTokenAllowed(tokenB, true)
	params.SetVenueApproved(alpha.ID(), true)
	params.SetVenueApproved(beta.ID(), true)
	gov := governor.New(params, env, cfg.Governor.TimelockDelay, cfg.Governor.ChangeExpiry)

	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	exec := flashloan.NewExecutor(
		common.HexToAddress("0x0000000000000000000000000000000000000E01"),
		ledger, params, env,
	)
	exec.RegisterVenue(alpha)
	exec.RegisterVenue(beta)

	coord := flashloan.NewCoordinator(env, lending, exec, gov, store, logger)
	guard := mevguard.New(env, cfg.Guard.MinAge, cfg.Guard.MaxAge, cfg.Guard.PrivateRelay)

	optimizer := gas.NewOptimizer(
		flatOracle{price: big.NewInt(30e9)}, nil,
		cfg.Gas.WindowSize, cfg.GasCeiling(), cfg.Gas.DefaultLimit, logger,
	)
	warmOptimizer(optimizer, store, cfg.Gas.WindowSize, logger)

	agg, err := amm.NewAggregator(env, cfg.Scanner.QuoteCacheSize)
	if err != nil {
		return nil, err
	}

	return scanner.New(
		scanner.Config{
			Interval:          cfg.ScanInterval(),
			SimulatedSlowdown: cfg.Scanner.SimulatedSlowdown,
			QuoteTimeout:      cfg.QuoteTimeout(),
			VenueFeeBps:       cfg.Scanner.VenueFeeBps,
			FlashLoanFeeBps:   cfg.FlashLoan.FeeBps,
		},
		env, agg, []amm.Quoter{alpha, beta}, []amm.TokenPair{pair},
		optimizer, guard, coord, gov, logger,
	), nil
}

// wireLive scans real V2-style pools over RPC in detect-only mode;
// settlement still runs against the local environment so nothing executes
func wireLive(cfg *config.Config, logger *slog.Logger) (*scanner.Scanner, error) {
	if cfg.RPC.URL == "" {
		return nil, fmt.Errorf("rpc url not configured (set FLASHARB_RPC_URL)")
	}

	client, err := eth.Dial(cfg.RPC.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	env := settlement.NewEnvironment(true)

	venues := make([]amm.Quoter, 0, len(eth.KnownPairs))
	for _, pc := range eth.KnownPairs {
		venues = append(venues, eth.NewChainVenue(pc, client, cfg.Scanner.VenueFeeBps))
	}

	pairs := []amm.TokenPair{
		{Name: "WETH/USDC", A: eth.USDCAddress, ADec: eth.USDCDecimals, B: eth.WETHAddress, BDec: eth.WETHDecimals},
		{Name: "WETH/USDT", A: eth.USDTAddress, ADec: eth.USDTDecimals, B: eth.WETHAddress, BDec: eth.WETHDecimals},
	}

	params := governor.NewParams(cfg.Governor.MinProfitBps, cfg.MinTrade(), cfg.MaxTrade())
	for _, p := range pairs {
		params.SetTokenAllowed(p.A, true)
		params.SetTokenAllowed(p.B, true)
	}
	gov := governor.New(params, env, cfg.Governor.TimelockDelay, cfg.Governor.ChangeExpiry)

	lending := settlement.NewLendingPool(
		common.HexToAddress("0x0000000000000000000000000000000000000F10"),
		cfg.FlashLoan.FeeBps, env.Ledger(),
	)
	exec := flashloan.NewExecutor(
		common.HexToAddress("0x0000000000000000000000000000000000000E01"),
		env.Ledger(), params, env,
	)
	coord := flashloan.NewCoordinator(env, lending, exec, gov, nil, logger)
	guard := mevguard.New(env, cfg.Guard.MinAge, cfg.Guard.MaxAge, cfg.Guard.PrivateRelay)

	optimizer := gas.NewOptimizer(
		client, nil,
		cfg.Gas.WindowSize, cfg.GasCeiling(), cfg.Gas.DefaultLimit, logger,
	)

	agg, err := amm.NewAggregator(env, cfg.Scanner.QuoteCacheSize)
	if err != nil {
		return nil, err
	}

	return scanner.New(
		scanner.Config{
			Interval:          cfg.ScanInterval(),
			SimulatedSlowdown: cfg.Scanner.SimulatedSlowdown,
			QuoteTimeout:      cfg.QuoteTimeout(),
			VenueFeeBps:       cfg.Scanner.VenueFeeBps,
			FlashLoanFeeBps:   cfg.FlashLoan.FeeBps,
			DetectOnly:        true,
		},
		env, agg, venues, pairs,
		optimizer, guard, coord, gov, logger,
	), nil
}

// warmOptimizer replays persisted gas history into the rolling window
func warmOptimizer(optimizer *gas.Optimizer, store *storage.Store, windowSize int, logger *slog.Logger) {
	samples, err := store.RecentGasSamples(windowSize)
	if err != nil {
		logger.Warn("gas window warmup failed", slog.Any("err", err))
		return
	}
	for _, s := range samples {
		optimizer.Observe(s.Price)
	}
	if len(samples) > 0 {
		logger.Info("gas window warmed", slog.Int("samples", len(samples)))
	}
}
