package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/pulkyeet/flash-arb/internal/amm"
	"github.com/pulkyeet/flash-arb/internal/config"
	"github.com/pulkyeet/flash-arb/internal/flashloan"
	"github.com/pulkyeet/flash-arb/internal/gas"
	"github.com/pulkyeet/flash-arb/internal/governor"
	"github.com/pulkyeet/flash-arb/internal/mevguard"
	"github.com/pulkyeet/flash-arb/internal/scanner"
	"github.com/pulkyeet/flash-arb/internal/settlement"
	"github.com/pulkyeet/flash-arb/internal/storage"
)

// fixed oracle for the simulated environment
type flatOracle struct{ price *big.Int }

func (o flatOracle) GasPrice(ctx context.Context) (*big.Int, error) {
	return new(big.Int).Set(o.price), nil
}

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "", "path to config.toml")
	principal := flag.Int64("principal", 100_000000, "flash loan principal (6-decimal units)")
	cycles := flag.Int("cycles", 12, "scan cycles to run")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// simulated settlement environment with two venues quoting the same
	// pair at diverging rates
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

	// alpha trades 1 TKA : 1000 TKB, beta trades 1000 TKB : 1.3 TKA
	million := big.NewInt(1_000_000)
	if err := alpha.Seed(
		new(big.Int).Mul(big.NewInt(10_000), million),
		new(big.Int).Mul(big.NewInt(10_000_000), million),
	); err != nil {
		log.Fatalf("seed alpha: %v", err)
	}
	if err := beta.Seed(
		new(big.Int).Mul(big.NewInt(13_000), million),
		new(big.Int).Mul(big.NewInt(10_000_000), million),
	); err != nil {
		log.Fatalf("seed beta: %v", err)
	}

	lending := settlement.NewLendingPool(
		common.HexToAddress("0x0000000000000000000000000000000000000F10"),
		cfg.FlashLoan.FeeBps, ledger,
	)
	if err := lending.Seed(tokenA, new(big.Int).Mul(big.NewInt(1_000_000), million)); err != nil {
		log.Fatalf("seed lending pool: %v", err)
	}

	// the -principal flag caps the governed trade size for the run
	params := governor.NewParams(cfg.Governor.MinProfitBps, cfg.MinTrade(), big.NewInt(*principal))
	params.SetTokenAllowed(tokenA, true)
	params.SetTokenAllowed(tokenB, true)
	params.SetVenueApproved(alpha.ID(), true)
	params.SetVenueApproved(beta.ID(), true)
	gov := governor.New(params, env, cfg.Governor.TimelockDelay, cfg.Governor.ChangeExpiry)

	var sink flashloan.RecordSink
	store, err := storage.NewStore(cfg.Storage.Path)
	if err != nil {
		fmt.Printf("store unavailable (%v), running without persistence\n", err)
	} else {
		defer store.Close()
		sink = store
	}

	exec := flashloan.NewExecutor(
		common.HexToAddress("0x0000000000000000000000000000000000000E01"),
		ledger, params, env,
	)
	exec.RegisterVenue(alpha)
	exec.RegisterVenue(beta)

	coord := flashloan.NewCoordinator(env, lending, exec, gov, sink, logger)
	guard := mevguard.New(env, cfg.Guard.MinAge, cfg.Guard.MaxAge, cfg.Guard.PrivateRelay)

	optimizer := gas.NewOptimizer(
		flatOracle{price: big.NewInt(30e9)}, nil,
		cfg.Gas.WindowSize, cfg.GasCeiling(), cfg.Gas.DefaultLimit, logger,
	)

	agg, err := amm.NewAggregator(env, cfg.Scanner.QuoteCacheSize)
	if err != nil {
		log.Fatalf("create aggregator: %v", err)
	}

	sc := scanner.New(
		scanner.Config{
			Interval:        cfg.ScanInterval(),
			QuoteTimeout:    cfg.QuoteTimeout(),
			VenueFeeBps:     cfg.Scanner.VenueFeeBps,
			FlashLoanFeeBps: cfg.FlashLoan.FeeBps,
		},
		env, agg, []amm.Quoter{alpha, beta}, []amm.TokenPair{pair},
		optimizer, guard, coord, gov, logger,
	)

	fmt.Printf("simulating %d scan cycles, principal cap %s...\n\n", *cycles, big.NewInt(*principal))

	initiator := exec.Account()
	before := ledger.Balance(initiator, tokenA)

	ctx := context.Background()
	for i := 0; i < *cycles; i++ {
		fmt.Printf("cycle %d (period %d)\n", i+1, env.Period())
		sc.Cycle(ctx)
		env.AdvancePeriod()
	}

	after := ledger.Balance(initiator, tokenA)
	profit := new(big.Int).Sub(after, before)

	fmt.Println("\nResults:")
	fmt.Println("========")
	fmt.Printf("  initiator balance before: %s\n", before)
	fmt.Printf("  initiator balance after:  %s\n", after)
	fmt.Printf("  realized profit:          %s\n", profit)

	if store != nil {
		stats, err := store.GetStats()
		if err == nil {
			fmt.Printf("  settlements recorded:     %d (%d committed)\n",
				stats["settlements"], stats["committed"])
		}
	}
}
