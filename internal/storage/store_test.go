package storage

import (
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/flash-arb/internal/flashloan"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveSettlementAndStats(t *testing.T) {
	store := newTestStore(t)

	outcomes := []flashloan.Outcome{
		flashloan.OutcomeCommitted,
		flashloan.OutcomeRolledBack,
		flashloan.OutcomeRejected,
		flashloan.OutcomeCommitted,
	}
	for i, outcome := range outcomes {
		rec := &flashloan.Receipt{
			Asset:   common.HexToAddress("0x00000000000000000000000000000000000000a1"),
			Amount:  big.NewInt(int64(10_000 + i)),
			Fee:     big.NewInt(9),
			Caller:  common.HexToAddress("0x000000000000000000000000000000000000cafe"),
			Outcome: outcome,
			Period:  uint64(i),
			At:      time.Now().UTC(),
		}
		if err := store.SaveSettlement(rec); err != nil {
			t.Fatalf("save settlement %d: %v", i, err)
		}
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats["settlements"] != 4 {
		t.Errorf("settlements = %d, want 4", stats["settlements"])
	}
	if stats["committed"] != 2 {
		t.Errorf("committed = %d, want 2", stats["committed"])
	}
}

func TestGasSampleRoundTrip(t *testing.T) {
	store := newTestStore(t)

	samples := make([]*GasSample, 0, 20)
	for i := 0; i < 20; i++ {
		samples = append(samples, &GasSample{
			Price:       big.NewInt(int64(50_000_000_000 + i)),
			BlockNumber: uint64(18_000_000 + i),
			ObservedAt:  int64(1_700_000_000 + i),
		})
	}
	if err := store.BatchSaveGasSamples(samples); err != nil {
		t.Fatalf("batch save: %v", err)
	}

	got, err := store.RecentGasSamples(5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d samples, want 5", len(got))
	}

	// most recent 5, oldest first
	for i, sample := range got {
		wantBlock := uint64(18_000_015 + i)
		if sample.BlockNumber != wantBlock {
			t.Errorf("sample %d block = %d, want %d", i, sample.BlockNumber, wantBlock)
		}
		wantPrice := big.NewInt(int64(50_000_000_015 + i))
		if sample.Price.Cmp(wantPrice) != 0 {
			t.Errorf("sample %d price = %s, want %s", i, sample.Price, wantPrice)
		}
	}
}

func TestRecentGasSamplesEmpty(t *testing.T) {
	store := newTestStore(t)

	got, err := store.RecentGasSamples(10)
	if err != nil {
		t.Fatalf("recent on empty db: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d samples from empty db", len(got))
	}
}
