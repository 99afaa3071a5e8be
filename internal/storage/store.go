// Package storage is the persistence collaborator: it receives settlement
// records and gas-price history for later querying. The core only ever
// writes here; no settlement decision reads historical records.
package storage

import (
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pulkyeet/flash-arb/internal/flashloan"
)

const schema = `
CREATE TABLE IF NOT EXISTS settlements (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	asset TEXT NOT NULL,
	amount TEXT NOT NULL,
	fee TEXT NOT NULL,
	caller TEXT NOT NULL,
	outcome TEXT NOT NULL,
	period INTEGER NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_settlements_outcome ON settlements(outcome);
CREATE INDEX IF NOT EXISTS idx_settlements_period ON settlements(period);

CREATE TABLE IF NOT EXISTS gas_samples (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	price TEXT NOT NULL,
	block_number INTEGER NOT NULL,
	observed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gas_samples_block ON gas_samples(block_number);
`

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}

	// WAL for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("initialise schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSettlement records one flash-loan attempt outcome
func (s *Store) SaveSettlement(rec *flashloan.Receipt) error {
	_, err := s.db.Exec(
		"INSERT INTO settlements (asset, amount, fee, caller, outcome, period, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		rec.Asset.Hex(),
		rec.Amount.String(),
		rec.Fee.String(),
		rec.Caller.Hex(),
		string(rec.Outcome),
		rec.Period,
		rec.At.Format("2006-01-02T15:04:05.000Z"),
	)
	return err
}

// GasSample is one historical fee-price observation
type GasSample struct {
	Price       *big.Int
	BlockNumber uint64
	ObservedAt  int64
}

// BatchSaveGasSamples inserts samples inside one transaction with a
// prepared statement; used by the parquet ingester
func (s *Store) BatchSaveGasSamples(samples []*GasSample) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT INTO gas_samples (price, block_number, observed_at) VALUES (?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sample := range samples {
		if _, err := stmt.Exec(sample.Price.String(), sample.BlockNumber, sample.ObservedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentGasSamples returns up to limit most recent samples, oldest first,
// for warming the optimizer window at startup
func (s *Store) RecentGasSamples(limit int) ([]*GasSample, error) {
	rows, err := s.db.Query(
		"SELECT price, block_number, observed_at FROM (SELECT * FROM gas_samples ORDER BY id DESC LIMIT ?) ORDER BY id ASC",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := make([]*GasSample, 0, limit)
	for rows.Next() {
		var priceStr string
		sample := &GasSample{}
		if err := rows.Scan(&priceStr, &sample.BlockNumber, &sample.ObservedAt); err != nil {
			return nil, err
		}
		sample.Price = new(big.Int)
		sample.Price.SetString(priceStr, 10)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

// stats for monitoring
func (s *Store) GetStats() (map[string]int64, error) {
	stats := make(map[string]int64)

	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM settlements").Scan(&count); err != nil {
		return nil, err
	}
	stats["settlements"] = count

	if err := s.db.QueryRow("SELECT COUNT(*) FROM settlements WHERE outcome = 'committed'").Scan(&count); err != nil {
		return nil, err
	}
	stats["committed"] = count

	if err := s.db.QueryRow("SELECT COUNT(*) FROM gas_samples").Scan(&count); err != nil {
		return nil, err
	}
	stats["gas_samples"] = count

	return stats, nil
}
