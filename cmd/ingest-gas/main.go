package main

import (
	"flag"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/joho/godotenv"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/pulkyeet/flash-arb/internal/storage"
)

// ParquetRow matches the fee-history dump layout (mempool-dumpster style)
type ParquetRow struct {
	Timestamp             int64
	Hash                  string
	GasPrice              string
	GasFeeCap             string
	IncludedAtBlockHeight int64
}

func main() {
	_ = godotenv.Load()

	parquetFile := flag.String("file", "", "Path to parquet file")
	dbPath := flag.String("db", "data/flasharb.db", "Path to SQLite database")
	flag.Parse()

	if *parquetFile == "" {
		log.Fatal("Usage: --file <parquet_file>")
	}

	fmt.Printf("ingesting gas history from %s...\n", *parquetFile)

	store, err := storage.NewStore(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	fr, err := local.NewLocalFileReader(*parquetFile)
	if err != nil {
		log.Fatalf("Failed to open parquet file: %v", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 4)
	if err != nil {
		log.Fatalf("Failed to create parquet reader: %v", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	fmt.Printf("total rows: %d\n", numRows)

	batchSize := 1000
	totalIngested := 0
	startTime := time.Now()

	for i := 0; i < numRows; i += batchSize {
		toRead := batchSize
		if i+toRead > numRows {
			toRead = numRows - i
		}

		rawRows, err := pr.ReadByNumber(toRead)
		if err != nil {
			log.Printf("Warning: failed to read batch at %d: %v", i, err)
			break
		}
		if len(rawRows) == 0 {
			break
		}

		batch := make([]*storage.GasSample, 0, len(rawRows))
		for _, rawRow := range rawRows {
			pRow, ok := rawRow.(ParquetRow)
			if !ok {
				pRowPtr, ok := rawRow.(*ParquetRow)
				if !ok {
					continue
				}
				pRow = *pRowPtr
			}

			price, ok := new(big.Int).SetString(pRow.GasPrice, 10)
			if !ok || price.Sign() <= 0 {
				continue
			}

			batch = append(batch, &storage.GasSample{
				Price:       price,
				BlockNumber: uint64(pRow.IncludedAtBlockHeight),
				ObservedAt:  pRow.Timestamp,
			})
		}

		if err := store.BatchSaveGasSamples(batch); err != nil {
			log.Fatalf("Failed to save batch at %d: %v", i, err)
		}
		totalIngested += len(batch)

		if (i/batchSize)%10 == 0 {
			fmt.Printf("  ingested %d/%d rows - elapsed: %s\n",
				totalIngested, numRows, time.Since(startTime).Round(time.Second))
		}
	}

	stats, err := store.GetStats()
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Printf("\ndone: %d samples ingested, %d total in db\n",
		totalIngested, stats["gas_samples"])
}
