// Command batch-ingest loads supplier delivery manifests into the batches
// table. Manifests are gzip-compressed CSV files, one delivered batch per
// line:
//
//	product_id,batch_number,price,stock,expiry_date
//
// Suppliers resend full manifests, so most lines are lots the shop already
// knows about. A bloom filter over the stored (product, lot) pairs screens
// definitely-new lots past the database lookup; a probable hit is confirmed
// against the table before the line is skipped, so a false positive can
// never drop a genuinely new lot. The unique index has the final word.
package main

import (
	"bufio"
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/storage/postgres"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	dateLayout    = "2006-01-02"

	insertBatchSQL = `INSERT INTO batches (id, product_id, product_name, brand, batch_number, price, stock_remaining, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id, batch_number) DO NOTHING`

	lotExistsSQL = `SELECT EXISTS (SELECT 1 FROM batches WHERE product_id = $1 AND batch_number = $2)`
)

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing manifest *.csv.gz files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("batch ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("batch ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv.gz"))
	if err != nil {
		return errors.Wrap(err, "list manifests")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.csv.gz manifests in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	products, err := loadProducts(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "load products")
	}

	lots, err := buildLotIndex(ctx, pool)
	if err != nil {
		return errors.Wrap(err, "build lot index")
	}

	var ingested, skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ingestManifest(ctx, pool, f, products, lots, &ingested, &skipped))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Int("manifests", len(files)),
		slog.Int64("batches_ingested", ingested.Load()),
		slog.Int64("lines_skipped", skipped.Load()),
	)
	return nil
}

type productInfo struct {
	name  string
	brand string
}

func loadProducts(ctx context.Context, pool *pgxpool.Pool) (map[string]productInfo, error) {
	rows, err := pool.Query(ctx, `SELECT id, name, brand FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]productInfo)
	for rows.Next() {
		var id string
		var info productInfo
		if err := rows.Scan(&id, &info.name, &info.brand); err != nil {
			return nil, err
		}
		products[id] = info
	}
	return products, rows.Err()
}

// lotDecision is what a manifest worker should do with a claimed lot.
type lotDecision int

const (
	// lotInsert: the lot is definitely not stored; insert without a lookup.
	lotInsert lotDecision = iota
	// lotVerify: the lot is probably stored; confirm against the table
	// before skipping, since a bloom hit proves nothing.
	lotVerify
	// lotSkip: another worker already claimed this lot during the run.
	lotSkip
)

// lotIndex decides, under one lock, how each manifest lot is handled. The
// bloom filter over stored (product, lot) pairs is a negative pre-screen
// only; the seen set is exact for lots claimed during this run, so the same
// new lot appearing in two manifests is inserted exactly once regardless of
// how the workers interleave.
type lotIndex struct {
	mu     sync.Mutex
	stored *bloom.BloomFilter
	seen   map[string]struct{}
}

func newLotIndex() *lotIndex {
	return &lotIndex{
		stored: bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		seen:   make(map[string]struct{}),
	}
}

// markStored records a lot read from the batches table.
func (ix *lotIndex) markStored(key string) {
	ix.mu.Lock()
	ix.stored.AddString(key)
	ix.mu.Unlock()
}

// claim reserves key for the calling worker. At most one caller gets a
// non-skip decision for any given key.
func (ix *lotIndex) claim(key string) lotDecision {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, ok := ix.seen[key]; ok {
		return lotSkip
	}
	ix.seen[key] = struct{}{}

	if ix.stored.TestString(key) {
		return lotVerify
	}
	ix.stored.AddString(key)
	return lotInsert
}

// buildLotIndex loads every stored (product, lot) pair into a fresh index.
func buildLotIndex(ctx context.Context, pool *pgxpool.Pool) (*lotIndex, error) {
	ix := newLotIndex()

	rows, err := pool.Query(ctx, `SELECT product_id, batch_number FROM batches`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var count int
	for rows.Next() {
		var productID, lot string
		if err := rows.Scan(&productID, &lot); err != nil {
			return nil, err
		}
		ix.markStored(lotKey(productID, lot))
		count++
	}
	slog.Info("lot index built", slog.Int("known_lots", count))
	return ix, rows.Err()
}

func lotKey(productID, lot string) string {
	return productID + "\x00" + lot
}

func lotExists(ctx context.Context, pool *pgxpool.Pool, productID, lot string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, lotExistsSQL, productID, lot).Scan(&exists)
	return exists, err
}

func ingestManifest(
	ctx context.Context,
	pool *pgxpool.Pool,
	path string,
	products map[string]productInfo,
	lots *lotIndex,
	ingested, skipped *atomic.Int64,
) func() error {
	return func() error {
		var lineNo int
		err := streamGzFile(ctx, path, func(line string) error {
			lineNo++
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				return nil
			}

			b, err := parseManifestLine(line, products)
			if err != nil {
				slog.Warn("skipping manifest line",
					slog.String("file", filepath.Base(path)),
					slog.Int("line", lineNo),
					slog.String("error", err.Error()),
				)
				skipped.Add(1)
				return nil
			}

			key := lotKey(b.ProductID, b.BatchNumber)
			switch lots.claim(key) {
			case lotSkip:
				skipped.Add(1)
				return nil
			case lotVerify:
				exists, err := lotExists(ctx, pool, b.ProductID, b.BatchNumber)
				if err != nil {
					return errors.Wrapf(err, "verify lot %s/%s", b.ProductID, b.BatchNumber)
				}
				if exists {
					skipped.Add(1)
					return nil
				}
			}

			tag, err := pool.Exec(ctx, insertBatchSQL,
				b.ID, b.ProductID, b.ProductName, b.Brand, b.BatchNumber,
				b.Price, b.StockRemaining, b.ExpiryDate,
			)
			if err != nil {
				return errors.Wrapf(err, "insert lot %s/%s", b.ProductID, b.BatchNumber)
			}

			// Zero rows means another writer beat us to the unique index;
			// the stored row wins and this line counts as a skip.
			if tag.RowsAffected() == 0 {
				skipped.Add(1)
				return nil
			}
			ingested.Add(1)
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", filepath.Base(path))
		}

		slog.Info("manifest done", slog.String("file", filepath.Base(path)))
		return nil
	}
}

func parseManifestLine(line string, products map[string]productInfo) (ledger.Batch, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 5 {
		return ledger.Batch{}, errors.Errorf("expected 5 fields, got %d", len(fields))
	}

	productID := strings.TrimSpace(fields[0])
	info, ok := products[productID]
	if !ok {
		return ledger.Batch{}, errors.Errorf("unknown product %q", productID)
	}

	lot := strings.TrimSpace(fields[1])
	if lot == "" {
		return ledger.Batch{}, errors.New("empty batch number")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(fields[2]))
	if err != nil {
		return ledger.Batch{}, errors.Wrap(err, "price")
	}

	stock, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return ledger.Batch{}, errors.Wrap(err, "stock")
	}
	if stock < 0 {
		return ledger.Batch{}, errors.New("negative stock")
	}

	expiry, err := time.Parse(dateLayout, strings.TrimSpace(fields[4]))
	if err != nil {
		return ledger.Batch{}, errors.Wrap(err, "expiry date")
	}

	return ledger.Batch{
		ID:             uuid.NewString(),
		ProductID:      productID,
		ProductName:    info.name,
		Brand:          info.brand,
		BatchNumber:    lot,
		Price:          price,
		StockRemaining: stock,
		ExpiryDate:     expiry,
	}, nil
}

// streamGzFile opens a gzip-compressed file and calls fn for each line.
func streamGzFile(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
