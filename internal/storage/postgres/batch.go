package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
)

const (
	listBatchesSQL = `SELECT id, product_id, product_name, brand, batch_number, price, stock_remaining, expiry_date
		FROM batches ORDER BY product_id, expiry_date, id`

	insertBatchSQL = `INSERT INTO batches (id, product_id, product_name, brand, batch_number, price, stock_remaining, expiry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	saveStockSQL = `UPDATE batches SET stock_remaining = $2, updated_at = now() WHERE id = $1`
)

var _ ledger.Repository = (*BatchRepository)(nil)

// BatchRepository implements ledger.Repository backed by PostgreSQL. The
// ledger loads every batch at startup and writes stock levels back after
// each mutation, so reads here happen once per process.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository returns a BatchRepository that uses the given pool.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

// ListBatches returns every stored batch ordered by product and expiry.
func (r *BatchRepository) ListBatches(ctx context.Context) ([]ledger.Batch, error) {
	rows, err := r.pool.Query(ctx, listBatchesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	return pgx.CollectRows(rows, scanBatch)
}

// AddBatch inserts a new stock batch.
func (r *BatchRepository) AddBatch(ctx context.Context, b ledger.Batch) error {
	_, err := r.pool.Exec(ctx, insertBatchSQL,
		b.ID, b.ProductID, b.ProductName, b.Brand, b.BatchNumber,
		b.Price, b.StockRemaining, b.ExpiryDate,
	)
	if err != nil {
		return fmt.Errorf("inserting batch %q: %w", b.ID, err)
	}
	return nil
}

// SaveStockLevels persists the remaining stock of every batch of one product
// in a single transaction.
func (r *BatchRepository) SaveStockLevels(ctx context.Context, productID string, batches []ledger.Batch) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning stock update for product %q: %w", productID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, b := range batches {
		if _, err := tx.Exec(ctx, saveStockSQL, b.ID, b.StockRemaining); err != nil {
			return fmt.Errorf("saving stock for batch %q: %w", b.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing stock update for product %q: %w", productID, err)
	}
	return nil
}

func scanBatch(row pgx.CollectableRow) (ledger.Batch, error) {
	var (
		b     ledger.Batch
		price decimal.Decimal
	)
	err := row.Scan(
		&b.ID, &b.ProductID, &b.ProductName, &b.Brand, &b.BatchNumber,
		&price, &b.StockRemaining, &b.ExpiryDate,
	)
	b.Price = price
	return b, err
}
