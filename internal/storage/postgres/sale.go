package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/sale"
)

const (
	createSaleSQL = `INSERT INTO sales (id, customer_id, lines, subtotal, tax, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	totalSinceSQL = `SELECT COALESCE(SUM(total), 0), COUNT(*) FROM sales WHERE created_at >= $1`
)

var _ sale.Repository = (*SaleRepository)(nil)

// SaleRepository implements sale.Repository backed by PostgreSQL.
type SaleRepository struct {
	pool *pgxpool.Pool
}

// NewSaleRepository returns a SaleRepository that uses the given pool.
func NewSaleRepository(pool *pgxpool.Pool) *SaleRepository {
	return &SaleRepository{pool: pool}
}

// Create persists a completed sale. The line items are serialized to JSON
// for storage in the JSONB column.
func (r *SaleRepository) Create(ctx context.Context, rec *sale.Record) error {
	linesJSON, err := json.Marshal(rec.Lines)
	if err != nil {
		return fmt.Errorf("marshaling sale lines: %w", err)
	}

	_, err = r.pool.Exec(ctx, createSaleSQL,
		rec.ID, rec.CustomerID, linesJSON,
		rec.Subtotal, rec.Tax, rec.Total, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating sale %q: %w", rec.ID, err)
	}

	return nil
}

// TotalSince returns the summed total and count of sales recorded at or
// after the given time.
func (r *SaleRepository) TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, int, error) {
	var (
		total decimal.Decimal
		count int
	)
	err := r.pool.QueryRow(ctx, totalSinceSQL, since).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("summing sales: %w", err)
	}
	return total, count, nil
}
