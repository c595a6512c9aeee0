// Package sale defines the finalized sale record produced by a successful
// checkout and its persistence contract.
package sale

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
)

// Line is one settled cart line inside a finalized sale, together with the
// batch draws the ledger actually allocated for it.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Draws     []ledger.Draw   `json:"draws"`
}

// Record is a completed sale. Monetary fields are rounded to two decimal
// places; this is the presentation boundary for cart arithmetic.
type Record struct {
	ID         string
	CustomerID string
	Lines      []Line
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// Repository defines persistence operations for completed sales.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	// TotalSince returns the summed total and count of sales recorded at or
	// after the given time.
	TotalSince(ctx context.Context, since time.Time) (decimal.Decimal, int, error)
}
