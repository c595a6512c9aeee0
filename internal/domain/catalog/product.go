// Package catalog defines the product records behind the inventory surface:
// the stable identity and price of each product, independent of the batch
// ledger that tracks its stock.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// LowStockThreshold is the total-stock level below which a product is
// flagged for replenishment attention.
const LowStockThreshold = 15

// Product is a catalog item. Stock lives in the batch ledger, not here.
type Product struct {
	ID       string
	Name     string
	Brand    string
	Category string
	Price    decimal.Decimal
}

// Matches reports whether the product's name or brand contains the query,
// case-insensitively. An empty query matches everything.
func (p Product) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Brand), q)
}

// ValidationError reports a single invalid field on a record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the product's fields and returns a ValidationError for the
// first problem found.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.Brand) == "" {
		return &ValidationError{Field: "brand", Reason: "must not be empty"}
	}
	if strings.TrimSpace(p.Category) == "" {
		return &ValidationError{Field: "category", Reason: "must not be empty"}
	}
	if !p.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "must be greater than 0"}
	}
	return nil
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id string) error
}

// ExpiryStatus classifies how close a date is to expiry.
type ExpiryStatus string

const (
	// ExpiryUrgent means the date is within 30 days (or already past).
	ExpiryUrgent ExpiryStatus = "urgent"
	// ExpiryWarning means the date is within 90 days.
	ExpiryWarning ExpiryStatus = "warning"
	// ExpiryGood means the date is more than 90 days out.
	ExpiryGood ExpiryStatus = "good"
)

// ClassifyExpiry buckets an expiry date relative to now.
func ClassifyExpiry(expiry, now time.Time) ExpiryStatus {
	days := int(expiry.Sub(now).Hours() / 24)
	switch {
	case days < 30:
		return ExpiryUrgent
	case days < 90:
		return ExpiryWarning
	default:
		return ExpiryGood
	}
}

// StockStatus classifies a total stock level.
type StockStatus string

const (
	StockLow    StockStatus = "low"
	StockMedium StockStatus = "medium"
	StockGood   StockStatus = "good"
)

// ClassifyStock buckets a total stock count.
func ClassifyStock(total int) StockStatus {
	switch {
	case total < LowStockThreshold:
		return StockLow
	case total < 30:
		return StockMedium
	default:
		return StockGood
	}
}
