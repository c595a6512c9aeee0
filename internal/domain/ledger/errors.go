package ledger

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for batch intake and restock.
var (
	ErrDuplicateBatch  = errors.New("batch already exists")
	ErrInvalidBatch    = errors.New("invalid batch")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// UnknownProductError indicates the product has no batches in the ledger.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("unknown product %s", e.ProductID)
}

// InsufficientStockError indicates the total remaining stock across all
// batches of a product is less than the requested quantity. The ledger is
// left untouched when this is returned.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// UnknownBatchError indicates a restock referenced a batch ID that does not
// exist for the product.
type UnknownBatchError struct {
	ProductID string
	BatchID   string
}

func (e *UnknownBatchError) Error() string {
	return fmt.Sprintf("unknown batch %s for product %s", e.BatchID, e.ProductID)
}
