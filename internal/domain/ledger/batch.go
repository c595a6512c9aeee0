// Package ledger owns the authoritative set of stock batches per product.
//
// Products are stocked as dated batches: independent lots with their own
// remaining count and expiry date. Allocation is First-Expiry-First-Out:
// stock is always drawn from the soonest-to-expire batch first, with batch ID
// as a deterministic tie-break, so identical ledger state always produces
// identical draws.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Batch is a single dated lot of a product. Identity (ID, ProductID,
// BatchNumber), price, and expiry are fixed at intake; only StockRemaining
// changes, and only through the Ledger. A batch that reaches zero stock stays
// in the ledger for audit but is never selected for allocation.
type Batch struct {
	ID             string
	ProductID      string
	ProductName    string
	Brand          string
	BatchNumber    string
	Price          decimal.Decimal
	StockRemaining int
	ExpiryDate     time.Time
}

// Available reports whether the batch still has stock to allocate.
func (b Batch) Available() bool {
	return b.StockRemaining > 0
}

// expiresBefore orders batches by expiry date ascending, breaking ties by
// batch ID ascending.
func expiresBefore(a, b Batch) bool {
	if !a.ExpiryDate.Equal(b.ExpiryDate) {
		return a.ExpiryDate.Before(b.ExpiryDate)
	}
	return a.ID < b.ID
}

// Draw records how much of a single consume call was allocated from one
// batch. Draws are serialized inside stored sale records, so the JSON shape
// is part of the persistence format.
type Draw struct {
	BatchID  string `json:"batch_id"`
	Quantity int    `json:"quantity"`
}

// ProductAggregate is a derived, read-only rollup of all batches for one
// product. It is recomputed from the batch set on every call and never cached.
// EarliestExpiry is the zero time when no batch has remaining stock.
type ProductAggregate struct {
	ProductID      string
	Name           string
	Brand          string
	Price          decimal.Decimal
	TotalStock     int
	EarliestExpiry time.Time
	Batches        []Batch
}
