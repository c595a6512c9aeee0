package ledger

import "context"

// Repository is the opaque store behind the ledger. The in-memory ledger is
// the runtime authority; the repository loads it at startup and receives
// write-behind stock updates after committed mutations.
type Repository interface {
	ListBatches(ctx context.Context) ([]Batch, error)
	AddBatch(ctx context.Context, b Batch) error
	// SaveStockLevels persists the current remaining stock of every batch of
	// one product.
	SaveStockLevels(ctx context.Context, productID string, batches []Batch) error
}
