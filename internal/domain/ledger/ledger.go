package ledger

import (
	"sort"
	"sync"
)

// ChangeFunc is called after a committed ledger mutation with the affected
// product ID. Observers run outside the ledger locks and must not block for
// long; anything expensive should hand off to its own goroutine.
type ChangeFunc func(productID string)

// productShard holds all batches of one product behind its own mutex, so
// consume calls for different products never contend. Batches are kept sorted
// by (expiry, batch ID) at insert time.
type productShard struct {
	mu      sync.Mutex
	batches []Batch
}

// Ledger maintains batches and serves FIFO-consistent views and mutations.
// Reads return copies and are advisory snapshots; the authoritative stock
// check happens inside Consume.
type Ledger struct {
	mu     sync.RWMutex
	shards map[string]*productShard

	obsMu     sync.RWMutex
	observers []ChangeFunc
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{shards: make(map[string]*productShard)}
}

// OnChange registers an observer notified after every committed mutation.
func (l *Ledger) OnChange(fn ChangeFunc) {
	l.obsMu.Lock()
	defer l.obsMu.Unlock()
	l.observers = append(l.observers, fn)
}

func (l *Ledger) notify(productID string) {
	l.obsMu.RLock()
	observers := l.observers
	l.obsMu.RUnlock()
	for _, fn := range observers {
		fn(productID)
	}
}

// AddBatch adds a new batch to the ledger. The batch ID must be unique within
// its product; zero initial stock is allowed (the batch is visible for audit
// but never selected).
func (l *Ledger) AddBatch(b Batch) error {
	if b.ID == "" || b.ProductID == "" || b.StockRemaining < 0 || b.ExpiryDate.IsZero() {
		return ErrInvalidBatch
	}

	l.mu.Lock()
	shard, ok := l.shards[b.ProductID]
	if !ok {
		shard = &productShard{}
		l.shards[b.ProductID] = shard
	}
	l.mu.Unlock()

	shard.mu.Lock()
	for _, existing := range shard.batches {
		if existing.ID == b.ID {
			shard.mu.Unlock()
			return ErrDuplicateBatch
		}
	}
	// Insert keeping (expiry, batch ID) order so allocation never re-sorts.
	idx := sort.Search(len(shard.batches), func(i int) bool {
		return expiresBefore(b, shard.batches[i])
	})
	shard.batches = append(shard.batches, Batch{})
	copy(shard.batches[idx+1:], shard.batches[idx:])
	shard.batches[idx] = b
	shard.mu.Unlock()

	l.notify(b.ProductID)
	return nil
}

func (l *Ledger) shard(productID string) (*productShard, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.shards[productID]
	return s, ok
}

// Batches returns copies of all batches of a product in FIFO order, including
// exhausted ones. The second return is false when the product has no batches.
func (l *Ledger) Batches(productID string) ([]Batch, bool) {
	shard, ok := l.shard(productID)
	if !ok {
		return nil, false
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	out := make([]Batch, len(shard.batches))
	copy(out, shard.batches)
	return out, true
}

// Aggregates computes per-product rollups over the current batch set, grouped
// by product and sorted by product ID for determinism. Each aggregate's batch
// list is in FIFO order. The result is a fresh snapshot on every call.
func (l *Ledger) Aggregates() []ProductAggregate {
	l.mu.RLock()
	ids := make([]string, 0, len(l.shards))
	shards := make([]*productShard, 0, len(l.shards))
	for id, s := range l.shards {
		ids = append(ids, id)
		shards = append(shards, s)
	}
	l.mu.RUnlock()

	type pair struct {
		id    string
		shard *productShard
	}
	pairs := make([]pair, len(ids))
	for i := range ids {
		pairs[i] = pair{id: ids[i], shard: shards[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	out := make([]ProductAggregate, 0, len(pairs))
	for _, p := range pairs {
		p.shard.mu.Lock()
		batches := make([]Batch, len(p.shard.batches))
		copy(batches, p.shard.batches)
		p.shard.mu.Unlock()

		if len(batches) == 0 {
			continue
		}

		agg := ProductAggregate{
			ProductID: p.id,
			Name:      batches[0].ProductName,
			Brand:     batches[0].Brand,
			Price:     batches[0].Price,
			Batches:   batches,
		}
		for _, b := range batches {
			agg.TotalStock += b.StockRemaining
			// Batches are FIFO-ordered, so the first stocked batch carries
			// the earliest expiry.
			if b.Available() && agg.EarliestExpiry.IsZero() {
				agg.EarliestExpiry = b.ExpiryDate
			}
		}
		out = append(out, agg)
	}
	return out
}

// EarliestAvailableBatch returns a copy of the soonest-to-expire batch of the
// product that still has stock. It returns false when no batch has remaining
// stock, including when the product has no batches at all.
func (l *Ledger) EarliestAvailableBatch(productID string) (Batch, bool) {
	shard, ok := l.shard(productID)
	if !ok {
		return Batch{}, false
	}
	shard.mu.Lock()
	defer shard.mu.Unlock()
	for _, b := range shard.batches {
		if b.Available() {
			return b, true
		}
	}
	return Batch{}, false
}

// Consume draws quantity units of the product from its batches in FIFO order,
// skipping exhausted batches and partially spanning batches as needed. It
// returns the draws actually taken.
//
// Consume is all-or-nothing: when total remaining stock is below quantity it
// returns InsufficientStockError and no batch is mutated. Calls for the same
// product are serialized by the product's lock; the hold time is bounded to
// the single-product allocation loop.
func (l *Ledger) Consume(productID string, quantity int) ([]Draw, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	shard, ok := l.shard(productID)
	if !ok {
		return nil, &UnknownProductError{ProductID: productID}
	}

	shard.mu.Lock()
	total := 0
	for _, b := range shard.batches {
		total += b.StockRemaining
	}
	if total < quantity {
		shard.mu.Unlock()
		return nil, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: total,
		}
	}

	draws := make([]Draw, 0, 2)
	remaining := quantity
	for i := range shard.batches {
		if remaining == 0 {
			break
		}
		b := &shard.batches[i]
		if b.StockRemaining == 0 {
			continue
		}
		take := min(b.StockRemaining, remaining)
		b.StockRemaining -= take
		remaining -= take
		draws = append(draws, Draw{BatchID: b.ID, Quantity: take})
	}
	shard.mu.Unlock()

	l.notify(productID)
	return draws, nil
}

// Restock is the inverse of Consume: it returns previously drawn quantities
// to the exact batches they came from. All draws are validated before any
// batch is mutated, so a restock is all-or-nothing too.
func (l *Ledger) Restock(productID string, draws []Draw) error {
	shard, ok := l.shard(productID)
	if !ok {
		return &UnknownProductError{ProductID: productID}
	}

	shard.mu.Lock()
	idx := make(map[string]int, len(shard.batches))
	for i, b := range shard.batches {
		idx[b.ID] = i
	}
	for _, d := range draws {
		if d.Quantity <= 0 {
			shard.mu.Unlock()
			return ErrInvalidQuantity
		}
		if _, ok := idx[d.BatchID]; !ok {
			shard.mu.Unlock()
			return &UnknownBatchError{ProductID: productID, BatchID: d.BatchID}
		}
	}
	for _, d := range draws {
		shard.batches[idx[d.BatchID]].StockRemaining += d.Quantity
	}
	shard.mu.Unlock()

	l.notify(productID)
	return nil
}
