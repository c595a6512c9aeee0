package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
)

// Registry maps terminal IDs to their carts, all drawing from one shared
// ledger. Carts themselves are single-actor; Do serializes access per
// terminal so concurrent requests for the same terminal cannot interleave.
type Registry struct {
	ledger  *ledger.Ledger
	taxRate decimal.Decimal

	mu    sync.Mutex
	carts map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	cart *Cart
}

// NewRegistry creates a registry whose carts share the given ledger and tax
// rate.
func NewRegistry(l *ledger.Ledger, taxRate decimal.Decimal) *Registry {
	return &Registry{
		ledger:  l,
		taxRate: taxRate,
		carts:   make(map[string]*entry),
	}
}

func (r *Registry) entry(terminalID string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[terminalID]
	if !ok {
		e = &entry{cart: New(r.ledger, r.taxRate)}
		r.carts[terminalID] = e
	}
	return e
}

// Do runs fn against the terminal's cart while holding that terminal's lock.
// The cart must not escape fn.
func (r *Registry) Do(terminalID string, fn func(c *Cart) error) error {
	e := r.entry(terminalID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.cart)
}
