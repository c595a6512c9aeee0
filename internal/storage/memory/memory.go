// Package memory provides in-memory repository implementations. This is the
// reference deployment mode: the whole shop state lives in process, seeded
// with sample data, and vanishes on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
	"github.com/mirelle-labs/glowpos/internal/domain/staff"
	"github.com/mirelle-labs/glowpos/internal/domain/supplier"
)

// Store holds every repository behind one mutex. Contention is irrelevant at
// single-shop scale, and one lock keeps cross-entity reads consistent.
type Store struct {
	mu        sync.RWMutex
	products  map[string]catalog.Product
	batches   map[string]ledger.Batch
	customers map[string]customer.Customer
	suppliers map[string]supplier.Supplier
	staff     []staff.Member
	sales     []sale.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{
		products:  make(map[string]catalog.Product),
		batches:   make(map[string]ledger.Batch),
		customers: make(map[string]customer.Customer),
		suppliers: make(map[string]supplier.Supplier),
	}
}

// --- catalog.Repository ---

// Products exposes the store as a catalog repository.
func (s *Store) Products() catalog.Repository { return (*productRepo)(s) }

type productRepo Store

func (r *productRepo) List(_ context.Context) ([]catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (r *productRepo) Create(_ context.Context, p catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *productRepo) Update(_ context.Context, p catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	r.products[p.ID] = p
	return nil
}

func (r *productRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// --- ledger.Repository ---

// Batches exposes the store as a batch repository.
func (s *Store) Batches() ledger.Repository { return (*batchRepo)(s) }

type batchRepo Store

func (r *batchRepo) ListBatches(_ context.Context) ([]ledger.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ledger.Batch, 0, len(r.batches))
	for _, b := range r.batches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *batchRepo) AddBatch(_ context.Context, b ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[b.ID]; ok {
		return ledger.ErrDuplicateBatch
	}
	r.batches[b.ID] = b
	return nil
}

func (r *batchRepo) SaveStockLevels(_ context.Context, _ string, batches []ledger.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range batches {
		stored, ok := r.batches[b.ID]
		if !ok {
			continue
		}
		stored.StockRemaining = b.StockRemaining
		r.batches[b.ID] = stored
	}
	return nil
}

// --- customer.Repository ---

// Customers exposes the store as a customer repository.
func (s *Store) Customers() customer.Repository { return (*customerRepo)(s) }

type customerRepo Store

func (r *customerRepo) List(_ context.Context) ([]customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]customer.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *customerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return &c, nil
}

func (r *customerRepo) Create(_ context.Context, c customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
	return nil
}

// Update overwrites a customer's profile fields. Purchase history is only
// mutated through RecordPurchase.
func (r *customerRepo) Update(_ context.Context, c customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.customers[c.ID]
	if !ok {
		return customer.ErrNotFound
	}
	c.Purchases = existing.Purchases
	c.LastVisit = existing.LastVisit
	r.customers[c.ID] = c
	return nil
}

func (r *customerRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.customers[id]; !ok {
		return customer.ErrNotFound
	}
	delete(r.customers, id)
	return nil
}

func (r *customerRepo) RecordPurchase(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return customer.ErrNotFound
	}
	c.Purchases++
	c.LastVisit = at
	r.customers[id] = c
	return nil
}

// --- supplier.Repository ---

// Suppliers exposes the store as a supplier repository.
func (s *Store) Suppliers() supplier.Repository { return (*supplierRepo)(s) }

type supplierRepo Store

func (r *supplierRepo) List(_ context.Context) ([]supplier.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]supplier.Supplier, 0, len(r.suppliers))
	for _, sp := range r.suppliers {
		out = append(out, sp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *supplierRepo) GetByID(_ context.Context, id string) (*supplier.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sp, ok := r.suppliers[id]
	if !ok {
		return nil, supplier.ErrNotFound
	}
	return &sp, nil
}

func (r *supplierRepo) Create(_ context.Context, sp supplier.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppliers[sp.ID] = sp
	return nil
}

func (r *supplierRepo) Update(_ context.Context, sp supplier.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[sp.ID]; !ok {
		return supplier.ErrNotFound
	}
	r.suppliers[sp.ID] = sp
	return nil
}

func (r *supplierRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[id]; !ok {
		return supplier.ErrNotFound
	}
	delete(r.suppliers, id)
	return nil
}

// --- staff.Repository ---

// Staff exposes the store as a staff repository.
func (s *Store) Staff() staff.Repository { return (*staffRepo)(s) }

type staffRepo Store

func (r *staffRepo) List(_ context.Context) ([]staff.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]staff.Member, len(r.staff))
	copy(out, r.staff)
	return out, nil
}

// --- sale.Repository ---

// Sales exposes the store as a sale repository.
func (s *Store) Sales() sale.Repository { return (*saleRepo)(s) }

type saleRepo Store

func (r *saleRepo) Create(_ context.Context, rec *sale.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, *rec)
	return nil
}

func (r *saleRepo) TotalSince(_ context.Context, since time.Time) (decimal.Decimal, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := decimal.Zero
	count := 0
	for _, rec := range r.sales {
		if rec.CreatedAt.Before(since) {
			continue
		}
		total = total.Add(rec.Total)
		count++
	}
	return total, count, nil
}
