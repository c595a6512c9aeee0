package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mirelle-labs/glowpos/internal/domain/supplier"
)

const (
	listSuppliersSQL = `SELECT id, name, contact_person, email, phone, address, products_supplied, notes, last_restock
		FROM suppliers ORDER BY id`

	getSupplierByIDSQL = `SELECT id, name, contact_person, email, phone, address, products_supplied, notes, last_restock
		FROM suppliers WHERE id = $1`

	createSupplierSQL = `INSERT INTO suppliers (id, name, contact_person, email, phone, address, products_supplied, notes, last_restock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateSupplierSQL = `UPDATE suppliers
		SET name = $2, contact_person = $3, email = $4, phone = $5, address = $6,
			products_supplied = $7, notes = $8, last_restock = $9, updated_at = now()
		WHERE id = $1`

	deleteSupplierSQL = `DELETE FROM suppliers WHERE id = $1`
)

var _ supplier.Repository = (*SupplierRepository)(nil)

// SupplierRepository implements supplier.Repository backed by PostgreSQL.
type SupplierRepository struct {
	pool *pgxpool.Pool
}

// NewSupplierRepository returns a SupplierRepository that uses the given pool.
func NewSupplierRepository(pool *pgxpool.Pool) *SupplierRepository {
	return &SupplierRepository{pool: pool}
}

// List returns all suppliers ordered by ID.
func (r *SupplierRepository) List(ctx context.Context) ([]supplier.Supplier, error) {
	rows, err := r.pool.Query(ctx, listSuppliersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing suppliers: %w", err)
	}
	return pgx.CollectRows(rows, scanSupplier)
}

// GetByID returns a single supplier by its identifier.
func (r *SupplierRepository) GetByID(ctx context.Context, id string) (*supplier.Supplier, error) {
	rows, err := r.pool.Query(ctx, getSupplierByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting supplier %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSupplier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, supplier.ErrNotFound
		}
		return nil, fmt.Errorf("getting supplier %q: %w", id, err)
	}
	return &s, nil
}

// Create inserts a new supplier.
func (r *SupplierRepository) Create(ctx context.Context, s supplier.Supplier) error {
	_, err := r.pool.Exec(ctx, createSupplierSQL,
		s.ID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address,
		s.ProductsSupplied, s.Notes, nullableTime(s.LastRestock),
	)
	if err != nil {
		return fmt.Errorf("creating supplier %q: %w", s.ID, err)
	}
	return nil
}

// Update overwrites an existing supplier.
func (r *SupplierRepository) Update(ctx context.Context, s supplier.Supplier) error {
	tag, err := r.pool.Exec(ctx, updateSupplierSQL,
		s.ID, s.Name, s.ContactPerson, s.Email, s.Phone, s.Address,
		s.ProductsSupplied, s.Notes, nullableTime(s.LastRestock),
	)
	if err != nil {
		return fmt.Errorf("updating supplier %q: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return supplier.ErrNotFound
	}
	return nil
}

// Delete removes a supplier by its identifier.
func (r *SupplierRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteSupplierSQL, id)
	if err != nil {
		return fmt.Errorf("deleting supplier %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return supplier.ErrNotFound
	}
	return nil
}

func scanSupplier(row pgx.CollectableRow) (supplier.Supplier, error) {
	var (
		s           supplier.Supplier
		lastRestock *time.Time
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.ContactPerson, &s.Email, &s.Phone, &s.Address,
		&s.ProductsSupplied, &s.Notes, &lastRestock,
	)
	if lastRestock != nil {
		s.LastRestock = *lastRestock
	}
	return s, err
}
