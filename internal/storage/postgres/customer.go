package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mirelle-labs/glowpos/internal/domain/customer"
)

const (
	listCustomersSQL = `SELECT id, name, phone, email, skin_type, allergies, purchases, last_visit
		FROM customers ORDER BY id`

	getCustomerByIDSQL = `SELECT id, name, phone, email, skin_type, allergies, purchases, last_visit
		FROM customers WHERE id = $1`

	createCustomerSQL = `INSERT INTO customers (id, name, phone, email, skin_type, allergies, purchases, last_visit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	updateCustomerSQL = `UPDATE customers
		SET name = $2, phone = $3, email = $4, skin_type = $5, allergies = $6, updated_at = now()
		WHERE id = $1`

	deleteCustomerSQL = `DELETE FROM customers WHERE id = $1`

	recordPurchaseSQL = `UPDATE customers
		SET purchases = purchases + 1, last_visit = $2, updated_at = now()
		WHERE id = $1`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// List returns all customers ordered by ID.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// GetByID returns a single customer by their identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// Create inserts a new customer.
func (r *CustomerRepository) Create(ctx context.Context, c customer.Customer) error {
	_, err := r.pool.Exec(ctx, createCustomerSQL,
		c.ID, c.Name, c.Phone, c.Email, c.SkinType, c.Allergies,
		c.Purchases, nullableTime(c.LastVisit),
	)
	if err != nil {
		return fmt.Errorf("creating customer %q: %w", c.ID, err)
	}
	return nil
}

// Update overwrites a customer's profile fields. Purchase history is only
// mutated through RecordPurchase.
func (r *CustomerRepository) Update(ctx context.Context, c customer.Customer) error {
	tag, err := r.pool.Exec(ctx, updateCustomerSQL,
		c.ID, c.Name, c.Phone, c.Email, c.SkinType, c.Allergies,
	)
	if err != nil {
		return fmt.Errorf("updating customer %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// Delete removes a customer by their identifier.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCustomerSQL, id)
	if err != nil {
		return fmt.Errorf("deleting customer %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// RecordPurchase increments the customer's purchase count and moves their
// last visit to the given time.
func (r *CustomerRepository) RecordPurchase(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, recordPurchaseSQL, id, at)
	if err != nil {
		return fmt.Errorf("recording purchase for customer %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var (
		c         customer.Customer
		lastVisit *time.Time
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.Phone, &c.Email, &c.SkinType,
		&c.Allergies, &c.Purchases, &lastVisit,
	)
	if lastVisit != nil {
		c.LastVisit = *lastVisit
	}
	return c, err
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
