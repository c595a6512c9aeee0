package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/staff"
)

const listStaffSQL = `SELECT id, name, initials, role, monthly_sales, commission, total_customers, performance
	FROM staff ORDER BY id`

var _ staff.Repository = (*StaffRepository)(nil)

// StaffRepository implements staff.Repository backed by PostgreSQL.
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository returns a StaffRepository that uses the given pool.
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// List returns all staff members ordered by ID.
func (r *StaffRepository) List(ctx context.Context) ([]staff.Member, error) {
	rows, err := r.pool.Query(ctx, listStaffSQL)
	if err != nil {
		return nil, fmt.Errorf("listing staff: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (staff.Member, error) {
		var (
			m          staff.Member
			sales      decimal.Decimal
			commission decimal.Decimal
		)
		err := row.Scan(
			&m.ID, &m.Name, &m.Initials, &m.Role,
			&sales, &commission, &m.TotalCustomers, &m.Performance,
		)
		m.MonthlySales = sales
		m.Commission = commission
		return m, err
	})
}
