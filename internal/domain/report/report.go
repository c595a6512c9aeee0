// Package report computes the dashboard rollups. Everything is derived on
// demand from the ledger and repositories; nothing here is cached.
package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
)

// Stats is the shop overview shown on the dashboard.
type Stats struct {
	Customers           int
	TodaySales          decimal.Decimal
	TodaySaleCount      int
	LowStockProducts    int
	ExpiringSoonBatches int
}

// Service derives dashboard stats from the live ledger and stores.
type Service struct {
	ledger    *ledger.Ledger
	sales     sale.Repository
	customers customer.Repository
	now       func() time.Time
}

// NewService creates a report Service over the given sources.
func NewService(l *ledger.Ledger, sales sale.Repository, customers customer.Repository) *Service {
	return &Service{ledger: l, sales: sales, customers: customers, now: time.Now}
}

// Stats computes the current dashboard rollup. "Today" is the calendar day of
// the service clock; "expiring soon" counts stocked batches within 30 days.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	total, count, err := s.sales.TotalSince(ctx, dayStart)
	if err != nil {
		return nil, errors.Wrap(err, "total sales")
	}

	customers, err := s.customers.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list customers")
	}

	stats := &Stats{
		Customers:      len(customers),
		TodaySales:     total,
		TodaySaleCount: count,
	}
	for _, agg := range s.ledger.Aggregates() {
		if agg.TotalStock < catalog.LowStockThreshold {
			stats.LowStockProducts++
		}
		for _, b := range agg.Batches {
			if b.Available() && catalog.ClassifyExpiry(b.ExpiryDate, now) == catalog.ExpiryUrgent {
				stats.ExpiringSoonBatches++
			}
		}
	}
	return stats, nil
}
