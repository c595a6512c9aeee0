// Command seed-db populates a PostgreSQL database with the demo shop data:
// the skincare catalog, its dated stock batches, customers, suppliers, and
// the staff roster. Existing rows with the same IDs cause the run to fail;
// it is meant for fresh databases.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/mirelle-labs/glowpos/internal/storage/memory"
	"github.com/mirelle-labs/glowpos/internal/storage/postgres"
)

func main() {
	var databaseURL string
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "create pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// The demo dataset lives in the in-memory store; copy it over through
	// the repository interfaces.
	demo := memory.Seed(time.Now())

	products, err := demo.Products().List(ctx)
	if err != nil {
		return errors.Wrap(err, "list demo products")
	}
	productRepo := postgres.NewProductRepository(pool)
	for _, p := range products {
		if err := productRepo.Create(ctx, p); err != nil {
			return errors.Wrapf(err, "seed product %q", p.ID)
		}
	}
	slog.Info("seeded products", slog.Int("count", len(products)))

	batchRepo := postgres.NewBatchRepository(pool)
	batches := memory.SampleBatches()
	for _, b := range batches {
		if err := batchRepo.AddBatch(ctx, b); err != nil {
			return errors.Wrapf(err, "seed batch %q", b.ID)
		}
	}
	slog.Info("seeded batches", slog.Int("count", len(batches)))

	customers, err := demo.Customers().List(ctx)
	if err != nil {
		return errors.Wrap(err, "list demo customers")
	}
	customerRepo := postgres.NewCustomerRepository(pool)
	for _, c := range customers {
		if err := customerRepo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "seed customer %q", c.ID)
		}
	}
	slog.Info("seeded customers", slog.Int("count", len(customers)))

	suppliers, err := demo.Suppliers().List(ctx)
	if err != nil {
		return errors.Wrap(err, "list demo suppliers")
	}
	supplierRepo := postgres.NewSupplierRepository(pool)
	for _, s := range suppliers {
		if err := supplierRepo.Create(ctx, s); err != nil {
			return errors.Wrapf(err, "seed supplier %q", s.ID)
		}
	}
	slog.Info("seeded suppliers", slog.Int("count", len(suppliers)))

	members, err := demo.Staff().List(ctx)
	if err != nil {
		return errors.Wrap(err, "list demo staff")
	}
	const insertStaffSQL = `INSERT INTO staff (id, name, initials, role, monthly_sales, commission, total_customers, performance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, m := range members {
		_, err := pool.Exec(ctx, insertStaffSQL,
			m.ID, m.Name, m.Initials, m.Role,
			m.MonthlySales, m.Commission, m.TotalCustomers, m.Performance,
		)
		if err != nil {
			return errors.Wrapf(err, "seed staff %q", m.ID)
		}
	}
	slog.Info("seeded staff", slog.Int("count", len(members)))

	return nil
}
