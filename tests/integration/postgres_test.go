//go:build integration

// Integration tests for the PostgreSQL storage layer. They start a real
// postgres container, run the embedded migrations, and exercise the
// repositories end to end. Run with:
//
//	go test -tags integration ./tests/integration/
package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
	"github.com/mirelle-labs/glowpos/internal/storage/memory"
	"github.com/mirelle-labs/glowpos/internal/storage/postgres"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("glowpos"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = postgres.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	return m.Run()
}

func TestProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewProductRepository(pool)

	p := catalog.Product{
		ID:       "it-prod-1",
		Name:     "Vitamin C Serum",
		Brand:    "The Ordinary",
		Category: "Serums",
		Price:    decimal.RequireFromString("45.00"),
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.True(t, got.Price.Equal(p.Price), "price %s", got.Price)

	p.Price = decimal.RequireFromString("47.50")
	require.NoError(t, repo.Update(ctx, p))
	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("47.50")))

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.ErrorIs(t, repo.Update(ctx, p), catalog.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), catalog.ErrNotFound)
}

func TestBatchRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewBatchRepository(pool)

	batches := []ledger.Batch{
		{
			ID: "it-batch-1", ProductID: "it-p1", ProductName: "Cleanser", Brand: "Cetaphil",
			BatchNumber: "GC-IT-001", Price: decimal.RequireFromString("32.00"),
			StockRemaining: 10, ExpiryDate: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			ID: "it-batch-2", ProductID: "it-p1", ProductName: "Cleanser", Brand: "Cetaphil",
			BatchNumber: "GC-IT-002", Price: decimal.RequireFromString("32.00"),
			StockRemaining: 4, ExpiryDate: time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, b := range batches {
		require.NoError(t, repo.AddBatch(ctx, b))
	}

	// A settled sale drains the earlier-expiring batch; write the new levels
	// back the way the ledger observer does.
	batches[1].StockRemaining = 0
	batches[0].StockRemaining = 7
	require.NoError(t, repo.SaveStockLevels(ctx, "it-p1", batches))

	stored, err := repo.ListBatches(ctx)
	require.NoError(t, err)

	byID := make(map[string]ledger.Batch)
	for _, b := range stored {
		byID[b.ID] = b
	}
	assert.Equal(t, 7, byID["it-batch-1"].StockRemaining)
	assert.Equal(t, 0, byID["it-batch-2"].StockRemaining)
	assert.Equal(t, "2026-01-30", byID["it-batch-2"].ExpiryDate.Format("2006-01-02"))
}

func TestBatchRepositoryDuplicateLot(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewBatchRepository(pool)

	b := ledger.Batch{
		ID: "it-batch-dup-1", ProductID: "it-p2", ProductName: "Serum", Brand: "Acme",
		BatchNumber: "DUP-001", Price: decimal.RequireFromString("10.00"),
		StockRemaining: 1, ExpiryDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.AddBatch(ctx, b))

	// Same lot number for the same product violates the unique index.
	b.ID = "it-batch-dup-2"
	assert.Error(t, repo.AddBatch(ctx, b))
}

func TestCustomerRepository(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewCustomerRepository(pool)

	c := customer.Customer{
		ID:        "it-cust-1",
		Name:      "Sarah Johnson",
		Phone:     "+1 234-567-8901",
		Email:     "sarah.j@email.com",
		SkinType:  "Oily",
		Allergies: []string{"Fragrance", "Parabens"},
		Purchases: 3,
	}
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fragrance", "Parabens"}, got.Allergies)
	assert.True(t, got.LastVisit.IsZero())

	at := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordPurchase(ctx, c.ID, at))

	got, err = repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Purchases)
	assert.True(t, got.LastVisit.Equal(at))

	assert.ErrorIs(t, repo.RecordPurchase(ctx, "it-cust-missing", at), customer.ErrNotFound)
}

func TestSaleRepositoryTotalSince(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewSaleRepository(pool)

	base := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	records := []*sale.Record{
		{
			ID: "it-sale-1", CustomerID: "it-cust-1",
			Lines: []sale.Line{{
				ProductID: "it-p1", Name: "Cleanser",
				UnitPrice: decimal.RequireFromString("32.00"), Quantity: 2,
				Draws: []ledger.Draw{{BatchID: "it-batch-2", Quantity: 2}},
			}},
			Subtotal:  decimal.RequireFromString("64.00"),
			Tax:       decimal.RequireFromString("6.40"),
			Total:     decimal.RequireFromString("70.40"),
			CreatedAt: base,
		},
		{
			ID: "it-sale-2", CustomerID: "it-cust-1",
			Lines: []sale.Line{{
				ProductID: "it-p1", Name: "Cleanser",
				UnitPrice: decimal.RequireFromString("32.00"), Quantity: 1,
				Draws: []ledger.Draw{{BatchID: "it-batch-1", Quantity: 1}},
			}},
			Subtotal:  decimal.RequireFromString("32.00"),
			Tax:       decimal.RequireFromString("3.20"),
			Total:     decimal.RequireFromString("35.20"),
			CreatedAt: base.Add(-48 * time.Hour),
		},
	}
	for _, rec := range records {
		require.NoError(t, repo.Create(ctx, rec))
	}

	total, count, err := repo.TotalSince(ctx, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.True(t, total.Equal(decimal.RequireFromString("70.40")), "total %s", total)

	total, count, err = repo.TotalSince(ctx, base.Add(-72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, total.Equal(decimal.RequireFromString("105.60")), "total %s", total)
}

func TestSeedDataFitsSchema(t *testing.T) {
	ctx := context.Background()

	demo := memory.Seed(time.Now())

	suppliers, err := demo.Suppliers().List(ctx)
	require.NoError(t, err)
	repo := postgres.NewSupplierRepository(pool)
	for _, s := range suppliers {
		require.NoError(t, repo.Create(ctx, s))
	}

	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, len(suppliers))

	got, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "BeautyPro Supplies", got.Name)
	assert.Equal(t, "2025-01-15", got.LastRestock.Format("2006-01-02"))
}
