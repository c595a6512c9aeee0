// Package app wires the application together: configuration, storage,
// the stock ledger, HTTP surface, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/mirelle-labs/glowpos/internal/domain/cart"
	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/report"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
	"github.com/mirelle-labs/glowpos/internal/domain/staff"
	"github.com/mirelle-labs/glowpos/internal/domain/supplier"
	"github.com/mirelle-labs/glowpos/internal/handler"
	"github.com/mirelle-labs/glowpos/internal/notify"
	"github.com/mirelle-labs/glowpos/internal/storage/memory"
	"github.com/mirelle-labs/glowpos/internal/storage/postgres"
	"github.com/mirelle-labs/glowpos/pkg/health"
	"github.com/mirelle-labs/glowpos/pkg/httpmiddleware"
)

// repositories bundles every persistence dependency the handler needs,
// regardless of which backend provides them.
type repositories struct {
	products  catalog.Repository
	batches   ledger.Repository
	customers customer.Repository
	suppliers supplier.Repository
	staff     staff.Repository
	sales     sale.Repository
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	taxRate, err := cfg.ParseTaxRate()
	if err != nil {
		return errors.Wrap(err, "parse tax rate")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Storage: PostgreSQL when configured, the seeded in-memory store
	// otherwise.
	var repos repositories
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}

		healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

		repos = repositories{
			products:  postgres.NewProductRepository(pool),
			batches:   postgres.NewBatchRepository(pool),
			customers: postgres.NewCustomerRepository(pool),
			suppliers: postgres.NewSupplierRepository(pool),
			staff:     postgres.NewStaffRepository(pool),
			sales:     postgres.NewSaleRepository(pool),
		}
		lg.Info("Using PostgreSQL storage")
	} else {
		store := memory.Seed(time.Now())
		repos = repositories{
			products:  store.Products(),
			batches:   store.Batches(),
			customers: store.Customers(),
			suppliers: store.Suppliers(),
			staff:     store.Staff(),
			sales:     store.Sales(),
		}
		lg.Info("No database configured, using seeded in-memory storage")
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Stock ledger, loaded once at startup. After that the in-memory ledger
	// is authoritative; stock levels are written back after every committed
	// mutation.
	stockLedger := ledger.New()
	batches, err := repos.batches.ListBatches(ctx)
	if err != nil {
		return errors.Wrap(err, "load batches")
	}
	for _, b := range batches {
		if err := stockLedger.AddBatch(b); err != nil {
			return errors.Wrapf(err, "load batch %q", b.ID)
		}
	}
	lg.Info("Stock ledger loaded", zap.Int("batches", len(batches)))

	stockLedger.OnChange(func(productID string) {
		current, ok := stockLedger.Batches(productID)
		if !ok {
			return
		}
		total := 0
		for _, b := range current {
			total += b.StockRemaining
		}
		if total < catalog.LowStockThreshold {
			lg.Warn("Product stock low",
				zap.String("product_id", productID),
				zap.Int("total_stock", total),
			)
		}
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repos.batches.SaveStockLevels(saveCtx, productID, current); err != nil {
				lg.Warn("Persisting stock levels failed",
					zap.String("product_id", productID),
					zap.Error(err),
				)
			}
		}()
	})

	// Domain services.
	carts := cart.NewRegistry(stockLedger, taxRate)
	reports := report.NewService(stockLedger, repos.sales, repos.customers)
	sink := notify.NewZapSink(lg.Named("sales"))

	// HTTP surface: API routes plus health endpoints on one server.
	h := handler.NewHandler(
		stockLedger,
		carts,
		repos.products,
		repos.batches,
		repos.customers,
		repos.suppliers,
		repos.staff,
		repos.sales,
		reports,
		sink,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	instrumented := otelhttp.NewHandler(mux, "glowpos",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
