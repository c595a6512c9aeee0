// Package handler exposes the shop over a JSON HTTP API. It is a thin shell:
// requests are decoded, delegated to the domain packages, and domain errors
// are mapped onto HTTP status codes. No business rules live here.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/mirelle-labs/glowpos/internal/domain/cart"
	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
	"github.com/mirelle-labs/glowpos/internal/domain/report"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
	"github.com/mirelle-labs/glowpos/internal/domain/staff"
	"github.com/mirelle-labs/glowpos/internal/domain/supplier"
	"github.com/mirelle-labs/glowpos/internal/notify"
)

// terminalHeader identifies the till a cart request belongs to. Every
// terminal gets its own cart; requests without the header share one default.
const (
	terminalHeader  = "X-Terminal-ID"
	defaultTerminal = "pos-1"
)

// Handler serves the shop management API.
type Handler struct {
	ledger    *ledger.Ledger
	carts     *cart.Registry
	products  catalog.Repository
	batches   ledger.Repository
	customers customer.Repository
	suppliers supplier.Repository
	staff     staff.Repository
	sales     sale.Repository
	reports   *report.Service
	sink      notify.Sink
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	l *ledger.Ledger,
	carts *cart.Registry,
	products catalog.Repository,
	batches ledger.Repository,
	customers customer.Repository,
	suppliers supplier.Repository,
	staffRepo staff.Repository,
	sales sale.Repository,
	reports *report.Service,
	sink notify.Sink,
) *Handler {
	return &Handler{
		ledger:    l,
		carts:     carts,
		products:  products,
		batches:   batches,
		customers: customers,
		suppliers: suppliers,
		staff:     staffRepo,
		sales:     sales,
		reports:   reports,
		sink:      sink,
	}
}

// Routes registers every API endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("POST /api/products", h.createProduct)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("PUT /api/products/{id}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", h.deleteProduct)
	mux.HandleFunc("GET /api/products/{id}/batches", h.listBatches)
	mux.HandleFunc("POST /api/products/{id}/batches", h.addBatch)

	mux.HandleFunc("GET /api/customers", h.listCustomers)
	mux.HandleFunc("POST /api/customers", h.createCustomer)
	mux.HandleFunc("GET /api/customers/{id}", h.getCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", h.updateCustomer)
	mux.HandleFunc("DELETE /api/customers/{id}", h.deleteCustomer)

	mux.HandleFunc("GET /api/suppliers", h.listSuppliers)
	mux.HandleFunc("POST /api/suppliers", h.createSupplier)
	mux.HandleFunc("GET /api/suppliers/{id}", h.getSupplier)
	mux.HandleFunc("PUT /api/suppliers/{id}", h.updateSupplier)
	mux.HandleFunc("DELETE /api/suppliers/{id}", h.deleteSupplier)

	mux.HandleFunc("GET /api/staff", h.listStaff)
	mux.HandleFunc("GET /api/dashboard", h.dashboard)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("PUT /api/cart/customer", h.bindCustomer)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items", h.removeCartItem)
	mux.HandleFunc("POST /api/cart/checkout", h.checkout)

	return mux
}

func terminalID(r *http.Request) string {
	if id := r.Header.Get(terminalHeader); id != "" {
		return id
	}
	return defaultTerminal
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps a domain error onto an HTTP status and a JSON error body.
// 5xx causes are logged and replaced with a generic message so internals do
// not leak to clients.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= 500 {
		zctx.From(ctx).Error("request failed", zap.Error(err))
		msg = "internal server error"
	}
	body := map[string]any{"error": msg}
	if errors.Is(err, cart.ErrConfirmationRequired) {
		// The client is expected to retry the rebind with confirmed=true.
		body["code"] = "confirmation_required"
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	// Checkout failures carry the underlying cause; classify by it.
	var checkoutErr *cart.CheckoutError
	if errors.As(err, &checkoutErr) {
		err = checkoutErr.Reason
	}

	var (
		insufficient *ledger.InsufficientStockError
		outOfStock   *cart.OutOfStockError
		capacity     *cart.BatchCapacityExceededError
		unknownProd  *ledger.UnknownProductError
		unknownBatch *ledger.UnknownBatchError
		lineNotFound *cart.LineNotFoundError

		productValidation  *catalog.ValidationError
		customerValidation *customer.ValidationError
		supplierValidation *supplier.ValidationError
	)

	switch {
	case errors.As(err, &insufficient),
		errors.As(err, &outOfStock),
		errors.As(err, &capacity),
		errors.Is(err, ledger.ErrDuplicateBatch),
		errors.Is(err, cart.ErrConfirmationRequired):
		return http.StatusConflict

	case errors.As(err, &unknownProd),
		errors.As(err, &unknownBatch),
		errors.As(err, &lineNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, supplier.ErrNotFound):
		return http.StatusNotFound

	case errors.As(err, &productValidation),
		errors.As(err, &customerValidation),
		errors.As(err, &supplierValidation),
		errors.Is(err, ledger.ErrInvalidBatch),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, cart.ErrNoCustomer),
		errors.Is(err, cart.ErrEmptyCart):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}
