package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mirelle-labs/glowpos/internal/domain/catalog"
	"github.com/mirelle-labs/glowpos/internal/domain/ledger"
)

const dateLayout = "2006-01-02"

type productResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Brand          string  `json:"brand"`
	Category       string  `json:"category"`
	Price          float64 `json:"price"`
	TotalStock     int     `json:"totalStock"`
	EarliestExpiry string  `json:"earliestExpiry,omitempty"`
	ExpiryStatus   string  `json:"expiryStatus,omitempty"`
	StockStatus    string  `json:"stockStatus"`
}

type productRequest struct {
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

type batchResponse struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"productId"`
	BatchNumber    string  `json:"batchNumber"`
	Price          float64 `json:"price"`
	StockRemaining int     `json:"stockRemaining"`
	ExpiryDate     string  `json:"expiryDate"`
	ExpiryStatus   string  `json:"expiryStatus"`
}

type batchRequest struct {
	BatchNumber string  `json:"batchNumber"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	ExpiryDate  string  `json:"expiryDate"`
}

// listProducts merges the catalog with the live stock ledger: each product
// carries its total remaining stock, earliest stocked expiry, and the derived
// status buckets used by the dashboard tiles.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	aggregates := make(map[string]ledger.ProductAggregate)
	for _, agg := range h.ledger.Aggregates() {
		aggregates[agg.ProductID] = agg
	}

	query := r.URL.Query().Get("q")
	now := time.Now()
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		if !p.Matches(query) {
			continue
		}
		resp := productResponse{
			ID:          p.ID,
			Name:        p.Name,
			Brand:       p.Brand,
			Category:    p.Category,
			Price:       p.Price.Round(2).InexactFloat64(),
			StockStatus: string(catalog.ClassifyStock(0)),
		}
		if agg, ok := aggregates[p.ID]; ok {
			resp.TotalStock = agg.TotalStock
			resp.StockStatus = string(catalog.ClassifyStock(agg.TotalStock))
			if !agg.EarliestExpiry.IsZero() {
				resp.EarliestExpiry = agg.EarliestExpiry.Format(dateLayout)
				resp.ExpiryStatus = string(catalog.ClassifyExpiry(agg.EarliestExpiry, now))
			}
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	resp := productView(*p)
	now := time.Now()
	for _, agg := range h.ledger.Aggregates() {
		if agg.ProductID != p.ID {
			continue
		}
		resp.TotalStock = agg.TotalStock
		resp.StockStatus = string(catalog.ClassifyStock(agg.TotalStock))
		if !agg.EarliestExpiry.IsZero() {
			resp.EarliestExpiry = agg.EarliestExpiry.Format(dateLayout)
			resp.ExpiryStatus = string(catalog.ClassifyExpiry(agg.EarliestExpiry, now))
		}
		break
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": resp})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	p := catalog.Product{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Brand:    req.Brand,
		Category: req.Category,
		Price:    decimal.NewFromFloat(req.Price),
	}
	if err := p.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"product": productView(p)})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	p := catalog.Product{
		ID:       r.PathValue("id"),
		Name:     req.Name,
		Brand:    req.Brand,
		Category: req.Category,
		Price:    decimal.NewFromFloat(req.Price),
	}
	if err := p.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"product": productView(p)})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	batches, ok := h.ledger.Batches(productID)
	if !ok {
		writeError(r.Context(), w, &ledger.UnknownProductError{ProductID: productID})
		return
	}

	now := time.Now()
	out := make([]batchResponse, len(batches))
	for i, b := range batches {
		out[i] = batchView(b, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": out})
}

// addBatch records a received delivery: the batch enters the in-memory
// ledger for allocation and is persisted through the batch repository.
func (h *Handler) addBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	expiry, err := time.Parse(dateLayout, req.ExpiryDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "expiryDate must be formatted as YYYY-MM-DD"})
		return
	}

	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	b := ledger.Batch{
		ID:             uuid.NewString(),
		ProductID:      p.ID,
		ProductName:    p.Name,
		Brand:          p.Brand,
		BatchNumber:    req.BatchNumber,
		Price:          decimal.NewFromFloat(req.Price),
		StockRemaining: req.Stock,
		ExpiryDate:     expiry,
	}
	if err := h.ledger.AddBatch(b); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.batches.AddBatch(r.Context(), b); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"batch": batchView(b, time.Now())})
}

func productView(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Brand:       p.Brand,
		Category:    p.Category,
		Price:       p.Price.Round(2).InexactFloat64(),
		StockStatus: string(catalog.ClassifyStock(0)),
	}
}

func batchView(b ledger.Batch, now time.Time) batchResponse {
	return batchResponse{
		ID:             b.ID,
		ProductID:      b.ProductID,
		BatchNumber:    b.BatchNumber,
		Price:          b.Price.Round(2).InexactFloat64(),
		StockRemaining: b.StockRemaining,
		ExpiryDate:     b.ExpiryDate.Format(dateLayout),
		ExpiryStatus:   string(catalog.ClassifyExpiry(b.ExpiryDate, now)),
	}
}
