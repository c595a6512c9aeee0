package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mirelle-labs/glowpos/internal/domain/cart"
	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/sale"
	"github.com/mirelle-labs/glowpos/internal/notify"
)

type cartLineResponse struct {
	ProductID string  `json:"productId"`
	BatchID   string  `json:"batchId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

type cartResponse struct {
	CustomerID string             `json:"customerId"`
	Lines      []cartLineResponse `json:"lines"`
	Subtotal   float64            `json:"subtotal"`
	Tax        float64            `json:"tax"`
	Total      float64            `json:"total"`
}

func cartView(c *cart.Cart) cartResponse {
	lines := c.Lines()
	out := make([]cartLineResponse, len(lines))
	for i, line := range lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		out[i] = cartLineResponse{
			ProductID: line.ProductID,
			BatchID:   line.BatchID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.Round(2).InexactFloat64(),
			Quantity:  line.Quantity,
			LineTotal: lineTotal.Round(2).InexactFloat64(),
		}
	}

	totals := c.Totals()
	return cartResponse{
		CustomerID: c.CustomerID(),
		Lines:      out,
		Subtotal:   totals.Subtotal.Round(2).InexactFloat64(),
		Tax:        totals.Tax.Round(2).InexactFloat64(),
		Total:      totals.Total.Round(2).InexactFloat64(),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	var resp cartResponse
	_ = h.carts.Do(terminalID(r), func(c *cart.Cart) error {
		resp = cartView(c)
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

// bindCustomer attaches the cart to a customer. Rebinding a cart that still
// has lines requires confirmed=true and clears the lines; an empty
// customerId unbinds the cart under the same rule.
func (h *Handler) bindCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customerId"`
		Confirmed  bool   `json:"confirmed"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	var cust *customer.Customer
	if req.CustomerID != "" {
		c, err := h.customers.GetByID(r.Context(), req.CustomerID)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		cust = c
	}

	var resp cartResponse
	err := h.carts.Do(terminalID(r), func(c *cart.Cart) error {
		if err := c.BindCustomer(req.CustomerID, req.Confirmed); err != nil {
			return err
		}
		resp = cartView(c)
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	// Allergies ride along so the till can warn before products are added.
	body := map[string]any{"cart": resp}
	if cust != nil {
		body["allergies"] = cust.Allergies
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	var resp cartResponse
	err := h.carts.Do(terminalID(r), func(c *cart.Cart) error {
		if err := c.AddLine(req.ProductID); err != nil {
			return err
		}
		resp = cartView(c)
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		BatchID   string `json:"batchId"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	var resp cartResponse
	err := h.carts.Do(terminalID(r), func(c *cart.Cart) error {
		if err := c.SetQuantity(req.ProductID, req.BatchID, req.Quantity); err != nil {
			return err
		}
		resp = cartView(c)
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		BatchID   string `json:"batchId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	var resp cartResponse
	err := h.carts.Do(terminalID(r), func(c *cart.Cart) error {
		if err := c.RemoveLine(req.ProductID, req.BatchID); err != nil {
			return err
		}
		resp = cartView(c)
		return nil
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type saleLineResponse struct {
	ProductID string         `json:"productId"`
	Name      string         `json:"name"`
	UnitPrice float64        `json:"unitPrice"`
	Quantity  int            `json:"quantity"`
	Draws     []drawResponse `json:"draws"`
}

type drawResponse struct {
	BatchID  string `json:"batchId"`
	Quantity int    `json:"quantity"`
}

type saleResponse struct {
	ID         string             `json:"id"`
	CustomerID string             `json:"customerId"`
	Lines      []saleLineResponse `json:"lines"`
	Subtotal   float64            `json:"subtotal"`
	Tax        float64            `json:"tax"`
	Total      float64            `json:"total"`
	CreatedAt  string             `json:"createdAt"`
}

func saleView(rec *sale.Record) saleResponse {
	lines := make([]saleLineResponse, len(rec.Lines))
	for i, line := range rec.Lines {
		draws := make([]drawResponse, len(line.Draws))
		for j, d := range line.Draws {
			draws[j] = drawResponse{BatchID: d.BatchID, Quantity: d.Quantity}
		}
		lines[i] = saleLineResponse{
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice.Round(2).InexactFloat64(),
			Quantity:  line.Quantity,
			Draws:     draws,
		}
	}
	return saleResponse{
		ID:         rec.ID,
		CustomerID: rec.CustomerID,
		Lines:      lines,
		Subtotal:   rec.Subtotal.InexactFloat64(),
		Tax:        rec.Tax.InexactFloat64(),
		Total:      rec.Total.InexactFloat64(),
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	}
}

// checkout settles the terminal's cart. On success the sale is persisted,
// the customer's visit history is updated, and a completion event is
// emitted; a domain failure emits a rejection event instead.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	term := terminalID(r)

	var rec *sale.Record
	err := h.carts.Do(term, func(c *cart.Cart) error {
		customerID := c.CustomerID()

		settled, err := c.Checkout()
		if err != nil {
			h.sink.SaleRejected(ctx, notify.SaleRejected{
				TerminalID: term,
				CustomerID: customerID,
				Err:        err,
			})
			return err
		}
		rec = settled
		return nil
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.sales.Create(ctx, rec); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.customers.RecordPurchase(ctx, rec.CustomerID, rec.CreatedAt); err != nil {
		// The sale already settled; a stale visit counter is not worth
		// failing the checkout over.
		zctx.From(ctx).Warn("recording purchase failed",
			zap.String("customer_id", rec.CustomerID),
			zap.Error(err),
		)
	}

	h.sink.SaleCompleted(ctx, notify.SaleCompleted{
		SaleID:     rec.ID,
		TerminalID: term,
		CustomerID: rec.CustomerID,
		Lines:      len(rec.Lines),
		Total:      rec.Total,
	})

	writeJSON(w, http.StatusCreated, map[string]any{"sale": saleView(rec)})
}
