package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mirelle-labs/glowpos/internal/domain/customer"
	"github.com/mirelle-labs/glowpos/internal/domain/staff"
	"github.com/mirelle-labs/glowpos/internal/domain/supplier"
)

type customerRequest struct {
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	SkinType  string   `json:"skinType"`
	Allergies []string `json:"allergies"`
}

type customerResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Phone     string   `json:"phone"`
	Email     string   `json:"email"`
	SkinType  string   `json:"skinType"`
	Allergies []string `json:"allergies"`
	Purchases int      `json:"purchases"`
	LastVisit string   `json:"lastVisit,omitempty"`
}

func customerView(c customer.Customer) customerResponse {
	resp := customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		SkinType:  c.SkinType,
		Allergies: c.Allergies,
		Purchases: c.Purchases,
	}
	if resp.Allergies == nil {
		resp.Allergies = []string{}
	}
	if !c.LastVisit.IsZero() {
		resp.LastVisit = c.LastVisit.Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.customers.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]customerResponse, len(customers))
	for i, c := range customers {
		out[i] = customerView(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": out})
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": customerView(*c)})
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	c := customer.Customer{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		SkinType:  req.SkinType,
		Allergies: req.Allergies,
	}
	if err := c.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.customers.Create(r.Context(), c); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"customer": customerView(c)})
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	c := customer.Customer{
		ID:        r.PathValue("id"),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		SkinType:  req.SkinType,
		Allergies: req.Allergies,
	}
	if err := c.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.customers.Update(r.Context(), c); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	// Re-read so the response carries the untouched purchase history.
	updated, err := h.customers.GetByID(r.Context(), c.ID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer": customerView(*updated)})
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if err := h.customers.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type supplierRequest struct {
	Name             string `json:"name"`
	ContactPerson    string `json:"contactPerson"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	ProductsSupplied string `json:"productsSupplied"`
	Notes            string `json:"notes"`
	LastRestock      string `json:"lastRestock"`
}

type supplierResponse struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ContactPerson    string `json:"contactPerson"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Address          string `json:"address"`
	ProductsSupplied string `json:"productsSupplied"`
	Notes            string `json:"notes"`
	LastRestock      string `json:"lastRestock,omitempty"`
}

func supplierView(s supplier.Supplier) supplierResponse {
	resp := supplierResponse{
		ID:               s.ID,
		Name:             s.Name,
		ContactPerson:    s.ContactPerson,
		Email:            s.Email,
		Phone:            s.Phone,
		Address:          s.Address,
		ProductsSupplied: s.ProductsSupplied,
		Notes:            s.Notes,
	}
	if !s.LastRestock.IsZero() {
		resp.LastRestock = s.LastRestock.Format(dateLayout)
	}
	return resp
}

func supplierFromRequest(id string, req supplierRequest) (supplier.Supplier, error) {
	s := supplier.Supplier{
		ID:               id,
		Name:             req.Name,
		ContactPerson:    req.ContactPerson,
		Email:            req.Email,
		Phone:            req.Phone,
		Address:          req.Address,
		ProductsSupplied: req.ProductsSupplied,
		Notes:            req.Notes,
	}
	if req.LastRestock != "" {
		t, err := time.Parse(dateLayout, req.LastRestock)
		if err != nil {
			return supplier.Supplier{}, err
		}
		s.LastRestock = t
	}
	return s, nil
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.suppliers.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	out := make([]supplierResponse, len(suppliers))
	for i, s := range suppliers {
		out[i] = supplierView(s)
	}
	writeJSON(w, http.StatusOK, map[string]any{"suppliers": out})
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	s, err := h.suppliers.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"supplier": supplierView(*s)})
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	s, err := supplierFromRequest(uuid.NewString(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lastRestock must be formatted as YYYY-MM-DD"})
		return
	}
	if err := s.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.suppliers.Create(r.Context(), s); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"supplier": supplierView(s)})
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request body"})
		return
	}

	s, err := supplierFromRequest(r.PathValue("id"), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "lastRestock must be formatted as YYYY-MM-DD"})
		return
	}
	if err := s.Validate(); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if err := h.suppliers.Update(r.Context(), s); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"supplier": supplierView(s)})
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	if err := h.suppliers.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type staffResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Initials       string  `json:"initials"`
	Role           string  `json:"role"`
	MonthlySales   float64 `json:"monthlySales"`
	Commission     float64 `json:"commission"`
	TotalCustomers int     `json:"totalCustomers"`
	Performance    int     `json:"performance"`
	Band           string  `json:"band"`
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	members, err := h.staff.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	out := make([]staffResponse, len(members))
	for i, m := range members {
		out[i] = staffResponse{
			ID:             m.ID,
			Name:           m.Name,
			Initials:       m.Initials,
			Role:           m.Role,
			MonthlySales:   m.MonthlySales.Round(2).InexactFloat64(),
			Commission:     m.Commission.Round(2).InexactFloat64(),
			TotalCustomers: m.TotalCustomers,
			Performance:    m.Performance,
			Band:           string(staff.ClassifyPerformance(m.Performance)),
		}
	}
	summary := staff.Summarize(members)
	writeJSON(w, http.StatusOK, map[string]any{
		"staff": out,
		"summary": map[string]any{
			"totalSales":      summary.TotalSales.Round(2).InexactFloat64(),
			"totalCommission": summary.TotalCommission.Round(2).InexactFloat64(),
			"members":         summary.Members,
		},
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reports.Stats(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"customers":           stats.Customers,
		"todaySales":          stats.TodaySales.Round(2).InexactFloat64(),
		"todaySaleCount":      stats.TodaySaleCount,
		"lowStockProducts":    stats.LowStockProducts,
		"expiringSoonBatches": stats.ExpiringSoonBatches,
	})
}
