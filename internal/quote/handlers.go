package quote

import (
	"net/http"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/currency"
)

// Handler exposes the quote endpoints.
type Handler struct {
	Service *Service
}

// Create handles POST /api/quotes.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil || h.Service.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "quote service not configured", nil)
		return
	}
	var req Request
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.Service.Calculate(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// Currencies handles GET /api/quotes/currencies.
func (h *Handler) Currencies(w http.ResponseWriter, _ *http.Request) {
	common.Data(w, http.StatusOK, map[string]any{
		"base":  currency.Base,
		"codes": currency.Codes(),
		"rates": currency.Rates(),
	})
}
