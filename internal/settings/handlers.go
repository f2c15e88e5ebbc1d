package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kodeit-calculator/internal/common"
)

// Handler exposes the admin_settings endpoints.
type Handler struct {
	Service *Service
	Hub     *Hub
}

type createRequest struct {
	ID    string          `json:"id"`
	Type  string          `json:"setting_type"`
	Value json.RawMessage `json:"setting_value"`
}

type putRequest struct {
	Type  string          `json:"setting_type"`
	Value json.RawMessage `json:"setting_value"`
}

// ByType handles GET /api/admin_settings/type/{type}.
func (h *Handler) ByType(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	list, err := h.Service.ListByType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, list)
}

// Get handles GET /api/admin_settings/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	setting, err := h.Service.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, setting)
}

// Create handles POST /api/admin_settings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	var req createRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.Service.Create(r.Context(), Setting{ID: req.ID, Type: req.Type, Value: req.Value})
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, created)
}

// Put handles PUT /api/admin_settings/{id}.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	var req putRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	saved, err := h.Service.Put(r.Context(), chi.URLParam(r, "id"), req.Type, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, saved)
}

// Delete handles DELETE /api/admin_settings/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stream handles GET /api/admin_settings/stream.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.Hub == nil {
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "settings stream disabled", nil)
		return
	}
	h.Hub.ServeHTTP(w, r)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.WriteError(w, common.NotFound("setting not found"))
	case errors.Is(err, ErrConflict):
		common.WriteError(w, common.Conflict("setting already exists", err))
	case errors.Is(err, ErrStoreUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "settings store unavailable", nil)
	default:
		common.WriteError(w, err)
	}
}
