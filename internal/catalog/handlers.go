package catalog

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/curriculum"
	"github.com/noah-isme/kodeit-calculator/internal/settings"
)

const (
	uploadField  = "file"
	maxFormMem   = 8 << 20
	xlsxMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Handler exposes the pricing and curriculum endpoints.
type Handler struct {
	Service *Service
}

// Pricing handles GET /api/pricing.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	cfg, err := h.Service.Pricing(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, cfg)
}

// SavePricing handles PUT /api/pricing.
func (h *Handler) SavePricing(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var doc json.RawMessage
	if err := common.DecodeJSON(r, &doc); err != nil {
		writeError(w, err)
		return
	}
	cfg, err := h.Service.SavePricing(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, cfg)
}

// Curriculum handles GET /api/curriculum.
func (h *Handler) Curriculum(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	levels, err := h.Service.Curriculum(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, levels)
}

// SaveCurriculum handles PUT /api/curriculum. Legacy shapes are accepted and
// normalized before they are stored.
func (h *Handler) SaveCurriculum(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var raw any
	if err := common.DecodeJSON(r, &raw); err != nil {
		writeError(w, err)
		return
	}
	if _, ok := raw.([]any); !ok {
		writeError(w, common.BadRequest("curriculum must be an array of levels", nil))
		return
	}
	levels, err := h.Service.SaveCurriculum(r.Context(), curriculum.Normalize(raw))
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, levels)
}

// Structure handles GET /api/curriculum/structure.
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	st, err := h.Service.Structure(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, st)
}

// SaveStructure handles PUT /api/curriculum/structure.
func (h *Handler) SaveStructure(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var st curriculum.Structure
	if err := common.DecodeJSON(r, &st); err != nil {
		writeError(w, err)
		return
	}
	saved, err := h.Service.SaveStructure(r.Context(), st)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, saved)
}

// AddBook handles POST /api/curriculum/levels/{levelID}/books.
func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var draft curriculum.BookDraft
	if err := common.DecodeJSON(r, &draft); err != nil {
		writeError(w, err)
		return
	}
	book, err := h.Service.AddBook(r.Context(), chi.URLParam(r, "levelID"), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, book)
}

// UpdateBook handles PATCH /api/curriculum/books/{bookID}.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	var patch curriculum.BookPatch
	if err := common.DecodeJSON(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	book, err := h.Service.UpdateBook(r.Context(), chi.URLParam(r, "bookID"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, book)
}

// DeleteBook handles DELETE /api/curriculum/books/{bookID}.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	if err := h.Service.DeleteBook(r.Context(), chi.URLParam(r, "bookID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearBooks handles DELETE /api/curriculum/books.
func (h *Handler) ClearBooks(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	if err := h.Service.ClearBooks(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import handles POST /api/curriculum/import. The file arrives either as a
// multipart "file" field or as the raw request body; the kind comes from the
// ?kind= query, the file extension or the content type, in that order.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	kind := r.URL.Query().Get("kind")
	var body io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxFormMem); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, common.NewAppError("PAYLOAD_TOO_LARGE", "upload too large", http.StatusRequestEntityTooLarge, err))
				return
			}
			writeError(w, common.BadRequest("invalid multipart upload", err))
			return
		}
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			writeError(w, common.Validation("missing required fields", map[string]any{"missing": []string{uploadField}}))
			return
		}
		defer file.Close()
		body = file
		if kind == "" {
			kind = kindFromName(header.Filename)
		}
	}
	if kind == "" {
		kind = kindFromContentType(r.Header.Get("Content-Type"))
	}
	result, err := h.Service.Import(r.Context(), kind, body)
	if err != nil {
		writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}

// SampleCSV handles GET /api/curriculum/import/sample.csv.
func (h *Handler) SampleCSV(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="curriculum_sample.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, curriculum.SampleCSV())
}

// SampleXLSX handles GET /api/curriculum/import/sample.xlsx.
func (h *Handler) SampleXLSX(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", xlsxMimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="curriculum_sample.xlsx"`)
	if err := curriculum.WriteSampleXLSX(w); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "could not build sample workbook", nil)
	}
}

func kindFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return KindXLSX
	case ".csv":
		return KindCSV
	}
	return ""
}

func kindFromContentType(ct string) string {
	switch {
	case strings.HasPrefix(ct, xlsxMimeType):
		return KindXLSX
	case strings.HasPrefix(ct, "text/csv"), strings.HasPrefix(ct, "text/plain"):
		return KindCSV
	}
	return ""
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settings.ErrStoreUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "settings store unavailable", nil)
	default:
		common.WriteError(w, err)
	}
}
