package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/kodeit-calculator/internal/obs"
)

// HTTPRecorder records write requests after they have been handled.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig customises how the audit entry is produced for a route group.
type HTTPConfig struct {
	Resource        string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware returns a chi middleware recording every non-safe request. It
// must run inside the auth middleware to see the acting admin.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled || safeMethod(req.Method) {
				next.ServeHTTP(w, req)
				return
			}

			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)

			rec := Record{
				Resource:   cfg.Resource,
				ResourceID: resourceID(req, cfg.ResourceIDParam),
				Status:     recorder.Status(),
			}
			if cfg.MetadataFunc != nil {
				rec.Metadata = cfg.MetadataFunc(req, recorder.Status())
			}
			if err := r.Service.Record(req.Context(), req, rec); err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func safeMethod(m string) bool {
	switch m {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// resourceID reads param, or the last URL parameter chi matched.
func resourceID(req *http.Request, param string) string {
	if param != "" {
		return chi.URLParam(req, param)
	}
	rc := chi.RouteContext(req.Context())
	if rc == nil || len(rc.URLParams.Values) == 0 {
		return ""
	}
	return rc.URLParams.Values[len(rc.URLParams.Values)-1]
}
