package security

import (
	"mime"
	"net/http"

	"github.com/noah-isme/kodeit-calculator/internal/common"
)

// Upload content types that get the larger limit.
var uploadTypes = map[string]bool{
	"multipart/form-data":      true,
	"text/csv":                 true,
	"application/octet-stream": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// BodyLimit caps request payloads. File uploads are allowed UploadMax bytes,
// everything else Max. A zero limit disables the check for that class.
type BodyLimit struct {
	Max       int64
	UploadMax int64
}

// Limit returns the cap that applies to r.
func (b BodyLimit) Limit(r *http.Request) int64 {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && uploadTypes[mediaType] {
		return b.UploadMax
	}
	return b.Max
}

// Middleware rejects declared oversize bodies up front and wraps the rest in
// http.MaxBytesReader so handlers see *http.MaxBytesError past the cap.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := b.Limit(r)
		if limit <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > limit {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", map[string]any{"limit": limit})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
