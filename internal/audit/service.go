package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/kodeit-calculator/internal/common"
	"github.com/noah-isme/kodeit-calculator/internal/obs"
)

// Entry is one row of admin_audit_log.
type Entry struct {
	ID         int64           `json:"id"`
	ActorID    string          `json:"actor_id,omitempty"`
	ActorEmail string          `json:"actor_email,omitempty"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resource_id,omitempty"`
	Method     string          `json:"method"`
	Path       string          `json:"path"`
	Status     int             `json:"status"`
	IP         string          `json:"ip,omitempty"`
	UserAgent  string          `json:"user_agent,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Store persists and lists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, limit, offset int) ([]Entry, error)
}

// Record describes what an audited request did.
type Record struct {
	Action     string
	Resource   string
	ResourceID string
	Status     int
	Metadata   map[string]any
}

// Service persists audit entries for admin write actions.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
	// Sample returns a value in [0,1); defaults to math/rand.
	Sample func() float64
}

// Record persists an entry for req when auditing is enabled and the request
// falls inside the sampling rate.
func (s *Service) Record(ctx context.Context, req *http.Request, rec Record) error {
	if s == nil || !s.Enabled {
		return nil
	}
	if s.SamplingRate > 0 && s.SamplingRate < 1 && s.sample() >= s.SamplingRate {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if rc := chi.RouteContext(req.Context()); route == "" && rc != nil {
		route = rc.RoutePattern()
	}
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}

	entry := Entry{
		Action:     buildAction(rec.Action, req.Method, route),
		Resource:   buildResource(rec.Resource, route),
		ResourceID: strings.TrimSpace(rec.ResourceID),
		Method:     req.Method,
		Path:       req.URL.Path,
		Status:     rec.Status,
		IP:         common.ClientIP(req),
		UserAgent:  strings.TrimSpace(req.UserAgent()),
		RequestID:  requestID(req),
	}
	if entry.Status == 0 {
		entry.Status = http.StatusOK
	}
	if p, ok := common.CurrentPrincipal(ctx); ok {
		entry.ActorID = p.ID
		entry.ActorEmail = p.Email
	}
	if meta := metadata(rec.Metadata, req.URL.RawQuery); meta != nil {
		entry.Metadata = meta
	}
	return s.Store.Insert(ctx, entry)
}

// List returns the newest entries first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Entry, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("audit: store not configured")
	}
	return s.Store.List(ctx, limit, offset)
}

func (s *Service) sample() float64 {
	if s.Sample != nil {
		return s.Sample()
	}
	return rand.Float64()
}

func requestID(req *http.Request) string {
	if id := middleware.GetReqID(req.Context()); id != "" {
		return id
	}
	return strings.TrimSpace(req.Header.Get("X-Request-ID"))
}

func buildAction(action, method, route string) string {
	if trimmed := strings.TrimSpace(action); trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + route
}

// buildResource turns "/api/curriculum/books/{bookID}" into "curriculum.books".
func buildResource(resource, route string) string {
	if trimmed := strings.TrimSpace(resource); trimmed != "" {
		return trimmed
	}
	var parts []string
	for i, seg := range strings.Split(strings.Trim(route, "/ "), "/") {
		if seg == "" || strings.HasPrefix(seg, "{") || seg == "*" || (i == 0 && seg == "api") {
			continue
		}
		parts = append(parts, seg)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, ".")
}

func metadata(extra map[string]any, query string) json.RawMessage {
	payload := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		payload[k] = v
	}
	if q := strings.TrimSpace(query); q != "" {
		payload["query"] = q
	}
	if len(payload) == 0 {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}
