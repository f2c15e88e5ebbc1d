package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/admin_settings", func(s chi.Router) {
		s.Get("/stream", h.Stream)
		s.Get("/type/{type}", h.ByType)
		s.Get("/{id}", h.Get)
		s.Post("/", h.Create)
		s.Put("/{id}", h.Put)
		s.Delete("/{id}", h.Delete)
	})
	return r
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandlerLifecycle(t *testing.T) {
	router := newTestRouter(&Handler{Service: &Service{Store: NewMemoryStore()}})

	rec := doRequest(t, router, http.MethodPost, "/api/admin_settings/", `{"id":"pricing_config","setting_type":"pricing","setting_value":{"formats":{}}}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/admin_settings/", `{"id":"pricing_config","setting_type":"pricing","setting_value":{}}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/admin_settings/pricing_config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data Setting `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, TypePricing, body.Data.Type)
	require.JSONEq(t, `{"formats":{}}`, string(body.Data.Value))

	rec = doRequest(t, router, http.MethodPut, "/api/admin_settings/pricing_config", `{"setting_value":{"formats":{"digital":{}}}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/admin_settings/type/pricing", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data []Setting `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	require.JSONEq(t, `{"formats":{"digital":{}}}`, string(list.Data[0].Value))

	rec = doRequest(t, router, http.MethodDelete, "/api/admin_settings/pricing_config", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/api/admin_settings/pricing_config", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/admin_settings/pricing_config", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"NOT_FOUND"`)
}

func TestHandlerRejectsBadPayloads(t *testing.T) {
	router := newTestRouter(&Handler{Service: &Service{Store: NewMemoryStore()}})

	rec := doRequest(t, router, http.MethodPost, "/api/admin_settings/", `{"id":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/api/admin_settings/", `{"setting_value":{}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "VALIDATION_ERROR")

	rec = doRequest(t, router, http.MethodPut, "/api/admin_settings/unknown", `{"setting_value":{}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerNotConfigured(t *testing.T) {
	router := newTestRouter(&Handler{})
	rec := doRequest(t, router, http.MethodGet, "/api/admin_settings/type/pricing", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	rec = doRequest(t, router, http.MethodGet, "/api/admin_settings/stream", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamDeliversEvents(t *testing.T) {
	hub := &Hub{}
	svc := &Service{Store: NewMemoryStore(), Notifier: hub}
	srv := httptest.NewServer(newTestRouter(&Handler{Service: svc, Hub: hub}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/admin_settings/stream", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = svc.Upsert(ctx, Setting{ID: CurriculumID, Type: TypeCurriculum, Value: json.RawMessage(`[]`)})
	require.NoError(t, err)

	var evt Event
	require.NoError(t, wsjson.Read(ctx, conn, &evt))
	require.Equal(t, OpUpsert, evt.Op)
	require.Equal(t, CurriculumID, evt.ID)
	require.Equal(t, TypeCurriculum, evt.Type)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := &Hub{Buffer: 1}
	sub := hub.subscribe()

	hub.Publish(Event{Op: OpCreate, ID: "a"})
	hub.Publish(Event{Op: OpCreate, ID: "b"})
	require.Equal(t, 0, hub.Clients())

	_, ok := <-sub.send
	require.True(t, ok)
	_, ok = <-sub.send
	require.False(t, ok)

	hub.unsubscribe(sub)
}
