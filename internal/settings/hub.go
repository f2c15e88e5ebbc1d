package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kodeit-calculator/internal/obs"
)

const (
	defaultClientBuffer = 16
	writeTimeout        = 5 * time.Second
)

// Hub fans settings change events out to websocket subscribers. A
// subscriber whose buffer fills up is disconnected.
type Hub struct {
	Logger         zerolog.Logger
	Metrics        *obs.DomainMetrics
	OriginPatterns []string
	Buffer         int

	mu      sync.Mutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.send) }) }

// Publish implements Notifier.
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		h.Logger.Error().Err(err).Msg("settings event encode failed")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.clients {
		select {
		case sub.send <- payload:
		default:
			delete(h.clients, sub)
			sub.close()
			h.Logger.Warn().Str("setting_id", evt.ID).Msg("settings stream subscriber dropped")
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) subscribe() *subscriber {
	size := h.Buffer
	if size <= 0 {
		size = defaultClientBuffer
	}
	sub := &subscriber{send: make(chan []byte, size)}
	h.mu.Lock()
	if h.clients == nil {
		h.clients = make(map[*subscriber]struct{})
	}
	h.clients[sub] = struct{}{}
	h.mu.Unlock()
	h.Metrics.StreamConnected(1)
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	delete(h.clients, sub)
	h.mu.Unlock()
	sub.close()
	h.Metrics.StreamConnected(-1)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		h.Logger.Debug().Err(err).Msg("settings stream upgrade failed")
		return
	}
	defer conn.CloseNow()

	sub := h.subscribe()
	defer h.unsubscribe(sub)

	// Clients only listen; CloseRead handles control frames and cancels ctx on disconnect.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.send:
			if !ok {
				_ = conn.Close(websocket.StatusPolicyViolation, "subscriber too slow")
				return
			}
			if err := write(ctx, conn, payload); err != nil {
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
