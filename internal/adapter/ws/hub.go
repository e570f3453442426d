package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/neomorfeo/vendorhub/internal/domain"
)

const writeTimeout = 5 * time.Second

// Message is the frame written to subscribers.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Hub fans vendor events out to every connected admin dashboard.
type Hub struct {
	mu    sync.RWMutex
	conns map[*conn]struct{}
}

// conn wraps a websocket connection with a write mutex to serialize writes.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*conn]struct{})}
}

func (h *Hub) register(ws *websocket.Conn) *conn {
	c := &conn{ws: ws}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; ok {
		delete(h.conns, c)
		c.ws.Close()
	}
	h.mu.Unlock()
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast writes the event to every subscriber. Connections that fail to
// accept the write are dropped.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	msg := Message{Event: event, Data: payload}
	for _, c := range targets {
		c.mu.Lock()
		err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err == nil {
			err = c.ws.WriteJSON(msg)
		}
		c.mu.Unlock()
		if err != nil {
			slog.Warn("ws write failed, dropping subscriber", "event", event, "error", err)
			h.unregister(c)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		c.ws.Close()
		delete(h.conns, c)
	}
}

// Handler upgrades authenticated requests and subscribes them to the hub.
// Browsers cannot set headers on websocket handshakes, so the bearer token
// is read from the "token" query parameter.
func (h *Hub) Handler(verifier domain.TokenVerifier, origins []string) http.Handler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     allowOrigins(origins),
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := verifier.Verify(r.Context(), r.URL.Query().Get("token"))
		if err == nil {
			err = actor.Authorize()
		}
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, domain.ErrForbidden) {
				status = http.StatusForbidden
			}
			http.Error(w, err.Error(), status)
			return
		}

		wsConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.WarnContext(r.Context(), "ws upgrade failed", "error", err)
			return
		}

		c := h.register(wsConn)
		slog.InfoContext(r.Context(), "ws subscriber connected", "admin", actor.ID)

		// Drain reads so close frames and pings are processed.
		for {
			if _, _, err := wsConn.ReadMessage(); err != nil {
				break
			}
		}
		h.unregister(c)
		slog.InfoContext(r.Context(), "ws subscriber disconnected", "admin", actor.ID)
	})
}

// allowOrigins accepts same-origin handshakes and any listed origin.
// An empty list accepts everything.
func allowOrigins(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
