// Package gateway terminates animation WebSocket connections. It decodes
// client events for the session manager and delivers animation updates back
// through one buffered writer per connection.
package gateway

import (
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-animator/internal/landmarks"
	"github.com/kozaktomas/face-animator/internal/session"
)

var (
	// ErrUnknownConnection is returned by Send for connections that are gone.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrSendQueueFull is returned by Send when the client is not keeping up.
	ErrSendQueueFull = errors.New("send queue full")
)

var _ session.Sender = (*Hub)(nil)

// Sessions is the connection lifecycle the hub drives. Implemented by
// session.Manager.
type Sessions interface {
	OnStart(connectionID, sessionID, imageID string) string
	OnFrame(connectionID string, frame *landmarks.Frame) int
	OnStop(connectionID string)
	OnDisconnect(connectionID string)
}

// Hub tracks live connections and implements session.Sender.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	clients  map[string]*client
	sessions Sessions
}

// NewHub creates a hub. checkOrigin may be nil to accept every origin.
func NewHub(logger *zap.Logger, checkOrigin func(origin string) bool) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		logger:  logger,
		clients: make(map[string]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			// Non-browser clients send no Origin
			if origin == "" || checkOrigin == nil {
				return true
			}
			return checkOrigin(origin)
		},
	}
	return h
}

// Attach sets the session handler. Must be called before serving.
func (h *Hub) Attach(s Sessions) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = s
}

// Send queues an animation update for a connection.
func (h *Hub) Send(connectionID string, update session.Update) error {
	h.mu.RLock()
	c, ok := h.clients[connectionID]
	h.mu.RUnlock()
	if !ok {
		return ErrUnknownConnection
	}
	return c.emit(eventAnimationUpdate, update)
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	sessions := h.sessions
	h.mu.RUnlock()
	if sessions == nil {
		http.Error(w, "gateway not ready", http.StatusServiceUnavailable)
		return
	}

	cdc, err := codecFor(r.URL.Query().Get("encoding"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(uuid.NewString(), conn, cdc, h, sessions)
	h.register(c)

	h.logger.Info("client connected",
		zap.String("connection_id", c.id),
		zap.String("remote_addr", r.RemoteAddr),
		zap.Int("connections", h.Count()),
	)

	go c.writePump()
	c.readPump()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
}
