package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-animator/internal/expressionlog"
	"github.com/kozaktomas/face-animator/internal/session"
)

const serverName = "face-animator"

// SessionStats reports animation bindings. Implemented by session.Manager.
type SessionStats interface {
	Stats() session.Stats
}

// ConnectionCounter reports open sockets. Implemented by gateway.Hub.
type ConnectionCounter interface {
	Count() int
}

// StatusHandler serves the ping and status endpoints.
type StatusHandler struct {
	sessions    SessionStats
	connections ConnectionCounter
	logs        *expressionlog.Service
	started     time.Time
	now         func() time.Time
}

// NewStatusHandler creates a new status handler. Uptime counts from now.
func NewStatusHandler(sessions SessionStats, connections ConnectionCounter, logs *expressionlog.Service) *StatusHandler {
	return &StatusHandler{
		sessions:    sessions,
		connections: connections,
		logs:        logs,
		started:     time.Now(),
		now:         time.Now,
	}
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Status            string    `json:"status"`
	Server            string    `json:"server"`
	Connections       int       `json:"connections"`
	AnimatingClients  int       `json:"animatingClients"`
	AnimationSessions int       `json:"animationSessions"`
	ActiveSessions    int       `json:"activeSessions"`
	TotalSessions     int       `json:"totalSessions"`
	ServerUptime      int64     `json:"serverUptime"`
	Timestamp         time.Time `json:"timestamp"`
}

// Ping answers liveness probes with the number of stored expression logs.
func (h *StatusHandler) Ping(w http.ResponseWriter, r *http.Request) {
	counts, err := h.logs.Counts(r.Context())
	if err != nil {
		log.Printf("Failed to count expression logs: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":         "pong",
		"server":         serverName,
		"activeSessions": counts.Total,
		"time":           h.now().UTC(),
	})
}

// Status reports connection, animation and expression log counters.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	counts, err := h.logs.Counts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to count sessions")
		return
	}

	stats := h.sessions.Stats()
	now := h.now()
	respondJSON(w, http.StatusOK, StatusResponse{
		Status:            "running",
		Server:            serverName,
		Connections:       h.connections.Count(),
		AnimatingClients:  stats.Connections,
		AnimationSessions: stats.Sessions,
		ActiveSessions:    counts.Active,
		TotalSessions:     counts.Total,
		ServerUptime:      int64(now.Sub(h.started).Seconds()),
		Timestamp:         now.UTC(),
	})
}
