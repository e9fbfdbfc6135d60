// Package session binds transport connections to logical animation sessions
// and fans each processed frame out to every connection of the session.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-animator/internal/engine"
	"github.com/kozaktomas/face-animator/internal/landmarks"
)

// generatedSessionPrefix marks ids assigned by OnStart, keeping them apart
// from expression log ids.
const generatedSessionPrefix = "anim_"

// Update is the animation-update payload delivered for every processed frame.
type Update struct {
	SessionID  string                 `json:"sessionId" msgpack:"sessionId"`
	Transform  engine.RenderTransform `json:"transform" msgpack:"transform"`
	Expression engine.Expression      `json:"expression" msgpack:"expression"`
	Timestamp  int64                  `json:"timestamp" msgpack:"timestamp"`
	FrameID    uint64                 `json:"frameId" msgpack:"frameId"`
}

// Sender delivers updates to a connection. Implemented by the gateway.
type Sender interface {
	Send(connectionID string, update Update) error
}

// Binding is a connection's active session association.
type Binding struct {
	ConnectionID string    `json:"connectionId"`
	SessionID    string    `json:"sessionId"`
	ImageID      string    `json:"imageId,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
}

// Stats is a point-in-time count of bindings.
type Stats struct {
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
}

// Manager routes frames from a connection through the engine and to every
// connection bound to the same session. Safe for concurrent use.
type Manager struct {
	engine *engine.Engine
	sender Sender
	logger *zap.Logger

	mu       sync.RWMutex
	bindings map[string]Binding             // connectionID → binding
	members  map[string]map[string]struct{} // sessionID → connectionIDs
}

// NewManager creates a manager. A nil logger discards logs.
func NewManager(eng *engine.Engine, sender Sender, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		engine:   eng,
		sender:   sender,
		logger:   logger,
		bindings: make(map[string]Binding),
		members:  make(map[string]map[string]struct{}),
	}
}

// OnStart binds connectionID to sessionID, replacing any earlier binding.
// An empty sessionID gets a fresh one that no other connection holds.
// Returns the bound session id.
func (m *Manager) OnStart(connectionID, sessionID, imageID string) string {
	if sessionID == "" {
		sessionID = generatedSessionPrefix + uuid.NewString()
	}
	m.mu.Lock()
	m.unbindLocked(connectionID)
	m.bindings[connectionID] = Binding{
		ConnectionID: connectionID,
		SessionID:    sessionID,
		ImageID:      imageID,
		StartedAt:    time.Now(),
	}
	set, ok := m.members[sessionID]
	if !ok {
		set = make(map[string]struct{})
		m.members[sessionID] = set
	}
	set[connectionID] = struct{}{}
	viewers := len(set)
	m.mu.Unlock()

	m.logger.Info("animation started",
		zap.String("connection_id", connectionID),
		zap.String("session_id", sessionID),
		zap.String("image_id", imageID),
		zap.Int("connections", viewers),
	)
	return sessionID
}

// OnFrame runs the frame through the engine and delivers the update to the
// originating connection first, then to the other connections of its session.
// Frames from unbound connections are dropped. Returns the number of
// successful deliveries.
func (m *Manager) OnFrame(connectionID string, frame *landmarks.Frame) int {
	m.mu.RLock()
	binding, ok := m.bindings[connectionID]
	var recipients []string
	if ok {
		recipients = make([]string, 0, len(m.members[binding.SessionID]))
		recipients = append(recipients, connectionID)
		for id := range m.members[binding.SessionID] {
			if id != connectionID {
				recipients = append(recipients, id)
			}
		}
	}
	m.mu.RUnlock()

	if !ok {
		m.logger.Debug("frame from unbound connection dropped", zap.String("connection_id", connectionID))
		return 0
	}

	descriptor := m.engine.ComputeDescriptor(frame)
	update := Update{
		SessionID:  binding.SessionID,
		Transform:  m.engine.ComputeRenderTransform(descriptor),
		Expression: descriptor.Expression,
		Timestamp:  descriptor.Timestamp,
		FrameID:    descriptor.FrameID,
	}

	delivered := 0
	for _, id := range recipients {
		if err := m.sender.Send(id, update); err != nil {
			m.logger.Warn("delivering animation update",
				zap.String("connection_id", id),
				zap.String("session_id", binding.SessionID),
				zap.Uint64("frame_id", update.FrameID),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}

// OnStop removes the connection's binding. Unbound connections are a no-op.
func (m *Manager) OnStop(connectionID string) {
	if m.unbind(connectionID) {
		m.logger.Info("animation stopped", zap.String("connection_id", connectionID))
	}
}

// OnDisconnect removes the connection's binding. Unbound connections are a no-op.
func (m *Manager) OnDisconnect(connectionID string) {
	if m.unbind(connectionID) {
		m.logger.Info("connection closed during animation", zap.String("connection_id", connectionID))
	}
}

// Binding returns the connection's current binding.
func (m *Manager) Binding(connectionID string) (Binding, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bindings[connectionID]
	return b, ok
}

// Members returns the sorted connection ids bound to sessionID.
func (m *Manager) Members(sessionID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.members[sessionID]))
	for id := range m.members[sessionID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stats returns the number of bound connections and distinct sessions.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Connections: len(m.bindings), Sessions: len(m.members)}
}

func (m *Manager) unbind(connectionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unbindLocked(connectionID)
}

// unbindLocked drops the forward entry and the reverse index entry together.
func (m *Manager) unbindLocked(connectionID string) bool {
	b, ok := m.bindings[connectionID]
	if !ok {
		return false
	}
	delete(m.bindings, connectionID)
	if set, ok := m.members[b.SessionID]; ok {
		delete(set, connectionID)
		if len(set) == 0 {
			delete(m.members, b.SessionID)
		}
	}
	return true
}
