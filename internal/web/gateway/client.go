package gateway

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-animator/internal/constants"
	"github.com/kozaktomas/face-animator/internal/landmarks"
)

// Client events
const (
	eventStartAnimation = "start-animation"
	eventFaceLandmarks  = "face-landmarks"
	eventFrameUpdate    = "frame-update"
	eventStopAnimation  = "stop-animation"
)

// Server events
const (
	eventAnimationStarted = "animation-started"
	eventAnimationStopped = "animation-stopped"
	eventAnimationUpdate  = "animation-update"
	eventError            = "error"
)

type startRequest struct {
	SessionID string `json:"sessionId"`
	ImageID   string `json:"imageId"`
}

type frameRequest struct {
	Landmarks *landmarks.Frame `json:"landmarks"`
}

type startedResponse struct {
	SessionID string `json:"sessionId"`
	ImageID   string `json:"imageId"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type client struct {
	id       string
	conn     *websocket.Conn
	codec    codec
	hub      *Hub
	sessions Sessions
	logger   *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, cdc codec, hub *Hub, sessions Sessions) *client {
	return &client{
		id:       id,
		conn:     conn,
		codec:    cdc,
		hub:      hub,
		sessions: sessions,
		logger:   hub.logger.With(zap.String("connection_id", id)),
		send:     make(chan []byte, constants.ClientSendBuffer),
		done:     make(chan struct{}),
	}
}

// emit encodes an event and queues it without blocking. The send channel is
// never closed; done tells writers the client is gone.
func (c *client) emit(event string, data any) error {
	msg, err := c.codec.encode(event, data)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrUnknownConnection
	default:
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// readPump handles client events in arrival order until the connection fails.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.sessions.OnDisconnect(c.id)
		c.close()
		c.conn.Close()
		c.logger.Info("client disconnected")
	}()

	c.conn.SetReadLimit(constants.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(constants.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.PongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg []byte) {
	event, decode, err := c.codec.decode(msg)
	if err != nil {
		c.fail("invalid message: " + err.Error())
		return
	}

	switch event {
	case eventStartAnimation:
		var req startRequest
		if err := decode(&req); err != nil {
			c.fail("invalid start-animation payload")
			return
		}
		sessionID := c.sessions.OnStart(c.id, req.SessionID, req.ImageID)
		c.reply(eventAnimationStarted, startedResponse{SessionID: sessionID, ImageID: req.ImageID})

	case eventFaceLandmarks, eventFrameUpdate:
		var req frameRequest
		if err := decode(&req); err != nil {
			// The engine answers an absent frame with the neutral default
			c.logger.Debug("undecodable landmarks", zap.Error(err))
			req.Landmarks = nil
		}
		c.sessions.OnFrame(c.id, req.Landmarks)

	case eventStopAnimation:
		c.sessions.OnStop(c.id)
		c.reply(eventAnimationStopped, struct{}{})

	default:
		c.fail("unknown event: " + event)
	}
}

func (c *client) reply(event string, data any) {
	if err := c.emit(event, data); err != nil {
		c.logger.Warn("queueing reply", zap.String("event", event), zap.Error(err))
	}
}

func (c *client) fail(message string) {
	c.reply(eventError, errorResponse{Message: message})
}

// writePump is the only writer on the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(constants.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			if err := c.conn.WriteMessage(c.codec.messageType(), msg); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
