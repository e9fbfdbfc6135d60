// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// WebSocket gateway constants
const (
	// ClientSendBuffer is the number of outbound messages queued per connection
	// before new ones are dropped
	ClientSendBuffer = 64

	// MaxMessageSize is the largest inbound WebSocket message accepted (512 KiB)
	MaxMessageSize = 512 << 10

	// WriteWait is the time allowed to write a message to the peer
	WriteWait = 10 * time.Second

	// PongWait is the time allowed to read the next pong from the peer
	PongWait = 60 * time.Second

	// PingPeriod must be shorter than PongWait
	PingPeriod = (PongWait * 9) / 10
)

// Expression log constants
const (
	// RecentEntriesLimit is how many entries a log summary returns
	RecentEntriesLimit = 10
)
