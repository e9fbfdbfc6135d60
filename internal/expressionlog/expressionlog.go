// Package expressionlog records the expressions a client reports during a
// face detection session. Logs that stop receiving entries are timed out by a
// background sweeper.
package expressionlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Status is the lifecycle state of a log.
type Status string

const (
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
	StatusTimeout Status = "timeout"
)

var (
	// ErrNotFound is returned for unknown log ids.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidInput is returned when required fields are missing.
	ErrInvalidInput = errors.New("invalid input")
)

// Entry is one reported expression.
type Entry struct {
	Expression string          `json:"expression"`
	Confidence float64         `json:"confidence"`
	Timestamp  time.Time       `json:"timestamp"`
	Landmarks  json.RawMessage `json:"landmarks"`
}

// Log is a face detection session and its entries.
type Log struct {
	ID           string     `json:"sessionId"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	LastActivity time.Time  `json:"lastActivity"`
	Status       Status     `json:"status"`
	Entries      []Entry    `json:"expressions"`
	Total        int        `json:"totalExpressions"`
}

// Counts summarises the store for the status endpoint.
type Counts struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

// Store persists logs. Get returns at most recent entries (newest last) and
// always fills Total. Methods return ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, startTime time.Time) (*Log, error)
	Append(ctx context.Context, id string, entry Entry) error
	Get(ctx context.Context, id string, recent int) (*Log, error)
	End(ctx context.Context, id string, endTime time.Time) (*Log, error)
	ExpireInactive(ctx context.Context, before, now time.Time) ([]string, error)
	Counts(ctx context.Context) (Counts, error)
}
