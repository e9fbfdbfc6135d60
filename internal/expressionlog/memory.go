package expressionlog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps logs in process memory. IDs are session_001, session_002, ...
type MemoryStore struct {
	mu      sync.RWMutex
	logs    map[string]*Log
	counter int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string]*Log)}
}

func (s *MemoryStore) Create(_ context.Context, startTime time.Time) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counter++
	l := &Log{
		ID:           fmt.Sprintf("session_%03d", s.counter),
		StartTime:    startTime,
		LastActivity: startTime,
		Status:       StatusActive,
	}
	s.logs[l.ID] = l
	return snapshot(l, 0), nil
}

func (s *MemoryStore) Append(_ context.Context, id string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return ErrNotFound
	}
	l.Entries = append(l.Entries, entry)
	l.LastActivity = entry.Timestamp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string, recent int) (*Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshot(l, recent), nil
}

func (s *MemoryStore) End(_ context.Context, id string, endTime time.Time) (*Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.logs[id]
	if !ok {
		return nil, ErrNotFound
	}
	l.Status = StatusEnded
	l.EndTime = &endTime
	return snapshot(l, 0), nil
}

func (s *MemoryStore) ExpireInactive(_ context.Context, before, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, l := range s.logs {
		if l.Status == StatusActive && l.LastActivity.Before(before) {
			l.Status = StatusTimeout
			end := now
			l.EndTime = &end
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired, nil
}

func (s *MemoryStore) Counts(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := Counts{Total: len(s.logs)}
	for _, l := range s.logs {
		if l.Status == StatusActive {
			c.Active++
		}
	}
	return c, nil
}

// snapshot copies l with only the last recent entries (none when recent <= 0).
func snapshot(l *Log, recent int) *Log {
	cp := *l
	cp.Total = len(l.Entries)
	cp.Entries = nil
	if recent > 0 && len(l.Entries) > 0 {
		start := max(0, len(l.Entries)-recent)
		cp.Entries = append([]Entry(nil), l.Entries[start:]...)
	}
	if l.EndTime != nil {
		end := *l.EndTime
		cp.EndTime = &end
	}
	return &cp
}
