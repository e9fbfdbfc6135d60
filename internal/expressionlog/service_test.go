package expressionlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"
)

// fakeClock returns a controllable time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func newTestService() (*Service, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(NewMemoryStore(), nil, 30*time.Minute, time.Hour)
	svc.now = clock.now
	return svc, clock
}

func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService()

	l, err := svc.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if l.ID != "session_001" {
		t.Errorf("expected session_001, got %s", l.ID)
	}
	if l.Status != StatusActive {
		t.Errorf("expected active, got %s", l.Status)
	}

	for i := range 12 {
		clock.t = clock.t.Add(time.Second)
		if _, err := svc.Record(ctx, l.ID, fmt.Sprintf("expr-%d", i), 90, nil); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	summary, err := svc.Summary(ctx, l.ID)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Total != 12 {
		t.Errorf("expected 12 total, got %d", summary.Total)
	}
	if len(summary.Entries) != 10 {
		t.Fatalf("expected last 10 entries, got %d", len(summary.Entries))
	}
	if summary.Entries[0].Expression != "expr-2" || summary.Entries[9].Expression != "expr-11" {
		t.Errorf("unexpected entry window %s..%s", summary.Entries[0].Expression, summary.Entries[9].Expression)
	}
	if !summary.LastActivity.Equal(clock.t) {
		t.Errorf("expected last activity %v, got %v", clock.t, summary.LastActivity)
	}

	clock.t = clock.t.Add(time.Minute)
	ended, err := svc.Finish(ctx, l.ID)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if ended.Status != StatusEnded || ended.EndTime == nil || !ended.EndTime.Equal(clock.t) {
		t.Errorf("unexpected ended log %+v", ended)
	}
	if ended.Total != 12 {
		t.Errorf("expected 12 total on end, got %d", ended.Total)
	}
}

func TestService_RecordValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	if _, err := svc.Record(ctx, "", "happy", 1, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing id, got %v", err)
	}
	if _, err := svc.Record(ctx, "session_001", " ", 1, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing expression, got %v", err)
	}
	if _, err := svc.Record(ctx, "session_404", "happy", 1, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestService_RecordKeepsLandmarks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	l, _ := svc.Begin(ctx)

	raw := json.RawMessage(`[{"x":0.5,"y":0.4,"z":0}]`)
	if _, err := svc.Record(ctx, l.ID, "happy", 0.8, raw); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if _, err := svc.Record(ctx, l.ID, "neutral", 0.5, json.RawMessage("null")); err != nil {
		t.Fatalf("Record: %v", err)
	}

	summary, _ := svc.Summary(ctx, l.ID)
	if string(summary.Entries[0].Landmarks) != string(raw) {
		t.Errorf("expected landmarks preserved, got %s", summary.Entries[0].Landmarks)
	}
	if summary.Entries[1].Landmarks != nil {
		t.Errorf("expected null landmarks to be dropped, got %s", summary.Entries[1].Landmarks)
	}
}

func TestService_UnknownLog(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	if _, err := svc.Summary(ctx, "session_999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Summary, got %v", err)
	}
	if _, err := svc.Finish(ctx, "session_999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Finish, got %v", err)
	}
	if _, err := svc.Finish(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty id, got %v", err)
	}
}

func TestService_Sweep(t *testing.T) {
	ctx := context.Background()
	svc, clock := newTestService()

	idle, _ := svc.Begin(ctx)
	busy, _ := svc.Begin(ctx)
	ended, _ := svc.Begin(ctx)
	if _, err := svc.Finish(ctx, ended.ID); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	clock.t = clock.t.Add(25 * time.Minute)
	if _, err := svc.Record(ctx, busy.ID, "talking", 0.7, nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	clock.t = clock.t.Add(10 * time.Minute)

	n, err := svc.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 timed out log, got %d", n)
	}

	l, _ := svc.Summary(ctx, idle.ID)
	if l.Status != StatusTimeout || l.EndTime == nil {
		t.Errorf("expected idle log to time out, got %+v", l)
	}
	l, _ = svc.Summary(ctx, busy.ID)
	if l.Status != StatusActive {
		t.Errorf("expected busy log to stay active, got %s", l.Status)
	}
	l, _ = svc.Summary(ctx, ended.ID)
	if l.Status != StatusEnded {
		t.Errorf("expected ended log to stay ended, got %s", l.Status)
	}

	counts, err := svc.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts != (Counts{Active: 1, Total: 3}) {
		t.Errorf("unexpected counts %+v", counts)
	}
}

func TestService_StartStop(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, time.Minute, time.Millisecond)
	svc.Start()

	done := make(chan struct{})
	go func() {
		svc.Stop()
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
