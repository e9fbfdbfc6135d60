package expressionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-animator/internal/constants"
)

// Service validates requests against a Store and runs the inactivity sweeper.
type Service struct {
	store     Store
	logger    *zap.Logger
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewService creates a service. Call Start to run the sweeper.
func NewService(store Store, logger *zap.Logger, threshold, interval time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		logger:    logger,
		threshold: threshold,
		interval:  interval,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweeper goroutine. Later calls are ignored.
func (s *Service) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.sweepLoop()
}

// Stop ends the sweeper and waits for it. Safe to call more than once and
// without a prior Start.
func (s *Service) Stop() {
	if !s.started.Load() {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

func (s *Service) sweepLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Warn("expression log cleanup failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Sweep times out every active log idle for longer than the threshold.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.store.ExpireInactive(ctx, now.Add(-s.threshold), now)
	if err != nil {
		return 0, fmt.Errorf("expiring inactive logs: %w", err)
	}
	for _, id := range expired {
		s.logger.Info("expression log timed out", zap.String("session_id", id))
	}
	if len(expired) > 0 {
		s.logger.Info("expression log cleanup", zap.Int("timed_out", len(expired)))
	}
	return len(expired), nil
}

// Begin opens a new log.
func (s *Service) Begin(ctx context.Context) (*Log, error) {
	l, err := s.store.Create(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("creating expression log: %w", err)
	}
	s.logger.Info("expression log started", zap.String("session_id", l.ID))
	return l, nil
}

// Record appends an expression to the log.
func (s *Service) Record(ctx context.Context, id, expression string, confidence float64, landmarks json.RawMessage) (Entry, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(expression) == "" {
		return Entry{}, fmt.Errorf("%w: sessionId and expression are required", ErrInvalidInput)
	}

	if len(landmarks) == 0 || string(landmarks) == "null" {
		landmarks = nil
	}
	entry := Entry{
		Expression: expression,
		Confidence: confidence,
		Timestamp:  s.now(),
		Landmarks:  landmarks,
	}
	if err := s.store.Append(ctx, id, entry); err != nil {
		return Entry{}, fmt.Errorf("recording expression: %w", err)
	}

	s.logger.Debug("expression recorded",
		zap.String("session_id", id),
		zap.String("expression", expression),
		zap.Float64("confidence", confidence),
	)
	return entry, nil
}

// Summary returns the log with its most recent entries.
func (s *Service) Summary(ctx context.Context, id string) (*Log, error) {
	l, err := s.store.Get(ctx, id, constants.RecentEntriesLimit)
	if err != nil {
		return nil, fmt.Errorf("loading expression log: %w", err)
	}
	return l, nil
}

// Finish ends the log.
func (s *Service) Finish(ctx context.Context, id string) (*Log, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}
	l, err := s.store.End(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("ending expression log: %w", err)
	}
	s.logger.Info("expression log ended",
		zap.String("session_id", id),
		zap.Int("expressions", l.Total),
	)
	return l, nil
}

// Counts returns active and total log counts.
func (s *Service) Counts(ctx context.Context) (Counts, error) {
	c, err := s.store.Counts(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("counting expression logs: %w", err)
	}
	return c, nil
}
