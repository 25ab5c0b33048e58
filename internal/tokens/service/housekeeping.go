package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/calderasec/keyturn/internal/tokens/store"
)

// HousekeepingService implements the retention policy around the lifecycle
// core. The core itself never deletes records (revoked rows are
// reuse-detection history); this worker prunes rows once they are past
// expiry by more than the retention window, plus old audit entries.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService builds the worker. Non-positive interval defaults
// to 1 hour; non-positive retention to 30 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval, "retention", s.Retention)
}

// Stop shuts the worker down, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep once on startup so a long-stopped instance catches up.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes rows past the retention cutoff. Failures are independent:
// one table failing doesn't stop the other.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	cutoff := time.Now().Add(-s.Retention).UTC()

	if n, err := s.Store.RefreshTokens().DeleteExpiredBefore(ctx, cutoff); err != nil {
		s.Logger.Error("housekeeping: delete expired refresh tokens", "error", err)
	} else if n > 0 {
		s.Logger.Info("housekeeping: deleted expired refresh tokens", "count", n)
	}

	if n, err := s.Store.AuditEvents().DeleteAuditEventsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("housekeeping: delete old audit events", "error", err)
	} else if n > 0 {
		s.Logger.Info("housekeeping: deleted old audit events", "count", n)
	}
}
