package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// OddsPruner removes aged odds and analysis rows.
type OddsPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubscriptionExpirer flips overdue event subscriptions to expired.
type SubscriptionExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// MaintenanceScheduler runs the lazy cleanup sweeps: odds history pruning
// and subscription expiry. Neither is latency-sensitive, so one slow loop
// covers both.
type MaintenanceScheduler struct {
	odds          OddsPruner
	subscriptions SubscriptionExpirer
	retention     time.Duration
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
}

// NewMaintenanceScheduler creates a maintenance scheduler. retention bounds
// the age of odds snapshots kept for market analysis.
func NewMaintenanceScheduler(odds OddsPruner, subscriptions SubscriptionExpirer, retention time.Duration, logger *slog.Logger) *MaintenanceScheduler {
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	return &MaintenanceScheduler{
		odds:          odds,
		subscriptions: subscriptions,
		retention:     retention,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: 6 * time.Hour,
	}
}

// Start begins the scheduler loop
func (s *MaintenanceScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting maintenance scheduler",
		"check_interval", s.checkInterval,
		"odds_retention", s.retention)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			s.logger.Info("Maintenance scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Maintenance scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *MaintenanceScheduler) Stop() {
	close(s.stopChan)
}

func (s *MaintenanceScheduler) runSweep(ctx context.Context) {
	now := time.Now().UTC()

	pruned, err := s.odds.PruneOlderThan(ctx, now.Add(-s.retention))
	if err != nil {
		s.logger.Error("Odds prune failed", "error", err)
	} else if pruned > 0 {
		s.logger.Info("Pruned aged odds rows", "rows", pruned)
	}

	expired, err := s.subscriptions.ExpireOverdue(ctx, now)
	if err != nil {
		s.logger.Error("Subscription expiry sweep failed", "error", err)
	} else if expired > 0 {
		s.logger.Info("Expired overdue subscriptions", "count", expired)
	}
}
