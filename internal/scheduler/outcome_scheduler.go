package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/fightgenie/fightgenie/internal/outcomes"
)

// OutcomeScheduler periodically grades predictions for concluded events.
type OutcomeScheduler struct {
	sync          *outcomes.Service
	logger        *slog.Logger
	stopChan      chan struct{}
	checkInterval time.Duration
}

// NewOutcomeScheduler creates an outcome sync scheduler. A zero interval
// falls back to 30 minutes.
func NewOutcomeScheduler(sync *outcomes.Service, interval time.Duration, logger *slog.Logger) *OutcomeScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &OutcomeScheduler{
		sync:          sync,
		logger:        logger,
		stopChan:      make(chan struct{}),
		checkInterval: interval,
	}
}

// Start begins the scheduler loop
func (s *OutcomeScheduler) Start(ctx context.Context) {
	s.logger.Info("Starting outcome scheduler", "check_interval", s.checkInterval)
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run once immediately on start
	s.runSync(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSync(ctx)
		case <-s.stopChan:
			s.logger.Info("Outcome scheduler stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Outcome scheduler stopping due to context cancellation")
			return
		}
	}
}

// Stop stops the scheduler
func (s *OutcomeScheduler) Stop() {
	close(s.stopChan)
}

func (s *OutcomeScheduler) runSync(ctx context.Context) {
	result, err := s.sync.SyncCompletedEvents(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("Outcome sync failed", "error", err)
		return
	}

	if result.PredictionsGraded == 0 && result.Errors == 0 {
		s.logger.Debug("No predictions due for grading")
		return
	}

	s.logger.Info("Outcome sync completed",
		"events_processed", result.EventsProcessed,
		"predictions_graded", result.PredictionsGraded,
		"errors", result.Errors,
	)
}
