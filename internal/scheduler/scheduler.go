package scheduler

import (
	"context"
	"log/slog"
	"time"

	"aha_collector/internal/domain"
)

// Runner runs one full collection pass.
type Runner interface {
	Run(ctx context.Context) (*domain.RunStats, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger,
	}
}

// Start runs immediately, then once per interval until ctx is cancelled.
// Runs never overlap; a tick that fires during a run is dropped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "run_timeout", s.runTimeout)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	stats, err := s.runner.Run(runCtx)
	if err != nil {
		s.logger.Error("run failed", "error", err)
		return
	}
	if stats != nil {
		s.logger.Info("run finished", "duration", stats.Duration)
	}
}
