package evolution

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 7 * 24 * time.Hour

// Runner is anything that performs one evolution pass.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler runs the engine on a fixed interval until its context ends.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *zap.Logger
}

func NewScheduler(r Runner, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{runner: r, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled. Failed runs are logged and the next
// tick proceeds normally.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("evolution scheduler started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("evolution scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Info("scheduled evolution skipped, another run holds the lock")
			return
		}
		s.logger.Error("scheduled evolution failed", zap.Error(err))
	}
}
