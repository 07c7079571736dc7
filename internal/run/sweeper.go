package run

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner is the slice of Store the sweeper needs.
type Pruner interface {
	Prune(olderThan time.Time) (int64, error)
}

// Sweeper periodically deletes run records older than the retention window.
type Sweeper struct {
	cron      *cron.Cron
	store     Pruner
	retention time.Duration
	logger    *slog.Logger
}

// NewSweeper creates a sweeper. retention must be positive.
func NewSweeper(store Pruner, retention time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cron:      cron.New(),
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// Start schedules the sweep and blocks until the context is cancelled.
// The schedule is a standard cron expression or a predefined one like
// "@every 1h".
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("run sweeper: invalid schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("run sweeper started", "schedule", schedule, "retention", s.retention)

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("run sweeper stopped")
	return ctx.Err()
}

func (s *Sweeper) sweep() {
	cutoff := time.Now().Add(-s.retention)
	n, err := s.store.Prune(cutoff)
	if err != nil {
		s.logger.Error("run sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("run sweep pruned records", "count", n, "cutoff", cutoff)
	}
}
