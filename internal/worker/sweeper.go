package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/nexusdata/nexusdata/internal/platform/metrics"
	"github.com/nexusdata/nexusdata/internal/store"
)

// Sweeper deletes task records older than a retention window. It is the
// disposal path for records whose callback delivery failed and for
// completed tasks nobody polled.
type Sweeper struct {
	store    store.TaskStore
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper purging records older than maxAge every
// interval.
func NewSweeper(taskStore store.TaskStore, maxAge, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    taskStore,
		maxAge:   maxAge,
		interval: interval,
		logger:   logger,
	}
}

// Run sweeps on a fixed ticker until ctx is cancelled. The first sweep
// happens one full interval after start.
func (s *Sweeper) Run(ctx context.Context) {
	s.logger.Info("retention sweeper started", "max_age", s.maxAge, "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("retention sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		metrics.RecordsPurged(deleted)
		s.logger.Info("retention sweep purged records", "deleted", deleted, "cutoff", cutoff)
	}
}
