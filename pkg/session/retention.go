package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes sessions last updated before a cutoff.
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig configures scheduled session pruning.
type RetentionConfig struct {
	// Schedule is a standard cron expression (e.g. "0 3 * * *" for daily
	// at 3 AM). Empty disables the scheduler.
	Schedule string

	// MaxAge is how long an idle session is kept.
	MaxAge time.Duration
}

// RetentionScheduler prunes idle sessions on a cron schedule.
type RetentionScheduler struct {
	pruner  Pruner
	config  RetentionConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewRetentionScheduler creates a scheduler for the given pruner.
func NewRetentionScheduler(pruner Pruner, config RetentionConfig) *RetentionScheduler {
	return &RetentionScheduler{
		pruner: pruner,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "session.retention"),
	}
}

// Start begins scheduled pruning. A missing schedule is not an error; the
// scheduler simply stays idle. The scheduler stops when ctx is cancelled.
func (s *RetentionScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("retention schedule not configured, skipping scheduler")
		return nil
	}
	if s.config.MaxAge <= 0 {
		return fmt.Errorf("session: retention max age must be positive, got %s", s.config.MaxAge)
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("session: invalid retention schedule %q: %w", s.config.Schedule, err)
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, func() { s.runPruning(ctx) }); err != nil {
		return fmt.Errorf("session: schedule pruning: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("retention scheduler started",
		"schedule", s.config.Schedule,
		"max_age", s.config.MaxAge,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts the scheduler. Safe to call multiple times.
func (s *RetentionScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
	s.logger.Info("retention scheduler stopped")
}

func (s *RetentionScheduler) runPruning(ctx context.Context) {
	cutoff := time.Now().Add(-s.config.MaxAge)

	deleted, err := s.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Error("session pruning failed", "error", err)
		return
	}
	if deleted > 0 {
		s.logger.Info("pruned idle sessions", "deleted", deleted, "cutoff", cutoff)
	}
}
