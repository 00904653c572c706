package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/metrics"
	"github.com/lingoshop/lingoshop-api/internal/store"
)

// DefaultStuckTaskTimeout is how long a running task may go without a
// progress write before startup recovery considers it dead. A running task
// untouched for this long almost certainly died with its owning process and
// cannot be resumed mid-step: its in-memory state (cursors, partial
// results) is gone.
const DefaultStuckTaskTimeout = 10 * time.Minute

// RecoveryStats reports what startup recovery did.
type RecoveryStats struct {
	// Recovered is the number of pending tasks reset to queued.
	Recovered int `json:"recovered"`

	// Failed is the number of stuck running tasks marked failed.
	Failed int `json:"failed"`
}

// RecoveryService restores task-state consistency at process startup.
// In-memory gateway and limiter state dies with the process, but persisted
// task rows do not; this reconciles the two. It runs exactly once, before
// the Runner begins accepting work, and is idempotent.
type RecoveryService struct {
	store        store.TaskStore
	logger       *slog.Logger
	stuckTimeout time.Duration

	// now is replaceable in tests
	now func() time.Time
}

// NewRecoveryService creates a RecoveryService. A non-positive
// stuckTimeout falls back to DefaultStuckTaskTimeout.
func NewRecoveryService(taskStore store.TaskStore, stuckTimeout time.Duration, logger *slog.Logger) *RecoveryService {
	if stuckTimeout <= 0 {
		stuckTimeout = DefaultStuckTaskTimeout
	}
	return &RecoveryService{
		store:        taskStore,
		logger:       logger.With("component", "task_recovery"),
		stuckTimeout: stuckTimeout,
		now:          time.Now,
	}
}

// RecoverPendingTasks repairs state left inconsistent by a prior crash:
//
//  1. Running tasks whose last update is older than the stuck timeout are
//     marked failed; they cannot be safely resumed mid-step.
//  2. Pending tasks that have not expired are reset to queued with their
//     error cleared; they carried no in-memory state and are safe to
//     requeue verbatim. Expired pending tasks are left untouched for the
//     retention cleanup to collect.
//
// Safe to run against a database with zero matching rows.
func (s *RecoveryService) RecoverPendingTasks(ctx context.Context) (RecoveryStats, error) {
	var stats RecoveryStats

	stuck, err := s.store.FindByStatus(ctx, domain.TaskStatusRunning, s.stuckTimeout)
	if err != nil {
		return stats, fmt.Errorf("failed to find stuck tasks: %w", err)
	}

	for _, t := range stuck {
		if err := s.store.Fail(ctx, t.ID, StuckTaskMessage); err != nil {
			s.logger.Error("failed to mark stuck task failed",
				"task_id", t.ID,
				"error", err)
			continue
		}
		s.logger.Warn("marked stuck task failed",
			"task_id", t.ID,
			"task_type", t.Type,
			"last_updated", t.UpdatedAt)
		metrics.IncTaskRecovered("failed")
		stats.Failed++
	}

	pending, err := s.store.FindByStatus(ctx, domain.TaskStatusPending, 0)
	if err != nil {
		return stats, fmt.Errorf("failed to find pending tasks: %w", err)
	}

	now := s.now().UTC()
	for _, t := range pending {
		if t.IsExpired(now) {
			// Expired tasks are never resurrected; the retention
			// cleanup removes them later.
			continue
		}
		if err := s.store.UpdateStatus(ctx, t.ID, domain.TaskStatusQueued, ""); err != nil {
			s.logger.Error("failed to requeue pending task",
				"task_id", t.ID,
				"error", err)
			continue
		}
		metrics.IncTaskRecovered("requeued")
		stats.Recovered++
	}

	s.logger.Info("task recovery completed",
		"recovered", stats.Recovered,
		"failed", stats.Failed)

	return stats, nil
}
