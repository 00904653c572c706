package task

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/syncer"
)

// SyncRunner executes a full synchronization run, emitting progress events
// to the given channel. It must not close the channel.
type SyncRunner interface {
	Run(ctx context.Context, shop string, events chan<- syncer.Event) syncer.Stats
}

// SyncTaskHandler executes sync tasks by driving a full synchronization run
// and folding its event stream into task progress updates.
type SyncTaskHandler struct {
	runner SyncRunner
	logger *slog.Logger
}

// NewSyncTaskHandler creates a SyncTaskHandler.
func NewSyncTaskHandler(runner SyncRunner, logger *slog.Logger) *SyncTaskHandler {
	return &SyncTaskHandler{
		runner: runner,
		logger: logger.With("component", "sync_task_handler"),
	}
}

// Execute runs one sync task. Cancellation observed through the progress
// callback cancels the underlying run; a run that finishes with failed
// phases is reported as a task failure listing those phases.
func (h *SyncTaskHandler) Execute(ctx context.Context, t *domain.Task, progress ProgressFunc) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan syncer.Event, 16)
	statsCh := make(chan syncer.Stats, 1)

	go func() {
		defer close(events)
		statsCh <- h.runner.Run(runCtx, t.Shop, events)
	}()

	var progressErr error
	for event := range events {
		if progressErr != nil {
			continue // drain so the run goroutine never blocks
		}
		if event.Type != syncer.EventTypeProgress {
			continue
		}
		if err := progress(syncProgressPct(event), event.Message); err != nil {
			progressErr = err
			cancel()
		}
	}

	stats := <-statsCh

	if progressErr != nil {
		return progressErr
	}
	if len(stats.Errors) > 0 {
		return fmt.Errorf("sync finished with %d failed phases: %s",
			len(stats.Errors), strings.Join(stats.Errors, "; "))
	}

	h.logger.Info("sync run completed",
		"shop", t.Shop,
		"products", stats.Products,
		"collections", stats.Collections,
		"articles", stats.Articles,
		"pages", stats.Pages,
		"policies", stats.Policies,
		"themes", stats.Themes)

	return progress(100, "sync complete")
}

// syncProgressPct maps a phase-local progress event to an overall task
// percentage. Each phase owns an equal slice of the 0-100 range, so the
// reported value never moves backwards as phases advance.
func syncProgressPct(event syncer.Event) int {
	span := 100 / len(syncer.AllPhases)

	idx := 0
	for i, phase := range syncer.AllPhases {
		if phase == event.Phase {
			idx = i
			break
		}
	}

	pct := idx * span
	if event.Total > 0 && event.Current <= event.Total {
		pct += span * event.Current / event.Total
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}
