package task

import (
	"context"
	"errors"

	"github.com/lingoshop/lingoshop-api/internal/domain"
)

// StuckTaskMessage is persisted on tasks that were found still running
// after a restart with no recent progress.
const StuckTaskMessage = "Task was stuck in running state after server restart"

// Common errors returned by the task package
var (
	// ErrTaskCancelled is returned by a progress callback when the task has
	// been cancelled; handlers must stop advancing and return it.
	ErrTaskCancelled = errors.New("task cancelled")

	// ErrNoHandler is returned when no handler is registered for a task type.
	ErrNoHandler = errors.New("no handler registered for task type")

	// ErrTaskExpiredBeforeRun is recorded on tasks claimed after their
	// execution deadline passed.
	ErrTaskExpiredBeforeRun = errors.New("task expired before execution")
)

// ProgressFunc reports coarse progress from a handler back to the runner.
// It persists the update (throttled to bound write volume) and returns
// ErrTaskCancelled if the task was cancelled, so handlers observe
// cancellation between steps without polling the store themselves.
type ProgressFunc func(pct int, message string) error

// Handler executes the type-specific work of a task. Handlers call the
// progress callback between coarse-grained steps, both to surface progress
// and to observe cooperative cancellation.
type Handler interface {
	Execute(ctx context.Context, task *domain.Task, progress ProgressFunc) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *domain.Task, progress ProgressFunc) error

// Execute runs the function.
func (f HandlerFunc) Execute(ctx context.Context, task *domain.Task, progress ProgressFunc) error {
	return f(ctx, task, progress)
}
