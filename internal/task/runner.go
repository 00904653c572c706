package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/metrics"
	"github.com/lingoshop/lingoshop-api/internal/store"
)

// RunnerConfig holds configuration for the task runner.
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks.
	// The default of 1 keeps the aggregate outbound call rate predictable.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue.
	QueueSize int

	// ProgressFlushPercent is the minimum progress delta between persisted
	// progress updates, bounding write volume from chatty handlers.
	ProgressFlushPercent int
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:          1,
		QueueSize:            100,
		ProgressFlushPercent: 5,
	}
}

// Runner drains queued tasks and drives them through the running state to a
// terminal state. It enforces at most one active task per
// (shop, resourceType, resourceID, fieldType) tuple.
type Runner struct {
	store      store.TaskStore
	queue      *Queue
	handlers   map[domain.TaskType]Handler
	config     RunnerConfig
	logger     *slog.Logger
	errHandler func(task *domain.Task, err error)

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	active map[string]struct{}
}

// NewRunner creates a new Runner.
func NewRunner(taskStore store.TaskStore, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Runner{
		store:      taskStore,
		queue:      NewQueue(config.QueueSize, logger),
		handlers:   make(map[domain.TaskType]Handler),
		config:     config,
		logger:     logger,
		ctx:        ctx,
		cancelFunc: cancel,
		active:     make(map[string]struct{}),
	}
	r.errHandler = func(task *domain.Task, err error) {
		logger.Error("task execution failed",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err)
	}
	return r
}

// RegisterHandler installs the handler for a task type. Must be called
// before Start.
func (r *Runner) RegisterHandler(taskType domain.TaskType, handler Handler) {
	r.handlers[taskType] = handler
}

// SetErrorHandler allows setting a custom error handler function.
func (r *Runner) SetErrorHandler(handler func(task *domain.Task, err error)) {
	r.errHandler = handler
}

// Submit persists a new task and adds it to the queue. It rejects the
// submission with domain.ErrDuplicateActiveTask if another non-terminal
// task already targets the same resource tuple.
func (r *Runner) Submit(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	existing, err := r.store.FindActiveForResource(ctx, task.Shop, task.ResourceType, task.ResourceID, task.FieldType)
	if err != nil && !errors.Is(err, store.ErrTaskNotFound) {
		return fmt.Errorf("failed to check for active task: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: task %s is %s", domain.ErrDuplicateActiveTask, existing.ID, existing.Status)
	}

	if err := r.store.Create(ctx, task); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	// pending tasks are an intake buffer; the caller promotes them to
	// queued later and recovery requeues them after a restart.
	if task.Status != domain.TaskStatusQueued {
		return nil
	}

	return r.queue.Enqueue(task)
}

// Start loads tasks that were already queued (including those just reset by
// startup recovery), then begins processing. Recovery must have run first.
func (r *Runner) Start() error {
	if err := r.requeuePersisted(); err != nil {
		return fmt.Errorf("failed to requeue persisted tasks: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	return nil
}

// Stop gracefully shuts down the runner: no new tasks are claimed and
// in-flight tasks are drained, not killed.
func (r *Runner) Stop() {
	r.cancelFunc()
	r.queue.Close()
	r.wg.Wait()
}

// requeuePersisted loads queued task rows into the in-memory queue.
func (r *Runner) requeuePersisted() error {
	ctx := context.Background()

	queued, err := r.store.FindByStatus(ctx, domain.TaskStatusQueued, 0)
	if err != nil {
		return fmt.Errorf("failed to load queued tasks: %w", err)
	}

	if len(queued) > 0 {
		r.logger.Info("requeueing persisted tasks", "count", len(queued))
	}

	for _, t := range queued {
		if err := r.queue.Enqueue(t); err != nil {
			r.logger.Error("failed to requeue task",
				"task_id", t.ID,
				"task_type", t.Type,
				"error", err)
		}
	}

	return nil
}

// worker processes tasks from the queue.
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case task, ok := <-r.queue.Channel():
			if !ok {
				r.logger.Debug("task channel closed, stopping worker", "worker_id", id)
				return
			}
			r.processTask(task, id)
		}
	}
}

// resourceKey identifies the exclusivity tuple for a task.
func resourceKey(t *domain.Task) string {
	return t.Shop + "|" + t.ResourceType + "|" + t.ResourceID + "|" + t.FieldType
}

// processTask handles execution of a single task.
func (r *Runner) processTask(task *domain.Task, workerID int) {
	ctx := context.Background()
	logger := r.logger.With(
		"task_id", task.ID,
		"task_type", task.Type,
		"worker_id", workerID,
	)

	// Expired tasks are never executed.
	if task.IsExpired(time.Now().UTC()) {
		logger.Warn("task expired before execution, failing")
		if err := r.store.Fail(ctx, task.ID, ErrTaskExpiredBeforeRun.Error()); err != nil {
			logger.Error("failed to mark expired task failed", "error", err)
		}
		metrics.IncTaskProcessed(string(task.Type), string(domain.TaskStatusFailed))
		return
	}

	key := resourceKey(task)
	r.mu.Lock()
	if _, busy := r.active[key]; busy {
		r.mu.Unlock()
		// Should not happen given the submission check; re-enqueueing
		// would busy-loop, so fail loudly instead.
		logger.Error("resource already has an active task, refusing to run twice")
		if err := r.store.Fail(ctx, task.ID, domain.ErrDuplicateActiveTask.Error()); err != nil {
			logger.Error("failed to mark duplicate task failed", "error", err)
		}
		return
	}
	r.active[key] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.active, key)
		r.mu.Unlock()
	}()

	handler, ok := r.handlers[task.Type]
	if !ok {
		logger.Error("no handler registered for task type")
		if err := r.store.Fail(ctx, task.ID, ErrNoHandler.Error()); err != nil {
			logger.Error("failed to mark task failed", "error", err)
		}
		metrics.IncTaskProcessed(string(task.Type), string(domain.TaskStatusFailed))
		return
	}

	if err := r.store.UpdateStatus(ctx, task.ID, domain.TaskStatusRunning, ""); err != nil {
		logger.Error("failed to update task status to running", "error", err)
		return
	}
	task.Status = domain.TaskStatusRunning

	logger.Info("processing task")

	err := handler.Execute(ctx, task, r.progressFunc(ctx, task, logger))

	switch {
	case err == nil:
		logger.Info("task completed successfully")
		if updateErr := r.store.Complete(ctx, task.ID); updateErr != nil {
			logger.Error("failed to update task status to completed", "error", updateErr)
		}
		metrics.IncTaskProcessed(string(task.Type), string(domain.TaskStatusCompleted))

	case errors.Is(err, ErrTaskCancelled):
		// Status was already set to cancelled by whoever requested it;
		// the handler just stopped advancing.
		logger.Info("task cancelled, stopped advancing")
		metrics.IncTaskProcessed(string(task.Type), string(domain.TaskStatusCancelled))

	default:
		logger.Error("task execution failed", "error", err)
		if updateErr := r.store.Fail(ctx, task.ID, err.Error()); updateErr != nil {
			logger.Error("failed to update task status to failed", "error", updateErr)
		}
		metrics.IncTaskProcessed(string(task.Type), string(domain.TaskStatusFailed))
		r.errHandler(task, err)
	}
}

// progressFunc builds the throttled progress callback handed to handlers.
// It persists progress only when it advances by at least
// ProgressFlushPercent (or reaches 100), and reports cancellation.
func (r *Runner) progressFunc(ctx context.Context, task *domain.Task, logger *slog.Logger) ProgressFunc {
	lastFlushed := task.Progress
	flushStep := r.config.ProgressFlushPercent

	return func(pct int, message string) error {
		current, err := r.store.GetByID(ctx, task.ID)
		if err != nil {
			logger.Error("failed to check task status for progress update", "error", err)
		} else if current.Status == domain.TaskStatusCancelled {
			return ErrTaskCancelled
		}

		if pct < 100 && pct-lastFlushed < flushStep {
			return nil
		}

		if err := r.store.UpdateProgress(ctx, task.ID, pct); err != nil {
			logger.Error("failed to persist progress", "error", err, "progress", pct)
			return nil
		}
		lastFlushed = pct

		if message != "" {
			logger.Debug("task progress", "progress", pct, "message", message)
		}
		return nil
	}
}
