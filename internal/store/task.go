package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lingoshop/lingoshop-api/internal/domain"
)

// TaskStore defines the interface for persisting tasks.
// All writes are single-row, last-writer-wins; no cross-task
// transactions are required.
type TaskStore interface {
	// Create persists a new task.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if no task exists with the given ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// UpdateStatus moves a task to the given status, recording an optional
	// error message. An empty errorMsg clears any stored error.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errorMsg string) error

	// UpdateProgress records the task's progress percentage.
	UpdateProgress(ctx context.Context, id uuid.UUID, pct int) error

	// Complete marks a task completed with progress 100 and sets CompletedAt.
	Complete(ctx context.Context, id uuid.UUID) error

	// Fail marks a task failed with the given error message. The message is
	// truncated to domain.MaxErrorLength before persisting.
	Fail(ctx context.Context, id uuid.UUID, errorMsg string) error

	// FindByStatus retrieves tasks in the given status. If olderThan is
	// non-zero, only tasks whose UpdatedAt is older than that duration
	// are returned.
	FindByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error)

	// FindActiveForResource retrieves any non-terminal task for the given
	// (shop, resourceType, resourceID, fieldType) tuple. Used to enforce the
	// one-active-task-per-resource invariant at creation time.
	// Returns ErrTaskNotFound if no active task exists.
	FindActiveForResource(ctx context.Context, shop, resourceType, resourceID, fieldType string) (*domain.Task, error)
}
