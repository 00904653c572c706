// Package postgres provides PostgreSQL implementations of the store
// interfaces using database/sql over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/platform/logger"
	"github.com/lingoshop/lingoshop-api/internal/redact"
	"github.com/lingoshop/lingoshop-api/internal/store"
)

// taskColumns is the select list shared by all task queries.
const taskColumns = `id, shop, type, status, resource_type, resource_id,
	resource_title, field_type, progress, error_message, expires_at,
	completed_at, created_at, updated_at`

// TaskStore implements the store.TaskStore interface using PostgreSQL.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create persists a new task.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, shop, type, status, resource_type, resource_id,
			resource_title, field_type, progress, error_message, expires_at,
			completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Shop,
		task.Type,
		task.Status,
		task.ResourceType,
		task.ResourceID,
		nullString(task.ResourceTitle),
		nullString(task.FieldType),
		task.Progress,
		task.Error,
		task.ExpiresAt,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"task_type", task.Type,
			"error", err)
		return fmt.Errorf("failed to save task to database: %w", err)
	}

	return nil
}

// GetByID retrieves a task by its unique ID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// UpdateStatus moves a task to the given status. An empty errorMsg clears
// any stored error.
func (s *TaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errorMsg string) error {
	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	return s.exec(ctx, query, status, nullString(redact.TruncateN(errorMsg, domain.MaxErrorLength)), time.Now().UTC(), id)
}

// UpdateProgress records the task's progress percentage.
func (s *TaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, pct int) error {
	if pct < 0 || pct > 100 {
		return domain.ErrProgressOutOfRange
	}

	query := `
		UPDATE tasks
		SET progress = $1, updated_at = $2
		WHERE id = $3
	`

	return s.exec(ctx, query, pct, time.Now().UTC(), id)
}

// Complete marks a task completed with progress 100 and sets CompletedAt.
func (s *TaskStore) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET status = $1, progress = 100, error_message = NULL,
			completed_at = $2, updated_at = $2
		WHERE id = $3
	`

	return s.exec(ctx, query, domain.TaskStatusCompleted, now, id)
}

// Fail marks a task failed with a sanitized, truncated error message.
func (s *TaskStore) Fail(ctx context.Context, id uuid.UUID, errorMsg string) error {
	msg := redact.Truncate(redact.String(errorMsg))

	query := `
		UPDATE tasks
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	return s.exec(ctx, query, domain.TaskStatusFailed, msg, time.Now().UTC(), id)
}

// FindByStatus retrieves tasks in the given status, optionally only those
// whose UpdatedAt is older than the given duration.
func (s *TaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	var query string
	var args []any

	if olderThan > 0 {
		query = `SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `SELECT ` + taskColumns + `
			FROM tasks
			WHERE status = $1
			ORDER BY created_at ASC`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks by status",
			"status", status,
			"error", err)
		return nil, fmt.Errorf("failed to query tasks by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// FindActiveForResource retrieves any non-terminal task for the given
// resource tuple.
func (s *TaskStore) FindActiveForResource(ctx context.Context, shop, resourceType, resourceID, fieldType string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE shop = $1 AND resource_type = $2 AND resource_id = $3
			AND COALESCE(field_type, '') = $4
			AND status IN ($5, $6, $7)
		ORDER BY created_at ASC
		LIMIT 1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		shop, resourceType, resourceID, fieldType,
		domain.TaskStatusPending, domain.TaskStatusQueued, domain.TaskStatusRunning))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to query active task for resource: %w", err)
	}

	return task, nil
}

// exec runs a single-row update, treating a missing row as a no-op the way
// last-writer-wins semantics allow.
func (s *TaskStore) exec(ctx context.Context, query string, args ...any) error {
	log := logger.FromContext(ctx)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task", "error", err)
		return fmt.Errorf("failed to update task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		log.Warn("no task found with ID to update")
	}

	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps one row onto a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var resourceTitle, fieldType, errorMessage sql.NullString
	var completedAt sql.NullTime

	if err := row.Scan(
		&task.ID,
		&task.Shop,
		&task.Type,
		&task.Status,
		&task.ResourceType,
		&task.ResourceID,
		&resourceTitle,
		&fieldType,
		&task.Progress,
		&errorMessage,
		&task.ExpiresAt,
		&completedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.ResourceTitle = resourceTitle.String
	task.FieldType = fieldType.String
	if errorMessage.Valid {
		task.Error = &errorMessage.String
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}

	return &task, nil
}

// nullString converts an empty string to NULL for optional columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
