package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a background task
type TaskStatus string

// Possible task status values. Tasks only move forward:
// pending -> queued -> running -> {completed | failed | cancelled}.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// TaskType identifies which handler executes a task
type TaskType string

// Supported task types
const (
	TaskTypeAIGeneration TaskType = "aiGeneration"
	TaskTypeTranslation  TaskType = "translation"
	TaskTypeSync         TaskType = "sync"
)

// MaxErrorLength bounds the persisted error message so verbose stack
// traces never grow task rows without limit.
const MaxErrorLength = 1000

// Common validation errors for Task
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrEmptyTaskShop       = errors.New("task shop cannot be empty")
	ErrInvalidTaskType     = errors.New("invalid task type")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInvalidTransition   = errors.New("invalid task status transition")
	ErrProgressOutOfRange  = errors.New("task progress must be between 0 and 100")
	ErrProgressWentBack    = errors.New("task progress cannot decrease while running")
	ErrTaskExpired         = errors.New("task has expired")
	ErrDuplicateActiveTask = errors.New("an active task already exists for this resource")
)

// Task represents one unit of asynchronous, resumable work owned by a shop.
// It targets a single resource (optionally a single field of it) and tracks
// coarse progress so a UI can poll or stream its state.
type Task struct {
	ID            uuid.UUID  `json:"id"`
	Shop          string     `json:"shop"`
	Type          TaskType   `json:"type"`
	Status        TaskStatus `json:"status"`
	ResourceType  string     `json:"resource_type"`
	ResourceID    string     `json:"resource_id"`
	ResourceTitle string     `json:"resource_title,omitempty"`
	FieldType     string     `json:"field_type,omitempty"`
	Progress      int        `json:"progress"`
	Error         *string    `json:"error,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewTask creates a new Task in the queued state with a generated ID and
// the given expiry deadline. Returns an error if validation fails.
func NewTask(shop string, taskType TaskType, resourceType, resourceID string, expiresAt time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:           uuid.New(),
		Shop:         shop,
		Type:         taskType,
		Status:       TaskStatusQueued,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.Shop == "" {
		return ErrEmptyTaskShop
	}

	if !isValidTaskType(t.Type) {
		return ErrInvalidTaskType
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.Progress < 0 || t.Progress > 100 {
		return ErrProgressOutOfRange
	}

	return nil
}

// IsTerminal reports whether the task has reached a final state.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsExpired reports whether the task's execution deadline has passed.
func (t *Task) IsExpired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// CanTransitionTo reports whether moving to the given status is a legal
// forward transition. Terminal states are never re-entered.
func (t *Task) CanTransitionTo(status TaskStatus) bool {
	if !isValidTaskStatus(status) {
		return false
	}

	switch t.Status {
	case TaskStatusPending:
		return status == TaskStatusQueued || status == TaskStatusFailed || status == TaskStatusCancelled
	case TaskStatusQueued:
		return status == TaskStatusRunning || status == TaskStatusFailed || status == TaskStatusCancelled
	case TaskStatusRunning:
		return status == TaskStatusCompleted || status == TaskStatusFailed || status == TaskStatusCancelled
	default:
		return false
	}
}

// UpdateStatus moves the task to the given status, enforcing the forward-only
// state machine, and touches the UpdatedAt timestamp.
func (t *Task) UpdateStatus(status TaskStatus) error {
	if !t.CanTransitionTo(status) {
		return ErrInvalidTransition
	}

	t.Status = status
	now := time.Now().UTC()
	if status == TaskStatusCompleted {
		t.CompletedAt = &now
	}
	t.UpdatedAt = now
	return nil
}

// UpdateProgress sets the task's progress percentage. Progress is
// non-decreasing while the task is running.
func (t *Task) UpdateProgress(pct int) error {
	if pct < 0 || pct > 100 {
		return ErrProgressOutOfRange
	}

	if t.Status == TaskStatusRunning && pct < t.Progress {
		return ErrProgressWentBack
	}

	t.Progress = pct
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidTaskStatus checks if the given status is a valid TaskStatus.
func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusQueued, TaskStatusRunning,
		TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// isValidTaskType checks if the given type is a supported TaskType.
func isValidTaskType(taskType TaskType) bool {
	switch taskType {
	case TaskTypeAIGeneration, TaskTypeTranslation, TaskTypeSync:
		return true
	default:
		return false
	}
}
