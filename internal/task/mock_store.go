package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/redact"
	"github.com/lingoshop/lingoshop-api/internal/store"
)

// MockTaskStore is an in-memory store.TaskStore for tests. Individual
// operations can be overridden through the *Fn fields.
type MockTaskStore struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.Task

	CreateFn         func(ctx context.Context, task *domain.Task) error
	UpdateStatusFn   func(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errorMsg string) error
	UpdateProgressFn func(ctx context.Context, id uuid.UUID, pct int) error
}

// NewMockTaskStore creates an empty MockTaskStore.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

// Put inserts or replaces a task directly, bypassing validation. Useful
// for arranging recovery scenarios.
func (s *MockTaskStore) Put(task *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
}

// Create persists a new task.
func (s *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, task)
	}
	s.Put(task)
	return nil
}

// GetByID retrieves a task by ID.
func (s *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// UpdateStatus moves a task to the given status.
func (s *MockTaskStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus, errorMsg string) error {
	if s.UpdateStatusFn != nil {
		return s.UpdateStatusFn(ctx, id, status, errorMsg)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil
	}
	task.Status = status
	if errorMsg == "" {
		task.Error = nil
	} else {
		msg := redact.Truncate(errorMsg)
		task.Error = &msg
	}
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProgress records the task's progress percentage.
func (s *MockTaskStore) UpdateProgress(ctx context.Context, id uuid.UUID, pct int) error {
	if s.UpdateProgressFn != nil {
		return s.UpdateProgressFn(ctx, id, pct)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[id]; ok {
		task.Progress = pct
		task.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// Complete marks a task completed with progress 100.
func (s *MockTaskStore) Complete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[id]; ok {
		now := time.Now().UTC()
		task.Status = domain.TaskStatusCompleted
		task.Progress = 100
		task.Error = nil
		task.CompletedAt = &now
		task.UpdatedAt = now
	}
	return nil
}

// Fail marks a task failed with a truncated error message.
func (s *MockTaskStore) Fail(ctx context.Context, id uuid.UUID, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task, ok := s.tasks[id]; ok {
		msg := redact.Truncate(errorMsg)
		task.Status = domain.TaskStatusFailed
		task.Error = &msg
		task.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// FindByStatus retrieves tasks in the given status, optionally only those
// whose UpdatedAt is older than the given duration.
func (s *MockTaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus, olderThan time.Duration) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)

	var out []*domain.Task
	for _, task := range s.tasks {
		if task.Status != status {
			continue
		}
		if olderThan > 0 && !task.UpdatedAt.Before(cutoff) {
			continue
		}
		copied := *task
		out = append(out, &copied)
	}
	return out, nil
}

// FindActiveForResource retrieves any non-terminal task for the resource tuple.
func (s *MockTaskStore) FindActiveForResource(ctx context.Context, shop, resourceType, resourceID, fieldType string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range s.tasks {
		if task.IsTerminal() {
			continue
		}
		if task.Shop == shop && task.ResourceType == resourceType &&
			task.ResourceID == resourceID && task.FieldType == fieldType {
			copied := *task
			return &copied, nil
		}
	}
	return nil, store.ErrTaskNotFound
}
