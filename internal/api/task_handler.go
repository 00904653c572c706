package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lingoshop/lingoshop-api/internal/api/shared"
	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/events"
	"github.com/lingoshop/lingoshop-api/internal/store"
)

// TaskSubmitter accepts new tasks for background processing.
type TaskSubmitter interface {
	Submit(ctx context.Context, task *domain.Task) error
}

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Type          string `json:"type" validate:"required,oneof=aiGeneration translation sync"`
	ResourceType  string `json:"resource_type" validate:"required"`
	ResourceID    string `json:"resource_id" validate:"required"`
	ResourceTitle string `json:"resource_title,omitempty"`
	FieldType     string `json:"field_type,omitempty"`
}

// TaskResponse is the API representation of a task.
type TaskResponse struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Status        string     `json:"status"`
	ResourceType  string     `json:"resource_type"`
	ResourceID    string     `json:"resource_id"`
	ResourceTitle string     `json:"resource_title,omitempty"`
	FieldType     string     `json:"field_type,omitempty"`
	Progress      int        `json:"progress"`
	Error         *string    `json:"error,omitempty"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TaskHandler handles task-related API endpoints.
type TaskHandler struct {
	submitter TaskSubmitter
	taskStore store.TaskStore
	emitter   events.EventEmitter
	validator *validator.Validate
	logger    *slog.Logger
	expiry    time.Duration
}

// NewTaskHandler creates a new TaskHandler. expiry is how long submitted
// tasks stay eligible for execution.
func NewTaskHandler(
	submitter TaskSubmitter,
	taskStore store.TaskStore,
	emitter events.EventEmitter,
	expiry time.Duration,
	logger *slog.Logger,
) *TaskHandler {
	return &TaskHandler{
		submitter: submitter,
		taskStore: taskStore,
		emitter:   emitter,
		validator: validator.New(),
		logger:    logger.With("component", "task_handler"),
		expiry:    expiry,
	}
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(slog.String("trace_id", shared.GetTraceID(ctx)))

	shop, ok := shared.GetShop(ctx)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request parameters", err)
		return
	}

	task, err := domain.NewTask(shop, domain.TaskType(req.Type), req.ResourceType, req.ResourceID, time.Now().UTC().Add(h.expiry))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid task", err)
		return
	}
	task.ResourceTitle = req.ResourceTitle
	task.FieldType = req.FieldType

	if err := h.submitter.Submit(ctx, task); err != nil {
		if errors.Is(err, domain.ErrDuplicateActiveTask) {
			shared.RespondWithError(w, r, http.StatusConflict, "An active task already exists for this resource")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to create task", err)
		return
	}

	h.emitTaskRequested(ctx, task, log)

	log.Info("task created",
		"task_id", task.ID,
		"task_type", task.Type,
		"shop", shop)

	shared.RespondWithJSON(w, r, http.StatusAccepted, toTaskResponse(task))
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	shop, ok := shared.GetShop(ctx)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to retrieve task", err)
		return
	}

	// Tasks are shop-scoped; never leak another shop's task.
	if task.Shop != shop {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(task))
}

// CancelTask handles POST /api/tasks/{id}/cancel. Cancellation is
// cooperative: the status flips immediately and a running handler stops
// at its next progress report.
func (h *TaskHandler) CancelTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(slog.String("trace_id", shared.GetTraceID(ctx)))

	shop, ok := shared.GetShop(ctx)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid task ID")
		return
	}

	task, err := h.taskStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to retrieve task", err)
		return
	}
	if task.Shop != shop {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return
	}

	if task.IsTerminal() {
		shared.RespondWithError(w, r, http.StatusConflict, "Task already finished")
		return
	}

	if err := h.taskStore.UpdateStatus(ctx, task.ID, domain.TaskStatusCancelled, ""); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to cancel task", err)
		return
	}
	task.Status = domain.TaskStatusCancelled

	log.Info("task cancelled", "task_id", task.ID, "shop", shop)

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(task))
}

// emitTaskRequested notifies registered observers about the new task.
// Observer failures are logged, not surfaced; the task is already persisted.
func (h *TaskHandler) emitTaskRequested(ctx context.Context, task *domain.Task, log *slog.Logger) {
	if h.emitter == nil {
		return
	}

	event, err := events.NewTaskRequestEvent(task.Shop, string(task.Type), toTaskResponse(task))
	if err != nil {
		log.Error("failed to build task event", "error", err)
		return
	}

	if err := h.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("task event handler failed", "error", err, "task_id", task.ID)
	}
}

func toTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Status:        string(t.Status),
		ResourceType:  t.ResourceType,
		ResourceID:    t.ResourceID,
		ResourceTitle: t.ResourceTitle,
		FieldType:     t.FieldType,
		Progress:      t.Progress,
		Error:         t.Error,
		ExpiresAt:     t.ExpiresAt,
		CompletedAt:   t.CompletedAt,
		CreatedAt:     t.CreatedAt,
	}
}
