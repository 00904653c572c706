package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoshop/lingoshop-api/internal/api/shared"
	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/task"
)

const testShop = "demo.myshop.io"

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakeSubmitter records submitted tasks and can be scripted to fail.
type fakeSubmitter struct {
	submitted []*domain.Task
	err       error
}

func (f *fakeSubmitter) Submit(ctx context.Context, t *domain.Task) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, t)
	return nil
}

// newTaskRouter wires the handler into a router with the shop already
// authenticated, the way the auth middleware would leave it.
func newTaskRouter(handler *TaskHandler, shop string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.SetTraceID(req.Context())
			if shop != "" {
				ctx = shared.WithShop(ctx, shop)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/tasks", handler.CreateTask)
	r.Get("/api/tasks/{id}", handler.GetTask)
	r.Post("/api/tasks/{id}/cancel", handler.CancelTask)
	return r
}

func newTestHandler(submitter TaskSubmitter, mockStore *task.MockTaskStore) *TaskHandler {
	return NewTaskHandler(submitter, mockStore, nil, 24*time.Hour, testLogger())
}

func TestTaskHandler_CreateTask(t *testing.T) {
	t.Parallel()

	t.Run("accepts valid request", func(t *testing.T) {
		t.Parallel()

		submitter := &fakeSubmitter{}
		router := newTaskRouter(newTestHandler(submitter, task.NewMockTaskStore()), testShop)

		body := `{"type":"translation","resource_type":"product","resource_id":"gid://product/1","resource_title":"Shirt","field_type":"description"}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "translation", resp.Type)
		assert.Equal(t, string(domain.TaskStatusQueued), resp.Status)
		assert.Equal(t, "gid://product/1", resp.ResourceID)
		assert.Equal(t, "description", resp.FieldType)

		require.Len(t, submitter.submitted, 1)
		assert.Equal(t, testShop, submitter.submitted[0].Shop)
		assert.Equal(t, "Shirt", submitter.submitted[0].ResourceTitle)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, task.NewMockTaskStore()), testShop)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects unknown task type", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, task.NewMockTaskStore()), testShop)

		body := `{"type":"mystery","resource_type":"product","resource_id":"gid://product/1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("duplicate active task maps to conflict", func(t *testing.T) {
		t.Parallel()

		submitter := &fakeSubmitter{err: fmt.Errorf("wrapped: %w", domain.ErrDuplicateActiveTask)}
		router := newTaskRouter(newTestHandler(submitter, task.NewMockTaskStore()), testShop)

		body := `{"type":"sync","resource_type":"shop","resource_id":"gid://shop/1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("submit failure maps to internal error", func(t *testing.T) {
		t.Parallel()

		submitter := &fakeSubmitter{err: errors.New("store unavailable")}
		router := newTaskRouter(newTestHandler(submitter, task.NewMockTaskStore()), testShop)

		body := `{"type":"sync","resource_type":"shop","resource_id":"gid://shop/1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "store unavailable", "internal details must not leak")
	})

	t.Run("unauthenticated request is rejected", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, task.NewMockTaskStore()), "")

		body := `{"type":"sync","resource_type":"shop","resource_id":"gid://shop/1"}`
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTaskHandler_GetTask(t *testing.T) {
	t.Parallel()

	newStoredTask := func(t *testing.T, shop string) (*task.MockTaskStore, *domain.Task) {
		t.Helper()
		mockStore := task.NewMockTaskStore()
		stored, err := domain.NewTask(shop, domain.TaskTypeTranslation, "product", "gid://product/1", time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		mockStore.Put(stored)
		return mockStore, stored
	}

	t.Run("returns own task", func(t *testing.T) {
		t.Parallel()

		mockStore, stored := newStoredTask(t, testShop)
		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, mockStore), testShop)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+stored.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, stored.ID.String(), resp.ID)
	})

	t.Run("another shop's task reads as not found", func(t *testing.T) {
		t.Parallel()

		mockStore, stored := newStoredTask(t, "other.myshop.io")
		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, mockStore), testShop)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+stored.ID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, task.NewMockTaskStore()), testShop)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/0198d3a2-aaaa-bbbb-cccc-d3b1c4e5f607", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id is a bad request", func(t *testing.T) {
		t.Parallel()

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, task.NewMockTaskStore()), testShop)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_CancelTask(t *testing.T) {
	t.Parallel()

	t.Run("cancels a queued task", func(t *testing.T) {
		t.Parallel()

		mockStore := task.NewMockTaskStore()
		stored, err := domain.NewTask(testShop, domain.TaskTypeSync, "shop", "gid://shop/1", time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		mockStore.Put(stored)

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, mockStore), testShop)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+stored.ID.String()+"/cancel", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		got, err := mockStore.GetByID(context.Background(), stored.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCancelled, got.Status)
	})

	t.Run("finished task cannot be cancelled", func(t *testing.T) {
		t.Parallel()

		mockStore := task.NewMockTaskStore()
		stored, err := domain.NewTask(testShop, domain.TaskTypeSync, "shop", "gid://shop/1", time.Now().UTC().Add(time.Hour))
		require.NoError(t, err)
		stored.Status = domain.TaskStatusCompleted
		mockStore.Put(stored)

		router := newTaskRouter(newTestHandler(&fakeSubmitter{}, mockStore), testShop)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+stored.ID.String()+"/cancel", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)

		got, err := mockStore.GetByID(context.Background(), stored.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, got.Status)
	})
}
