package task

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoshop/lingoshop-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// storedTask builds a task row in an arbitrary state, bypassing the state
// machine the way a crashed process would have left it.
func storedTask(status domain.TaskStatus, updatedAt, expiresAt time.Time) *domain.Task {
	return &domain.Task{
		ID:           uuid.New(),
		Shop:         "demo.myshop.io",
		Type:         domain.TaskTypeTranslation,
		Status:       status,
		ResourceType: "product",
		ResourceID:   uuid.NewString(),
		ExpiresAt:    expiresAt,
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	}
}

func TestRecoveryService_StuckRunningTasks(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)

	mockStore := NewMockTaskStore()
	stale := storedTask(domain.TaskStatusRunning, now.Add(-11*time.Minute), future)
	fresh := storedTask(domain.TaskStatusRunning, now.Add(-9*time.Minute), future)
	mockStore.Put(stale)
	mockStore.Put(fresh)

	service := NewRecoveryService(mockStore, 10*time.Minute, testLogger())

	stats, err := service.RecoverPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Recovered)

	got, err := mockStore.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, StuckTaskMessage, *got.Error)

	// A recently updated running task is presumed alive and left alone.
	got, err = mockStore.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, got.Status)
}

func TestRecoveryService_PendingTasks(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()

	mockStore := NewMockTaskStore()

	viable := storedTask(domain.TaskStatusPending, now.Add(-time.Hour), now.Add(time.Hour))
	errMsg := "previous attempt failed"
	viable.Error = &errMsg
	mockStore.Put(viable)

	expired := storedTask(domain.TaskStatusPending, now.Add(-48*time.Hour), now.Add(-time.Hour))
	mockStore.Put(expired)

	service := NewRecoveryService(mockStore, 10*time.Minute, testLogger())

	stats, err := service.RecoverPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Recovered)

	got, err := mockStore.GetByID(context.Background(), viable.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusQueued, got.Status)
	assert.Nil(t, got.Error, "requeueing must clear the stale error")

	// Expired pending tasks stay untouched for the retention cleanup.
	got, err = mockStore.GetByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
}

func TestRecoveryService_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	future := now.Add(24 * time.Hour)

	mockStore := NewMockTaskStore()
	mockStore.Put(storedTask(domain.TaskStatusRunning, now.Add(-time.Hour), future))
	mockStore.Put(storedTask(domain.TaskStatusPending, now.Add(-time.Hour), future))

	service := NewRecoveryService(mockStore, 10*time.Minute, testLogger())

	first, err := service.RecoverPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed)
	assert.Equal(t, 1, first.Recovered)

	// A second pass over the repaired state finds nothing to do.
	second, err := service.RecoverPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Failed)
	assert.Equal(t, 0, second.Recovered)
}

func TestRecoveryService_EmptyStore(t *testing.T) {
	t.Parallel()

	service := NewRecoveryService(NewMockTaskStore(), 10*time.Minute, testLogger())

	stats, err := service.RecoverPendingTasks(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Recovered)
}
