package task

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoshop/lingoshop-api/internal/domain"
)

func newTestRunner(t *testing.T, mockStore *MockTaskStore) *Runner {
	t.Helper()
	runner := NewRunner(mockStore, RunnerConfig{
		WorkerCount:          1,
		QueueSize:            10,
		ProgressFlushPercent: 5,
	}, testLogger())
	t.Cleanup(runner.Stop)
	return runner
}

func submitTask(t *testing.T, runner *Runner, resourceID string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask("demo.myshop.io", domain.TaskTypeAIGeneration, "product", resourceID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, runner.Submit(context.Background(), task))
	return task
}

func waitForStatus(t *testing.T, mockStore *MockTaskStore, task *domain.Task, want domain.TaskStatus) *domain.Task {
	t.Helper()
	var got *domain.Task
	require.Eventually(t, func() bool {
		current, err := mockStore.GetByID(context.Background(), task.ID)
		if err != nil {
			return false
		}
		got = current
		return current.Status == want
	}, 3*time.Second, 10*time.Millisecond, "task never reached status %s", want)
	return got
}

func TestRunner_TaskLifecycle_Success(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)

	runner.RegisterHandler(domain.TaskTypeAIGeneration, HandlerFunc(
		func(ctx context.Context, task *domain.Task, progress ProgressFunc) error {
			if err := progress(50, "halfway"); err != nil {
				return err
			}
			return nil
		}))
	require.NoError(t, runner.Start())

	task := submitTask(t, runner, "gid://product/1")

	got := waitForStatus(t, mockStore, task, domain.TaskStatusCompleted)
	assert.Equal(t, 100, got.Progress)
	assert.Nil(t, got.Error)
	assert.NotNil(t, got.CompletedAt)
}

func TestRunner_TaskLifecycle_HandlerFailure(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)

	longMsg := strings.Repeat("x", 1500)
	runner.RegisterHandler(domain.TaskTypeAIGeneration, HandlerFunc(
		func(ctx context.Context, task *domain.Task, progress ProgressFunc) error {
			return errors.New("invalid input: " + longMsg)
		}))
	require.NoError(t, runner.Start())

	task := submitTask(t, runner, "gid://product/2")

	got := waitForStatus(t, mockStore, task, domain.TaskStatusFailed)
	require.NotNil(t, got.Error)
	assert.True(t, strings.HasPrefix(*got.Error, "invalid input: "))
	assert.LessOrEqual(t, len(*got.Error), domain.MaxErrorLength)
}

func TestRunner_Submit_RejectsDuplicateActiveTask(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)
	// No Start: the first task stays queued, so it is still active.

	first := submitTask(t, runner, "gid://product/3")

	duplicate, err := domain.NewTask(first.Shop, first.Type, first.ResourceType, first.ResourceID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	err = runner.Submit(context.Background(), duplicate)
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveTask)

	// A different resource on the same shop is unaffected.
	submitTask(t, runner, "gid://product/4")
}

func TestRunner_CooperativeCancellation(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)

	started := make(chan struct{})
	runner.RegisterHandler(domain.TaskTypeAIGeneration, HandlerFunc(
		func(ctx context.Context, task *domain.Task, progress ProgressFunc) error {
			close(started)
			for pct := 10; pct <= 90; pct += 10 {
				if err := progress(pct, "step"); err != nil {
					return err
				}
				time.Sleep(10 * time.Millisecond)
			}
			return nil
		}))
	require.NoError(t, runner.Start())

	task := submitTask(t, runner, "gid://product/5")

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("handler never started")
	}

	// Cancel the way the API does: flip the persisted status.
	require.NoError(t, mockStore.UpdateStatus(context.Background(), task.ID, domain.TaskStatusCancelled, ""))

	got := waitForStatus(t, mockStore, task, domain.TaskStatusCancelled)
	assert.Less(t, got.Progress, 100, "a cancelled task must not be completed")
}

func TestRunner_ExpiredTaskIsNeverExecuted(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)

	var executed atomic.Bool
	runner.RegisterHandler(domain.TaskTypeAIGeneration, HandlerFunc(
		func(ctx context.Context, task *domain.Task, progress ProgressFunc) error {
			executed.Store(true)
			return nil
		}))

	// Seed an already expired queued row, as if it sat out a long outage,
	// then start the runner so requeueing picks it up.
	now := time.Now().UTC()
	expired := storedTask(domain.TaskStatusQueued, now.Add(-2*time.Hour), now.Add(-time.Hour))
	mockStore.Put(expired)

	require.NoError(t, runner.Start())

	got := waitForStatus(t, mockStore, expired, domain.TaskStatusFailed)
	require.NotNil(t, got.Error)
	assert.Equal(t, ErrTaskExpiredBeforeRun.Error(), *got.Error)
	assert.False(t, executed.Load())
}

func TestRunner_NoHandlerRegistered(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)
	require.NoError(t, runner.Start())

	task := submitTask(t, runner, "gid://product/6")

	got := waitForStatus(t, mockStore, task, domain.TaskStatusFailed)
	require.NotNil(t, got.Error)
	assert.Equal(t, ErrNoHandler.Error(), *got.Error)
}

func TestRunner_StartRequeuesPersistedTasks(t *testing.T) {
	t.Parallel()

	mockStore := NewMockTaskStore()
	runner := newTestRunner(t, mockStore)

	processed := make(chan string, 2)
	runner.RegisterHandler(domain.TaskTypeTranslation, HandlerFunc(
		func(ctx context.Context, task *domain.Task, progress ProgressFunc) error {
			processed <- task.ResourceID
			return nil
		}))

	// Rows left queued by a previous process, e.g. after startup recovery.
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	one := storedTask(domain.TaskStatusQueued, now, future)
	two := storedTask(domain.TaskStatusQueued, now, future)
	mockStore.Put(one)
	mockStore.Put(two)

	require.NoError(t, runner.Start())

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-processed:
			seen[id] = true
		case <-time.After(3 * time.Second):
			t.Fatal("persisted tasks were not processed")
		}
	}
	assert.True(t, seen[one.ResourceID])
	assert.True(t, seen[two.ResourceID])
}
