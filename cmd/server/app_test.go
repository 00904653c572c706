package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/gateway"
	"github.com/lingoshop/lingoshop-api/internal/task"
)

// stubExecutor answers every GraphQL call with an empty payload.
type stubExecutor struct{}

func (stubExecutor) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

// Shutdown must drain in-flight tasks before the gateway closes; a task
// caught mid-run still gets its storefront calls through and finishes
// completed rather than failed.
func TestCleanup_DrainsInFlightTasksBeforeClosingGateway(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	gw := gateway.New(stubExecutor{}, config.GatewayConfig{
		MaxRequestsPerSecond: 1000,
		MaxRetries:           1,
		RetryDelayMillis:     1,
	}, logger)

	mockStore := task.NewMockTaskStore()
	runner := task.NewRunner(mockStore, task.DefaultRunnerConfig(), logger)

	started := make(chan struct{})
	runner.RegisterHandler(domain.TaskTypeSync, task.HandlerFunc(
		func(ctx context.Context, tk *domain.Task, progress task.ProgressFunc) error {
			close(started)
			// Keep the task in flight while cleanup runs.
			time.Sleep(50 * time.Millisecond)
			if _, err := gw.GraphQL(ctx, `query { shop { id } }`, nil); err != nil {
				return err
			}
			return progress(100, "done")
		}))
	require.NoError(t, runner.Start())

	tk, err := domain.NewTask("demo.myshop.io", domain.TaskTypeSync, "shop", "gid://shop/1", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, runner.Submit(context.Background(), tk))

	<-started
	app := &application{logger: logger, gateway: gw, taskRunner: runner}
	app.cleanup()

	got, err := mockStore.GetByID(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, got.Status)
}
