package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/events"
	"github.com/lingoshop/lingoshop-api/internal/gateway"
	"github.com/lingoshop/lingoshop-api/internal/generation"
	"github.com/lingoshop/lingoshop-api/internal/metrics"
	"github.com/lingoshop/lingoshop-api/internal/platform/gemini"
	"github.com/lingoshop/lingoshop-api/internal/platform/postgres"
	"github.com/lingoshop/lingoshop-api/internal/ratelimit"
	"github.com/lingoshop/lingoshop-api/internal/service/auth"
	"github.com/lingoshop/lingoshop-api/internal/store"
	"github.com/lingoshop/lingoshop-api/internal/storefront"
	"github.com/lingoshop/lingoshop-api/internal/syncer"
	"github.com/lingoshop/lingoshop-api/internal/task"
)

// taskAuditHandler logs every task request event. It is the default
// observer on the event emitter; external observers (webhooks, analytics)
// register alongside it.
type taskAuditHandler struct {
	logger *slog.Logger
}

// HandleEvent records the task request.
func (h *taskAuditHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	h.logger.Info("task requested",
		"event_id", event.ID,
		"shop", event.Shop,
		"task_type", event.Type)
	return nil
}

// application holds the shared application dependencies so initialization
// and cleanup stay in one place.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore store.TaskStore

	jwtService auth.JWTService
	limiter    *ratelimit.Limiter
	gateway    *gateway.Gateway
	generator  generation.Generator

	eventEmitter events.EventEmitter
	taskRunner   *task.Runner
	syncRunner   *syncer.Orchestrator
}

// newApplication creates the application with all dependencies initialized,
// runs startup recovery, and starts the task runner. Recovery must complete
// before the runner starts so repaired tasks are picked up exactly once.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	metrics.Register()

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.taskStore = postgres.NewTaskStore(db)

	app.limiter = ratelimit.NewLimiter(cfg.RateLimit, logger)

	app.gateway = gateway.New(gateway.NewHTTPExecutor(cfg.Gateway), cfg.Gateway, logger)

	app.generator, err = gemini.NewGenerator(ctx, logger.With("component", "gemini_generator"), cfg.Providers, app.limiter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}

	content := storefront.NewClient(app.gateway)
	source := syncer.NewGatewaySource(app.gateway)
	app.syncRunner = syncer.NewOrchestrator(source, source, content, cfg.Sync.Locales, cfg.Sync.PageSize, logger)

	app.taskRunner = task.NewRunner(app.taskStore, task.RunnerConfig{
		WorkerCount:          cfg.Task.WorkerCount,
		QueueSize:            cfg.Task.QueueSize,
		ProgressFlushPercent: cfg.Task.ProgressFlushPercent,
	}, logger)

	app.taskRunner.RegisterHandler(domain.TaskTypeAIGeneration,
		task.NewGenerationHandler(app.generator, content, content, logger))
	app.taskRunner.RegisterHandler(domain.TaskTypeTranslation,
		task.NewTranslationHandler(app.generator, content, content, cfg.Sync.Locales, logger))
	app.taskRunner.RegisterHandler(domain.TaskTypeSync,
		task.NewSyncTaskHandler(app.syncRunner, logger))

	// Repair crash leftovers before any worker can claim tasks.
	recovery := task.NewRecoveryService(
		app.taskStore,
		time.Duration(cfg.Task.StuckTaskAgeMinutes)*time.Minute,
		logger,
	)
	stats, err := recovery.RecoverPendingTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("startup recovery failed: %w", err)
	}
	logger.Info("startup recovery completed",
		"recovered", stats.Recovered,
		"failed", stats.Failed)

	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.RegisterHandler(&taskAuditHandler{logger: logger.With("component", "task_audit")})
	app.eventEmitter = emitter

	logger.Info("application initialized")
	return app, nil
}

// Run starts the HTTP server and blocks until shutdown.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. Order
// matters: drain in-flight tasks first so their storefront calls still go
// through the gateway, then close the gateway and the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.gateway != nil {
		app.gateway.Close()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
