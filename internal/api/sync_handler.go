package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lingoshop/lingoshop-api/internal/api/shared"
	"github.com/lingoshop/lingoshop-api/internal/syncer"
)

// SyncRunner executes a full storefront synchronization, emitting progress
// events to the given channel. It must not close the channel.
type SyncRunner interface {
	Run(ctx context.Context, shop string, events chan<- syncer.Event) syncer.Stats
}

// SyncHandler streams bulk synchronization progress over Server-Sent Events.
type SyncHandler struct {
	runner SyncRunner
	logger *slog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(runner SyncRunner, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		runner: runner,
		logger: logger.With("component", "sync_handler"),
	}
}

// StreamSync handles GET /api/sync/stream. It starts a synchronization run
// for the authenticated shop and streams each progress event as an SSE
// data frame until the run completes or the client disconnects.
func (h *SyncHandler) StreamSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.With(slog.String("trace_id", shared.GetTraceID(ctx)))

	shop, ok := shared.GetShop(ctx)
	if !ok {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		shared.RespondWithError(w, r, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Info("sync stream started", "shop", shop)

	eventCh := make(chan syncer.Event, 16)
	go func() {
		defer close(eventCh)
		h.runner.Run(ctx, shop, eventCh)
	}()

	for event := range eventCh {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error("failed to marshal sync event", "error", err)
			continue
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			// Client went away; the run observes ctx cancellation and stops.
			log.Debug("sync stream write failed, client disconnected", "error", err)
			return
		}
		flusher.Flush()
	}

	log.Info("sync stream finished", "shop", shop)
}
