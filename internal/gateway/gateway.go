package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/metrics"
)

// Executor abstracts the wire-level GraphQL call so the gateway can be
// tested without a network and swapped between real and fake transports.
type Executor interface {
	// Execute performs one GraphQL request and returns the raw data payload.
	// Throttling must be reported as an error satisfying
	// errors.Is(err, ErrThrottled); other API errors as *GraphQLError.
	Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error)
}

// result carries the outcome of one request back to its waiting caller.
type result struct {
	data json.RawMessage
	err  error
}

// request is one queued GraphQL call. Lives only in the gateway's queue and
// is never persisted; if the process crashes mid-flight the owning task
// stays running and is repaired by startup recovery.
type request struct {
	ctx        context.Context
	query      string
	variables  map[string]any
	resultCh   chan result
	retryCount int
}

// Gateway serializes all storefront API calls through one FIFO drain loop
// with per-second rate shaping and bounded retry on throttling.
type Gateway struct {
	mu       sync.Mutex
	queue    []*request
	draining bool
	closed   bool

	exec       Executor
	shaper     *rate.Limiter
	cfg        config.GatewayConfig
	logger     *slog.Logger
	retryDelay time.Duration
}

// New creates a Gateway around the given executor.
func New(exec Executor, cfg config.GatewayConfig, logger *slog.Logger) *Gateway {
	if cfg.MaxRequestsPerSecond <= 0 {
		cfg.MaxRequestsPerSecond = 2
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 3
	}
	retryDelay := time.Duration(cfg.RetryDelayMillis) * time.Millisecond
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Gateway{
		exec:       exec,
		shaper:     rate.NewLimiter(rate.Limit(cfg.MaxRequestsPerSecond), cfg.MaxRequestsPerSecond),
		cfg:        cfg,
		logger:     logger.With("component", "api_gateway"),
		retryDelay: retryDelay,
	}
}

// GraphQL enqueues a request and blocks until it has been drained and
// executed (including any throttle retries), or until ctx is cancelled.
func (g *Gateway) GraphQL(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	req := &request{
		ctx:       ctx,
		query:     query,
		variables: variables,
		resultCh:  make(chan result, 1),
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrGatewayClosed
	}
	g.queue = append(g.queue, req)
	shouldDrain := !g.draining
	if shouldDrain {
		g.draining = true
	}
	g.mu.Unlock()

	if shouldDrain {
		go g.drain()
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-req.resultCh:
		return res.data, res.err
	}
}

// Close stops the gateway from accepting new requests. Queued requests are
// still drained.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

// drain is the single consumer loop. It pops requests in FIFO order,
// shapes the outbound rate, executes each request, and either delivers the
// result or re-enqueues a throttled request at the front of the queue.
func (g *Gateway) drain() {
	for {
		g.mu.Lock()
		if len(g.queue) == 0 {
			g.draining = false
			g.mu.Unlock()
			return
		}
		req := g.queue[0]
		g.queue = g.queue[1:]
		g.mu.Unlock()

		// Caller may have given up while the request sat in the queue.
		if req.ctx.Err() != nil {
			req.deliver(result{err: req.ctx.Err()})
			continue
		}

		if err := g.shaper.Wait(req.ctx); err != nil {
			req.deliver(result{err: err})
			continue
		}

		data, err := g.exec.Execute(req.ctx, req.query, req.variables)

		switch {
		case err == nil:
			metrics.IncGatewayRequest("ok")
			req.deliver(result{data: data})

		case errors.Is(err, ErrThrottled):
			g.handleThrottled(req)

		default:
			// Permanent errors (validation, auth, network) surface
			// immediately; retrying a malformed query wastes budget.
			metrics.IncGatewayRequest("error")
			req.deliver(result{err: err})
		}
	}
}

// handleThrottled re-enqueues a throttled request at the front of the queue
// after a linear backoff, or rejects it once retries are exhausted.
func (g *Gateway) handleThrottled(req *request) {
	metrics.IncGatewayRequest("throttled")

	if req.retryCount >= g.cfg.MaxRetries {
		g.logger.Warn("request throttled and retries exhausted",
			"retries", req.retryCount)
		req.deliver(result{err: fmt.Errorf("throttled after %d retries: %w", req.retryCount, ErrThrottled)})
		return
	}

	req.retryCount++
	backoff := g.retryDelay * time.Duration(req.retryCount)

	g.logger.Debug("request throttled, backing off",
		"attempt", req.retryCount,
		"backoff", backoff)
	metrics.IncGatewayRetry()

	timer := time.NewTimer(backoff)
	select {
	case <-req.ctx.Done():
		timer.Stop()
		req.deliver(result{err: req.ctx.Err()})
		return
	case <-timer.C:
	}

	// Front-of-queue re-insertion: retries are prioritized over fresh work
	// so in-flight operations are not starved.
	g.mu.Lock()
	g.queue = append([]*request{req}, g.queue...)
	g.mu.Unlock()
}

// deliver hands the result to the waiting caller without blocking the
// drain loop if the caller already left.
func (r *request) deliver(res result) {
	select {
	case r.resultCh <- res:
	default:
	}
}
