package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/metrics"
)

// Provider identifies an external AI provider with its own rate budget.
type Provider string

// Supported AI providers
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderDeepL     Provider = "deepl"
	ProviderCohere    Provider = "cohere"
	ProviderMistral   Provider = "mistral"
)

// Window is the duration of one rate-limiting window. Usage counters reset
// wholesale at the window boundary (not a true rolling window).
const Window = time.Minute

// Token estimation heuristic: roughly one token per four characters of
// text plus a fixed prompt overhead. Deliberately pessimistic; permits are
// corrected with the real count via Permit.Release.
const (
	TokensPerCharDivisor  = 4
	TokenEstimateOverhead = 64
)

// Budget is a per-minute request and token allowance for one provider.
type Budget struct {
	MaxRequestsPerMinute int
	MaxTokensPerMinute   int
}

// DefaultBudgets holds the documented fallback budget per provider, used
// whenever a tenant has no explicit configuration. Exported so tests can
// assert the fallback values directly.
var DefaultBudgets = map[Provider]Budget{
	ProviderOpenAI:    {MaxRequestsPerMinute: 100, MaxTokensPerMinute: 1_000_000},
	ProviderAnthropic: {MaxRequestsPerMinute: 60, MaxTokensPerMinute: 400_000},
	ProviderGoogle:    {MaxRequestsPerMinute: 60, MaxTokensPerMinute: 1_000_000},
	ProviderDeepL:     {MaxRequestsPerMinute: 5, MaxTokensPerMinute: 40_000},
	ProviderCohere:    {MaxRequestsPerMinute: 40, MaxTokensPerMinute: 100_000},
	ProviderMistral:   {MaxRequestsPerMinute: 30, MaxTokensPerMinute: 200_000},
}

// FallbackBudget is used when a provider is not present in DefaultBudgets
// at all. The limiter fails open rather than deadlocking unmetered work.
var FallbackBudget = Budget{MaxRequestsPerMinute: 30, MaxTokensPerMinute: 100_000}

// EstimateTokens returns the heuristic token count for a piece of text.
func EstimateTokens(text string) int {
	return len(text)/TokensPerCharDivisor + TokenEstimateOverhead
}

// window tracks usage for one (shop, provider) pair. Ephemeral: on process
// restart all windows start empty, which is acceptable because the limiter
// is advisory, not a security boundary.
type window struct {
	startedAt    time.Time
	requestsUsed int
	tokensUsed   int
}

// Limiter enforces per-shop, per-provider sliding-window budgets for
// outbound AI calls. Acquire blocks cooperatively until the window admits
// the call; requests are never dropped.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	cfg    config.RateLimitConfig
	logger *slog.Logger

	// now is replaceable in tests
	now func() time.Time
}

// NewLimiter creates a Limiter with the given per-tenant overrides.
func NewLimiter(cfg config.RateLimitConfig, logger *slog.Logger) *Limiter {
	return &Limiter{
		windows: make(map[string]*window),
		cfg:     cfg,
		logger:  logger.With("component", "rate_limiter"),
		now:     time.Now,
	}
}

// Permit represents an admitted request. Callers must call Release with the
// actual token count once known so budget tracking improves over the life
// of the window (pessimistic before the call, corrected after).
type Permit struct {
	limiter     *Limiter
	key         string
	windowStart time.Time
	estimated   int
	released    bool
}

// BudgetFor returns the effective budget for a provider: configured
// override if present, otherwise the documented default. Unknown providers
// fall back to FallbackBudget with a warning (fail open).
func (l *Limiter) BudgetFor(provider Provider) Budget {
	if override, ok := l.cfg.Providers[string(provider)]; ok {
		return Budget{
			MaxRequestsPerMinute: override.MaxRequestsPerMinute,
			MaxTokensPerMinute:   override.MaxTokensPerMinute,
		}
	}

	if budget, ok := DefaultBudgets[provider]; ok {
		return budget
	}

	l.logger.Warn("no budget configured for provider, failing open with fallback",
		"provider", provider,
		"max_requests_per_minute", FallbackBudget.MaxRequestsPerMinute,
		"max_tokens_per_minute", FallbackBudget.MaxTokensPerMinute)
	return FallbackBudget
}

// Acquire blocks until the (shop, provider) window can admit a request of
// the given estimated token cost, then records the usage and returns a
// Permit. It returns early with the context's error if ctx is cancelled
// while waiting.
func (l *Limiter) Acquire(ctx context.Context, shop string, provider Provider, estimatedTokens int) (*Permit, error) {
	budget := l.BudgetFor(provider)
	key := shop + "|" + string(provider)

	for {
		permit, wait := l.tryAcquire(key, budget, estimatedTokens, provider)
		if permit != nil {
			return permit, nil
		}

		metrics.ObserveRateLimitWait(string(provider), wait)
		l.logger.Debug("rate limit window exhausted, waiting",
			"shop", shop,
			"provider", provider,
			"wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// tryAcquire attempts to admit a request without blocking. On success it
// returns a Permit; otherwise it returns the duration until the window
// resets.
func (l *Limiter) tryAcquire(key string, budget Budget, estimatedTokens int, provider Provider) (*Permit, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w, ok := l.windows[key]
	if !ok {
		w = &window{startedAt: now}
		l.windows[key] = w
	}

	// Wholesale reset at the window boundary.
	if now.Sub(w.startedAt) >= Window {
		w.startedAt = now
		w.requestsUsed = 0
		w.tokensUsed = 0
	}

	fits := w.requestsUsed+1 <= budget.MaxRequestsPerMinute &&
		w.tokensUsed+estimatedTokens <= budget.MaxTokensPerMinute

	// A single request larger than the whole token budget would wait
	// forever; admit it into an otherwise empty window with a warning.
	if !fits && w.requestsUsed == 0 && w.tokensUsed == 0 &&
		estimatedTokens > budget.MaxTokensPerMinute {
		l.logger.Warn("estimated tokens exceed entire window budget, admitting anyway",
			"provider", provider,
			"estimated_tokens", estimatedTokens,
			"max_tokens_per_minute", budget.MaxTokensPerMinute)
		fits = true
	}

	if !fits {
		wait := w.startedAt.Add(Window).Sub(now)
		if wait <= 0 {
			wait = time.Millisecond
		}
		return nil, wait
	}

	w.requestsUsed++
	w.tokensUsed += estimatedTokens

	return &Permit{
		limiter:     l,
		key:         key,
		windowStart: w.startedAt,
		estimated:   estimatedTokens,
	}, 0
}

// Release corrects the window's token usage with the actual count observed
// after the provider call. If the window has already reset since the permit
// was issued, the correction is skipped. Safe to call at most once;
// subsequent calls are no-ops.
func (p *Permit) Release(actualTokens int) {
	if p == nil || p.released {
		return
	}
	p.released = true

	l := p.limiter
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[p.key]
	if !ok || !w.startedAt.Equal(p.windowStart) {
		return
	}

	w.tokensUsed += actualTokens - p.estimated
	if w.tokensUsed < 0 {
		w.tokensUsed = 0
	}
}

// Usage returns the current request and token usage for a (shop, provider)
// pair. Intended for observability and tests.
func (l *Limiter) Usage(shop string, provider Provider) (requests, tokens int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[shop+"|"+string(provider)]
	if !ok {
		return 0, 0
	}
	return w.requestsUsed, w.tokensUsed
}
