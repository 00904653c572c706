package generation

import (
	"context"

	"github.com/lingoshop/lingoshop-api/internal/ratelimit"
)

// Request describes one AI text operation: generating fresh copy for a
// resource field or translating existing content into a target locale.
type Request struct {
	// Shop is the tenant whose rate budget the call is charged against.
	Shop string

	// Prompt is the fully rendered instruction sent to the provider.
	Prompt string

	// SourceText is the existing field content, empty for pure generation.
	SourceText string

	// TargetLocale is the BCP 47 tag for translation requests, empty
	// otherwise.
	TargetLocale string
}

// Result is the provider's response plus the actual token usage reported
// by the provider, used to correct the pessimistic pre-flight estimate.
type Result struct {
	Text       string
	TokensUsed int
}

// Generator defines the boundary between the task handlers and external
// AI/LLM services. Implementations are responsible for charging the
// tenant's rate budget before calling out.
type Generator interface {
	// Generate produces text for the given request.
	Generate(ctx context.Context, req Request) (*Result, error)

	// Provider returns which rate-limited provider this generator calls.
	Provider() ratelimit.Provider
}
