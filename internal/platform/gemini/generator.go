// Package gemini implements the generation.Generator interface using
// Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/generation"
	"github.com/lingoshop/lingoshop-api/internal/ratelimit"
)

// Generator calls the Gemini API for text generation and translation.
// Every call is charged against the owning shop's rate budget before it
// goes out.
type Generator struct {
	logger  *slog.Logger
	client  *genai.Client
	limiter *ratelimit.Limiter
	model   string
}

// NewGenerator creates a Gemini-backed Generator.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.ProvidersConfig, limiter *ratelimit.Limiter) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.GeminiModel == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return &Generator{
		logger:  logger,
		client:  client,
		limiter: limiter,
		model:   cfg.GeminiModel,
	}, nil
}

// Provider returns the rate-limited provider this generator calls.
func (g *Generator) Provider() ratelimit.Provider {
	return ratelimit.ProviderGoogle
}

// requestContents assembles the model input as one user message: the
// instruction first, then the source material as its own part. Requests
// without source text (pure generation from a prompt) send the prompt alone.
func requestContents(req generation.Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.SourceText != "" {
		parts = append(parts, genai.NewPartFromText(req.SourceText))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// Generate produces text for the given request. It acquires a rate permit
// with a pessimistic token estimate, performs the call, and corrects the
// estimate with the provider's reported usage.
func (g *Generator) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", generation.ErrInvalidConfig)
	}

	estimated := ratelimit.EstimateTokens(req.Prompt + req.SourceText)

	permit, err := g.limiter.Acquire(ctx, req.Shop, g.Provider(), estimated)
	if err != nil {
		return nil, fmt.Errorf("%w: rate limit wait interrupted: %v", generation.ErrTransientFailure, err)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, requestContents(req), nil)
	if err != nil {
		permit.Release(estimated)
		return nil, fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		permit.Release(estimated)
		return nil, fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		permit.Release(estimated)
		return nil, fmt.Errorf("%w: finish reason safety", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		permit.Release(estimated)
		return nil, fmt.Errorf("%w: empty text in response", generation.ErrInvalidResponse)
	}

	actual := estimated
	if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
		actual = int(resp.UsageMetadata.TotalTokenCount)
	}
	permit.Release(actual)

	g.logger.DebugContext(ctx, "gemini call completed",
		"shop", req.Shop,
		"estimated_tokens", estimated,
		"actual_tokens", actual)

	return &generation.Result{Text: text, TokensUsed: actual}, nil
}
