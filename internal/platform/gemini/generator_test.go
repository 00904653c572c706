package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google.golang.org/genai"

	"github.com/lingoshop/lingoshop-api/internal/config"
	"github.com/lingoshop/lingoshop-api/internal/generation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRequestContents(t *testing.T) {
	t.Parallel()

	t.Run("source text travels with the instruction", func(t *testing.T) {
		t.Parallel()

		contents := requestContents(generation.Request{
			Shop:         "demo.myshop.io",
			Prompt:       "Translate the following description of a product into de.",
			SourceText:   "A sturdy oak table.",
			TargetLocale: "de",
		})

		require.Len(t, contents, 1)
		assert.Equal(t, string(genai.RoleUser), contents[0].Role)
		require.Len(t, contents[0].Parts, 2)
		assert.Contains(t, contents[0].Parts[0].Text, "Translate the following")
		assert.Equal(t, "A sturdy oak table.", contents[0].Parts[1].Text)
	})

	t.Run("prompt-only request sends a single part", func(t *testing.T) {
		t.Parallel()

		contents := requestContents(generation.Request{
			Shop:   "demo.myshop.io",
			Prompt: "Write a product description for an oak table.",
		})

		require.Len(t, contents, 1)
		require.Len(t, contents[0].Parts, 1)
		assert.Contains(t, contents[0].Parts[0].Text, "oak table")
	})
}

func TestGenerate_RejectsEmptyPrompt(t *testing.T) {
	t.Parallel()

	g := &Generator{}
	_, err := g.Generate(context.Background(), generation.Request{Shop: "demo.myshop.io"})
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}

func TestNewGenerator_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()

		_, err := NewGenerator(ctx, nil, config.ProvidersConfig{GeminiAPIKey: "key", GeminiModel: "model"}, nil)
		assert.Error(t, err)
	})

	t.Run("missing API key", func(t *testing.T) {
		t.Parallel()

		_, err := NewGenerator(ctx, testLogger(), config.ProvidersConfig{GeminiModel: "model"}, nil)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})

	t.Run("missing model", func(t *testing.T) {
		t.Parallel()

		_, err := NewGenerator(ctx, testLogger(), config.ProvidersConfig{GeminiAPIKey: "key"}, nil)
		assert.ErrorIs(t, err, generation.ErrInvalidConfig)
	})
}
