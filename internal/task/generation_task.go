package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lingoshop/lingoshop-api/internal/domain"
	"github.com/lingoshop/lingoshop-api/internal/generation"
)

// defaultFieldKey is the content field targeted when a task does not name
// one explicitly.
const defaultFieldKey = "description"

// ContentSource reads the current value of a resource's content field.
type ContentSource interface {
	Field(ctx context.Context, shop, resourceID, key string) (string, error)
}

// ContentWriter persists generated and translated field values.
type ContentWriter interface {
	SaveField(ctx context.Context, shop, resourceID, key, value string) error
	SaveTranslation(ctx context.Context, shop, resourceID, locale, key, value string) error
}

// GenerationHandler executes aiGeneration tasks: it loads the resource's
// current field content, asks the generator for a rewritten version, and
// saves the result back.
type GenerationHandler struct {
	generator generation.Generator
	source    ContentSource
	writer    ContentWriter
	logger    *slog.Logger
}

// NewGenerationHandler creates a GenerationHandler.
func NewGenerationHandler(generator generation.Generator, source ContentSource, writer ContentWriter, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
		source:    source,
		writer:    writer,
		logger:    logger.With("component", "generation_handler"),
	}
}

// Execute runs one aiGeneration task.
func (h *GenerationHandler) Execute(ctx context.Context, t *domain.Task, progress ProgressFunc) error {
	key := t.FieldType
	if key == "" {
		key = defaultFieldKey
	}

	if err := progress(5, "loading source content"); err != nil {
		return err
	}

	source, err := h.source.Field(ctx, t.Shop, t.ResourceID, key)
	if err != nil {
		return fmt.Errorf("failed to load %s of %s: %w", key, t.ResourceID, err)
	}

	if err := progress(25, "generating content"); err != nil {
		return err
	}

	result, err := h.generator.Generate(ctx, generation.Request{
		Shop:       t.Shop,
		Prompt:     generationPrompt(t, key),
		SourceText: source,
	})
	if err != nil {
		return fmt.Errorf("generation failed for %s: %w", t.ResourceID, err)
	}

	if err := progress(80, "saving generated content"); err != nil {
		return err
	}

	if err := h.writer.SaveField(ctx, t.Shop, t.ResourceID, key, result.Text); err != nil {
		return fmt.Errorf("failed to save %s of %s: %w", key, t.ResourceID, err)
	}

	h.logger.Info("content generated",
		"shop", t.Shop,
		"resource_id", t.ResourceID,
		"field", key,
		"tokens_used", result.TokensUsed)

	return progress(100, "content saved")
}

// generationPrompt builds the instruction for an aiGeneration task.
func generationPrompt(t *domain.Task, key string) string {
	title := t.ResourceTitle
	if title == "" {
		title = t.ResourceID
	}
	return fmt.Sprintf(
		"Rewrite the %s of the %s %q for an online store. Keep the meaning, improve clarity and tone, and return only the new text.",
		key, t.ResourceType, title)
}

// TranslationHandler executes translation tasks: it loads the source field
// once and produces one translation per configured locale.
type TranslationHandler struct {
	generator generation.Generator
	source    ContentSource
	writer    ContentWriter
	locales   []string
	logger    *slog.Logger
}

// NewTranslationHandler creates a TranslationHandler targeting the given
// locales.
func NewTranslationHandler(generator generation.Generator, source ContentSource, writer ContentWriter, locales []string, logger *slog.Logger) *TranslationHandler {
	return &TranslationHandler{
		generator: generator,
		source:    source,
		writer:    writer,
		locales:   locales,
		logger:    logger.With("component", "translation_handler"),
	}
}

// Execute runs one translation task. Locales are translated sequentially;
// progress advances per locale so cancellation takes effect between calls.
func (h *TranslationHandler) Execute(ctx context.Context, t *domain.Task, progress ProgressFunc) error {
	if len(h.locales) == 0 {
		return fmt.Errorf("no target locales configured")
	}

	key := t.FieldType
	if key == "" {
		key = defaultFieldKey
	}

	if err := progress(5, "loading source content"); err != nil {
		return err
	}

	source, err := h.source.Field(ctx, t.Shop, t.ResourceID, key)
	if err != nil {
		return fmt.Errorf("failed to load %s of %s: %w", key, t.ResourceID, err)
	}
	if source == "" {
		return fmt.Errorf("resource %s has no %s to translate", t.ResourceID, key)
	}

	for i, locale := range h.locales {
		pct := 10 + 90*i/len(h.locales)
		if err := progress(pct, fmt.Sprintf("translating into %s", locale)); err != nil {
			return err
		}

		result, err := h.generator.Generate(ctx, generation.Request{
			Shop:         t.Shop,
			Prompt:       translationPrompt(t, key, locale),
			SourceText:   source,
			TargetLocale: locale,
		})
		if err != nil {
			return fmt.Errorf("translation into %s failed for %s: %w", locale, t.ResourceID, err)
		}

		if err := h.writer.SaveTranslation(ctx, t.Shop, t.ResourceID, locale, key, result.Text); err != nil {
			return fmt.Errorf("failed to save %s translation of %s: %w", locale, t.ResourceID, err)
		}

		h.logger.Debug("translation saved",
			"shop", t.Shop,
			"resource_id", t.ResourceID,
			"field", key,
			"locale", locale,
			"tokens_used", result.TokensUsed)
	}

	return progress(100, "translations saved")
}

// translationPrompt builds the instruction for a translation task.
func translationPrompt(t *domain.Task, key, locale string) string {
	return fmt.Sprintf(
		"Translate the following %s of a %s into %s. Preserve formatting and product names, and return only the translated text.",
		key, t.ResourceType, locale)
}
