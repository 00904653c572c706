package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lingoshop/lingoshop-api/internal/metrics"
)

// Orchestrator runs phased bulk synchronization for one shop at a time.
type Orchestrator struct {
	catalog      Catalog
	translations TranslationSource
	sink         ContentGroupSink
	locales      []string
	pageSize     int
	logger       *slog.Logger
}

// NewOrchestrator creates an Orchestrator. pageSize is clamped to
// MaxPageSize; a non-positive value uses the maximum.
func NewOrchestrator(
	catalog Catalog,
	translations TranslationSource,
	sink ContentGroupSink,
	locales []string,
	pageSize int,
	logger *slog.Logger,
) *Orchestrator {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Orchestrator{
		catalog:      catalog,
		translations: translations,
		sink:         sink,
		locales:      locales,
		pageSize:     pageSize,
		logger:       logger.With("component", "sync_orchestrator"),
	}
}

// translationCache memoizes translation fetches for the duration of one
// run, keyed by (resourceID, sorted locale list). A resource typically
// belongs to several content groups; without the cache every group would
// refetch the same translations, multiplying API calls by the group count.
type translationCache struct {
	source TranslationSource
	cache  map[string]Translations
}

func newTranslationCache(source TranslationSource) *translationCache {
	return &translationCache{
		source: source,
		cache:  make(map[string]Translations),
	}
}

func (c *translationCache) get(ctx context.Context, shop, resourceID string, locales []string) (Translations, error) {
	sorted := append([]string(nil), locales...)
	sort.Strings(sorted)
	key := resourceID + "|" + strings.Join(sorted, ",")

	if cached, ok := c.cache[key]; ok {
		return cached, nil
	}

	translations, err := c.source.Translations(ctx, shop, resourceID, sorted)
	if err != nil {
		return nil, err
	}
	c.cache[key] = translations
	return translations, nil
}

// Run executes all phases in order, emitting progress events to the given
// channel and a final complete (or error) event before returning the run's
// stats. The channel is not closed by Run; the caller owns it. A failure in
// one phase is recorded and the remaining phases still execute.
func (o *Orchestrator) Run(ctx context.Context, shop string, events chan<- Event) Stats {
	var stats Stats
	cache := newTranslationCache(o.translations)

	for _, phase := range AllPhases {
		if ctx.Err() != nil {
			o.emit(ctx, events, Event{Type: EventTypeError, Message: "sync cancelled"})
			return stats
		}

		count, err := o.runPhase(ctx, shop, phase, cache, events)
		if err != nil {
			o.logger.Error("sync phase failed, continuing with remaining phases",
				"shop", shop,
				"phase", phase,
				"error", err)
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %s", phase, err))
			metrics.IncSyncPhase(string(phase), "error")
			continue
		}

		stats.add(phase, count)
		metrics.IncSyncPhase(string(phase), "ok")
	}

	o.emit(ctx, events, Event{Type: EventTypeComplete, Stats: &stats})
	return stats
}

// runPhase lists every resource of the phase page by page, then fetches
// translations (cached per resource) and distributes them to the phase's
// content groups.
func (o *Orchestrator) runPhase(ctx context.Context, shop string, phase Phase, cache *translationCache, events chan<- Event) (int, error) {
	resources, err := o.listAll(ctx, shop, phase, events)
	if err != nil {
		return 0, err
	}

	total := len(resources)

	for i, resource := range resources {
		if ctx.Err() != nil {
			return i, ctx.Err()
		}

		translations, err := cache.get(ctx, shop, resource.ID, o.locales)
		if err != nil {
			return i, fmt.Errorf("failed to fetch translations for %s: %w", resource.ID, err)
		}

		for _, group := range contentGroups(phase) {
			if err := o.sink.Apply(ctx, shop, phase, resource, group, translations); err != nil {
				return i, fmt.Errorf("failed to apply %s/%s: %w", resource.ID, group, err)
			}
		}

		o.emit(ctx, events, Event{
			Type:    EventTypeProgress,
			Phase:   phase,
			Message: fmt.Sprintf("Synced %s", resource.Title),
			Current: i + 1,
			Total:   total,
		})
	}

	return total, nil
}

// listAll drains the phase's cursor-paginated listing: fetch a page capped
// at the provider maximum, accumulate, advance the cursor, and stop only
// when the provider reports no next page.
func (o *Orchestrator) listAll(ctx context.Context, shop string, phase Phase, events chan<- Event) ([]Resource, error) {
	var resources []Resource
	cursor := ""

	for {
		page, err := o.catalog.ListPage(ctx, shop, phase, cursor, o.pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s page: %w", phase, err)
		}

		resources = append(resources, page.Resources...)

		o.emit(ctx, events, Event{
			Type:    EventTypeProgress,
			Phase:   phase,
			Message: fmt.Sprintf("Fetched %d %s", len(resources), phase),
			Current: len(resources),
		})

		if !page.HasNextPage {
			return resources, nil
		}
		cursor = page.EndCursor
	}
}

// emit delivers an event without blocking past cancellation.
func (o *Orchestrator) emit(ctx context.Context, events chan<- Event, event Event) {
	select {
	case events <- event:
	case <-ctx.Done():
	}
}
