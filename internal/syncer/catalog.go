package syncer

import "context"

// MaxPageSize is the provider's hard cap on resources per listing page.
const MaxPageSize = 250

// Resource is one catalog or content item returned by a listing.
type Resource struct {
	ID    string
	Title string
}

// ResourcePage is one page of a cursor-paginated listing. A single page is
// never assumed to be complete data; callers loop while HasNextPage.
type ResourcePage struct {
	Resources   []Resource
	HasNextPage bool
	EndCursor   string
}

// Catalog lists a shop's resources for one phase, one page at a time.
type Catalog interface {
	// ListPage returns up to limit resources after the given cursor. An
	// empty cursor starts from the beginning.
	ListPage(ctx context.Context, shop string, phase Phase, cursor string, limit int) (*ResourcePage, error)
}

// Translations maps locale -> field key -> translated value.
type Translations map[string]map[string]string

// TranslationSource fetches the stored translations for one resource in
// the given locales.
type TranslationSource interface {
	Translations(ctx context.Context, shop, resourceID string, locales []string) (Translations, error)
}

// ContentGroupSink receives the translations belonging to one logical
// content group of a resource (e.g. core fields vs. SEO fields). The sink
// is the write side of a sync run: typically the local content index.
type ContentGroupSink interface {
	Apply(ctx context.Context, shop string, phase Phase, resource Resource, group string, translations Translations) error
}

// contentGroups returns the logical content groups per phase. A resource
// belongs to every group of its phase; translations are fetched once per
// resource and distributed across groups.
func contentGroups(phase Phase) []string {
	switch phase {
	case PhaseProducts:
		return []string{"core", "seo", "variants"}
	case PhaseCollections, PhaseArticles, PhasePages:
		return []string{"core", "seo"}
	case PhasePolicies:
		return []string{"core"}
	case PhaseThemes:
		return []string{"static", "dynamic"}
	default:
		return []string{"core"}
	}
}
