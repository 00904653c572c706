package syncer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lingoshop/lingoshop-api/internal/gateway"
)

// GatewaySource implements Catalog and TranslationSource on top of the
// storefront API gateway, so every sync call flows through the single
// rate-shaped funnel.
type GatewaySource struct {
	gw *gateway.Gateway
}

// NewGatewaySource creates a GatewaySource.
func NewGatewaySource(gw *gateway.Gateway) *GatewaySource {
	return &GatewaySource{gw: gw}
}

// listQuery pages through one resource connection. The connection field is
// selected by the phase name.
const listQuery = `
query ListResources($resource: String!, $first: Int!, $after: String) {
  resources(type: $resource, first: $first, after: $after) {
    nodes { id title }
    pageInfo { hasNextPage endCursor }
  }
}`

// translationsQuery fetches stored translations for one resource.
const translationsQuery = `
query ResourceTranslations($id: ID!, $locales: [String!]!) {
  translatableResource(resourceId: $id) {
    translations(locales: $locales) { locale key value }
  }
}`

// ListPage returns one page of the phase's resource listing.
func (s *GatewaySource) ListPage(ctx context.Context, shop string, phase Phase, cursor string, limit int) (*ResourcePage, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	variables := map[string]any{
		"resource": string(phase),
		"first":    limit,
	}
	if cursor != "" {
		variables["after"] = cursor
	}

	data, err := s.gw.GraphQL(ctx, listQuery, variables)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Resources struct {
			Nodes []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"nodes"`
			PageInfo struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse %s listing: %w", phase, err)
	}

	page := &ResourcePage{
		Resources:   make([]Resource, 0, len(payload.Resources.Nodes)),
		HasNextPage: payload.Resources.PageInfo.HasNextPage,
		EndCursor:   payload.Resources.PageInfo.EndCursor,
	}
	for _, node := range payload.Resources.Nodes {
		page.Resources = append(page.Resources, Resource{ID: node.ID, Title: node.Title})
	}
	return page, nil
}

// Translations fetches the stored translations for one resource.
func (s *GatewaySource) Translations(ctx context.Context, shop, resourceID string, locales []string) (Translations, error) {
	data, err := s.gw.GraphQL(ctx, translationsQuery, map[string]any{
		"id":      resourceID,
		"locales": locales,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		TranslatableResource struct {
			Translations []struct {
				Locale string `json:"locale"`
				Key    string `json:"key"`
				Value  string `json:"value"`
			} `json:"translations"`
		} `json:"translatableResource"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse translations for %s: %w", resourceID, err)
	}

	out := make(Translations)
	for _, t := range payload.TranslatableResource.Translations {
		if out[t.Locale] == nil {
			out[t.Locale] = make(map[string]string)
		}
		out[t.Locale][t.Key] = t.Value
	}
	return out, nil
}
