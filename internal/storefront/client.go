// Package storefront is a typed client for the storefront platform's
// content operations. Every call goes through the API gateway, so reads
// and writes share the same rate-shaped funnel as the rest of the app.
package storefront

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lingoshop/lingoshop-api/internal/gateway"
	"github.com/lingoshop/lingoshop-api/internal/syncer"
)

// Client exposes field-level content reads and writes for shop resources.
type Client struct {
	gw *gateway.Gateway
}

// NewClient creates a storefront content client.
func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

const fieldQuery = `
query ResourceField($id: ID!, $key: String!) {
  translatableResource(resourceId: $id) {
    content(key: $key)
  }
}`

const saveFieldMutation = `
mutation SaveResourceField($id: ID!, $key: String!, $value: String!) {
  resourceContentUpdate(resourceId: $id, key: $key, value: $value) {
    userErrors { field message }
  }
}`

const saveTranslationMutation = `
mutation SaveTranslation($id: ID!, $locale: String!, $key: String!, $value: String!) {
  translationsRegister(resourceId: $id, translations: [{locale: $locale, key: $key, value: $value}]) {
    userErrors { field message }
  }
}`

const registerGroupMutation = `
mutation RegisterGroupTranslations($id: ID!, $group: String!, $translations: [TranslationInput!]!) {
  translationsRegister(resourceId: $id, group: $group, translations: $translations) {
    userErrors { field message }
  }
}`

// Field returns the current value of one content field of a resource.
func (c *Client) Field(ctx context.Context, shop, resourceID, key string) (string, error) {
	data, err := c.gw.GraphQL(ctx, fieldQuery, map[string]any{
		"id":  resourceID,
		"key": key,
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		TranslatableResource struct {
			Content string `json:"content"`
		} `json:"translatableResource"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to parse field %s of %s: %w", key, resourceID, err)
	}
	return payload.TranslatableResource.Content, nil
}

// SaveField writes a new value for one content field of a resource.
func (c *Client) SaveField(ctx context.Context, shop, resourceID, key, value string) error {
	data, err := c.gw.GraphQL(ctx, saveFieldMutation, map[string]any{
		"id":    resourceID,
		"key":   key,
		"value": value,
	})
	if err != nil {
		return err
	}
	return checkUserErrors(data, "resourceContentUpdate")
}

// SaveTranslation registers a translated value for one field and locale.
func (c *Client) SaveTranslation(ctx context.Context, shop, resourceID, locale, key, value string) error {
	data, err := c.gw.GraphQL(ctx, saveTranslationMutation, map[string]any{
		"id":     resourceID,
		"locale": locale,
		"key":    key,
		"value":  value,
	})
	if err != nil {
		return err
	}
	return checkUserErrors(data, "translationsRegister")
}

// Apply registers a resource's translations under one content group,
// implementing the sync run's write side.
func (c *Client) Apply(ctx context.Context, shop string, phase syncer.Phase, resource syncer.Resource, group string, translations syncer.Translations) error {
	type translationInput struct {
		Locale string `json:"locale"`
		Key    string `json:"key"`
		Value  string `json:"value"`
	}

	var inputs []translationInput
	for locale, fields := range translations {
		for key, value := range fields {
			inputs = append(inputs, translationInput{Locale: locale, Key: key, Value: value})
		}
	}
	if len(inputs) == 0 {
		return nil
	}

	data, err := c.gw.GraphQL(ctx, registerGroupMutation, map[string]any{
		"id":           resource.ID,
		"group":        group,
		"translations": inputs,
	})
	if err != nil {
		return err
	}
	return checkUserErrors(data, "translationsRegister")
}

// checkUserErrors surfaces mutation-level userErrors, which arrive inside a
// successful GraphQL response rather than as transport errors.
func checkUserErrors(data json.RawMessage, mutation string) error {
	var payload map[string]struct {
		UserErrors []struct {
			Field   []string `json:"field"`
			Message string   `json:"message"`
		} `json:"userErrors"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", mutation, err)
	}

	if result, ok := payload[mutation]; ok && len(result.UserErrors) > 0 {
		return fmt.Errorf("%s rejected: %s", mutation, result.UserErrors[0].Message)
	}
	return nil
}
