package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lingoshop/lingoshop-api/internal/config"
)

// graphqlResponse is the wire shape of a storefront API response.
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// throttledErrorCode is the cost-based throttle code reported in the
// extensions of a GraphQL error.
const throttledErrorCode = "THROTTLED"

// HTTPExecutor performs GraphQL requests against the storefront admin API
// over HTTP.
type HTTPExecutor struct {
	endpoint    string
	accessToken string
	client      *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor for the configured endpoint.
func NewHTTPExecutor(cfg config.GatewayConfig) *HTTPExecutor {
	return &HTTPExecutor{
		endpoint:    cfg.Endpoint,
		accessToken: cfg.AccessToken,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Execute performs one GraphQL request. Throttling (HTTP 429 or a
// THROTTLED error code) is reported as ErrThrottled; other API errors as
// *GraphQLError.
func (e *HTTPExecutor) Execute(ctx context.Context, query string, variables map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Storefront-Access-Token", e.accessToken)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("storefront API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("storefront API returned 429: %w", ErrThrottled)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storefront API returned unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse storefront API response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, apiErr := range parsed.Errors {
			if apiErr.Extensions.Code == throttledErrorCode {
				return nil, fmt.Errorf("storefront API reported cost throttling: %w", ErrThrottled)
			}
			messages = append(messages, apiErr.Message)
		}
		return nil, &GraphQLError{Messages: messages}
	}

	return parsed.Data, nil
}
