package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors returned by the gateway package
var (
	// ErrThrottled indicates the storefront API rejected the call for
	// cost/rate reasons. Returned to callers only after retries exhaust.
	ErrThrottled = errors.New("storefront API request throttled")

	// ErrGatewayClosed is returned when a request is submitted after Close.
	ErrGatewayClosed = errors.New("gateway is closed")
)

// GraphQLError represents a non-throttling error reported by the storefront
// API (validation failure, auth failure, malformed query). These are never
// retried: re-sending a malformed query only wastes budget.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("storefront API error: %s", strings.Join(e.Messages, "; "))
}
