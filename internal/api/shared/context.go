package shared

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys defined by this package.
type contextKey int

const (
	traceIDKey contextKey = iota
	shopKey
)

// SetTraceID returns a context carrying a freshly generated trace ID.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, traceIDKey, uuid.NewString())
}

// GetTraceID returns the trace ID from the context, or an empty string.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}

// WithShop returns a context carrying the authenticated shop domain.
func WithShop(ctx context.Context, shop string) context.Context {
	return context.WithValue(ctx, shopKey, shop)
}

// GetShop returns the authenticated shop from the context.
// Returns the shop and a boolean indicating if it was found.
func GetShop(ctx context.Context) (string, bool) {
	shop, ok := ctx.Value(shopKey).(string)
	return shop, ok
}
