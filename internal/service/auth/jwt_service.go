// Package auth validates shop-session tokens issued by the storefront
// platform during app installation. This service never issues end-user
// credentials; it only checks that a request carries a valid, unexpired
// token for some shop.
package auth

import (
	"context"
	"time"
)

// JWTService defines operations for shop-session JWT tokens.
type JWTService interface {
	// GenerateToken creates a signed session token for the given shop.
	// Used by installation flows and tests.
	GenerateToken(ctx context.Context, shop string) (string, error)

	// ValidateToken validates the provided token string and extracts the
	// claims, or returns an error if validation fails (expired, invalid
	// signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the custom claims structure for shop-session tokens.
type Claims struct {
	// Shop is the tenant domain the token was issued for.
	Shop string `json:"shop"`

	// Standard registered JWT claims
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
}
