package auth

import (
	"context"
	"slices"
	"time"
)

// Scopes granted by maintainer tokens.
const (
	// ScopeRatesWrite allows replacing decrement tables in the rate store.
	ScopeRatesWrite = "rates:write"
)

// JWTService issues and verifies maintainer tokens. Projections are open;
// only writes to the shared rate store require a token.
type JWTService interface {
	// GenerateToken creates a signed token for subject carrying scopes.
	GenerateToken(ctx context.Context, subject string, scopes ...string) (string, error)

	// ValidateToken verifies the signature and time claims of tokenString
	// and returns its claims.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims represents the verified content of a maintainer token.
type Claims struct {
	// Subject names the maintainer the token was issued to.
	Subject string `json:"sub,omitempty"`

	// Scopes lists the operations the token grants.
	Scopes []string `json:"scopes,omitempty"`

	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}
