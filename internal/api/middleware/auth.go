package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/cohort-api/internal/api/shared"
	"github.com/phrazzld/cohort-api/internal/platform/logger"
	"github.com/phrazzld/cohort-api/internal/redact"
	"github.com/phrazzld/cohort-api/internal/service/auth"
)

// AuthMiddleware provides JWT authentication for maintainer routes.
type AuthMiddleware struct {
	jwtService auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware with the given dependencies.
func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// Authenticate validates the bearer token in the Authorization header and
// stores the verified claims in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.RequireScope("")(next)
}

// RequireScope authenticates the request and rejects tokens that do not carry
// scope with 403. An empty scope only requires a valid token.
func (m *AuthMiddleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			scheme, token, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
				return
			}

			claims, err := m.jwtService.ValidateToken(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
				case errors.Is(err, auth.ErrInvalidToken),
					errors.Is(err, auth.ErrTokenNotYetValid),
					errors.Is(err, auth.ErrMissingToken):
					shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
				default:
					logger.FromContext(r.Context()).Error("failed to validate token", redact.ErrorAttr(err))
					shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
				}
				return
			}

			if scope != "" && !claims.HasScope(scope) {
				logger.FromContext(r.Context()).Warn("token lacks required scope",
					slog.String("subject", claims.Subject),
					slog.String("scope", scope))
				shared.RespondWithError(w, r, http.StatusForbidden, "Insufficient scope")
				return
			}

			ctx := context.WithValue(r.Context(), shared.ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext extracts the verified claims from the request context.
func ClaimsFromContext(r *http.Request) (*auth.Claims, bool) {
	claims, ok := r.Context().Value(shared.ClaimsContextKey).(*auth.Claims)
	return claims, ok && claims != nil
}
