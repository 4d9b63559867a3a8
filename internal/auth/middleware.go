package auth

import (
	"context"
	"net/http"

	"github.com/geekheaven/identity/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

// UserContextKey is the key for storing session claims in context
const UserContextKey contextKey = "user"

// Middleware validates bearer tokens and injects the session claims into
// the request context. Refresh tokens are rejected here; they are only
// accepted by the refresh endpoint.
func Middleware(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := ExtractTokenFromHeader(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateAccessToken(tokenString)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if claims.TokenType == models.TokenTypeRefresh {
				http.Error(w, "refresh tokens cannot be used for API access", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext retrieves the session claims injected by Middleware.
func ClaimsFromContext(ctx context.Context) (*models.SessionClaims, bool) {
	claims, ok := ctx.Value(UserContextKey).(*models.SessionClaims)
	return claims, ok
}
