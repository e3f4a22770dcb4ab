package auth

import (
	"context"
	"net/http"

	"github.com/authgate/authgate/internal/httputil"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// SessionContextKey holds the verified session claims for the request
const SessionContextKey ContextKey = "session"

// Middleware guards routes that require a signed-in user
type Middleware struct {
	tokenService TokenService
}

func NewMiddleware(tokenService TokenService) *Middleware {
	return &Middleware{tokenService: tokenService}
}

// RequireSession validates the session cookie and puts the claims into the
// request context. Any verification failure collapses to a single 401; the
// client is never told why the session was rejected.
func (m *Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := GetSessionToken(r)
		if err != nil {
			httputil.RespondError(w, "authentication required", http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(token)
		if err != nil {
			httputil.RespondError(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SessionContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SessionFromContext extracts the verified session claims from the request context
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(SessionContextKey).(*SessionClaims)
	return claims, ok
}
