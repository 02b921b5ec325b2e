package middleware

import (
	"context"
	"net/http"
	"strings"

	"blogcristao/internal/httputil"
	"blogcristao/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for the verified session claims
	ClaimsKey contextKey = "claims"
)

// SessionVerifier resolves a session value to its identity.
type SessionVerifier interface {
	Verify(ctx context.Context, session string) (*model.IdentityClaims, error)
}

// AuthMiddleware rejects requests without a valid session.
// Checks the Authorization header first, then falls back to the session cookie.
func AuthMiddleware(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(r)
			if session == "" {
				httputil.WriteUnauthorizedWithCode(w, httputil.ErrCodeSessionRequired, model.ErrAuthRequired.Error())
				return
			}

			claims, err := verifier.Verify(r.Context(), session)
			if err != nil {
				httputil.WriteUnauthorized(w, model.ErrInvalidSession.Error())
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware attaches claims when a valid session is present and
// otherwise lets the request through anonymously.
func OptionalAuthMiddleware(verifier SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromRequest(r)
			if session == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(r.Context(), session)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionFromRequest(r *http.Request) string {
	// 1. Authorization header (API clients)
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	// 2. Session cookie (browsers)
	if cookie, err := r.Cookie(model.SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// GetClaimsFromContext extracts the session claims from the request context
func GetClaimsFromContext(ctx context.Context) (*model.IdentityClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*model.IdentityClaims)
	return claims, ok && claims != nil
}

// GetUserUIDFromContext returns the caller's uid, or "" for anonymous requests
func GetUserUIDFromContext(ctx context.Context) string {
	if claims, ok := GetClaimsFromContext(ctx); ok {
		return claims.UID
	}
	return ""
}
