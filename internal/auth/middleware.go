package auth

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity attached by Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}

// Middleware rejects requests without a valid bearer token.
// onError writes the failure response so callers can keep their own envelope.
func Middleware(tokens *TokenService, onError func(w http.ResponseWriter, status int, msg string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				onError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			id, err := tokens.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				onError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole allows only callers holding one of roles.
func RequireRole(onError func(w http.ResponseWriter, status int, msg string), roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := FromContext(r.Context())
			if !ok {
				onError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if _, ok := allowed[id.Role]; !ok {
				onError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
