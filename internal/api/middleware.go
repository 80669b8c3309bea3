// Package api implements the noteflow REST API using chi.
package api

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// WithUser returns a copy of ctx carrying the authenticated user id.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the authenticated user id stored in ctx.
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(ctxKey{}).(string)
	return user
}

// Auth describes how requests are mapped to users.
// If Enabled is false every request acts as DefaultUser (disabled mode).
// If Enabled is true the "Authorization: Bearer <token>" header must name a
// token present in Tokens.
type Auth struct {
	Enabled     bool
	Tokens      map[string]string
	DefaultUser string
}

// AuthMiddleware resolves the caller and stores it in the request context.
func AuthMiddleware(auth Auth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !auth.Enabled {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), auth.DefaultUser)))
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			user := auth.Tokens[token]
			if !ok || token == "" || user == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
