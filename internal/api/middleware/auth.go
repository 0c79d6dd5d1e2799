package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/shellgame/internal/api/apierr"
)

type contextKey string

const usernameContextKey contextKey = "username"

// TokenParser resolves a login token to its username
type TokenParser interface {
	ParseToken(token string) (string, error)
}

// OptionalAuth attaches the token's username to the context when a bearer
// token is sent. Requests without one pass through unauthenticated; a token
// that does not parse is rejected with 401.
func OptionalAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			username, err := parser.ParseToken(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), usernameContextKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the bearer token from the request
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// GetUsername returns the authenticated username, or "" for anonymous requests
func GetUsername(ctx context.Context) string {
	username, _ := ctx.Value(usernameContextKey).(string)
	return username
}

// AuthorizeUsername checks that an authenticated request acts only for its own username
func AuthorizeUsername(ctx context.Context, username string) error {
	authenticated := GetUsername(ctx)
	if authenticated != "" && authenticated != username {
		return apierr.NewTokenMismatchError()
	}
	return nil
}
