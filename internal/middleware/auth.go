package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const BearerTokenKey contextKey = "bearer_token"

// BearerToken middleware extracts the caller's bearer credential from the
// Authorization header. The token is not validated here; it is forwarded
// verbatim to the local backend, which owns authentication.
func BearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			log.Warn().Str("path", r.URL.Path).Msg("Missing Authorization header")
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			log.Warn().Str("path", r.URL.Path).Msg("Empty bearer token")
			http.Error(w, "Invalid Authorization header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), BearerTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetBearerToken extracts the bearer token from context
func GetBearerToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(BearerTokenKey).(string)
	return token, ok
}
