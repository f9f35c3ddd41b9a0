package middleware

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/atalho/internal/constants"
	"github.com/IgorGrieder/atalho/pkg/httputils"
)

// APIKeyHeader carries the caller's opaque owner identity. The core treats
// the key purely as an owner id; issuing keys is someone else's problem.
const APIKeyHeader = "X-API-Key"

// Chain applies middlewares right to left, so the first listed runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

func APIKeyMiddleware(allowedKeys []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedKeys))
	for _, k := range allowedKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		allowed[k] = struct{}{}
	}

	// If no keys are configured, run open (MVP convenience).
	if len(allowed) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if apiKey == "" {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			if _, ok := allowed[apiKey]; !ok {
				httputils.WriteAPIError(w, r, constants.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// OwnerID derives the opaque owner identity for the request.
func OwnerID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(APIKeyHeader))
}
