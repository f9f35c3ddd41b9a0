package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMiddleware adds CORS headers to responses using rs/cors library.
// The API is read/create only, so mutation verbs beyond POST are not allowed.
func CORSMiddleware(next http.Handler) http.Handler {
	c := cors.New(cors.Options{
		// Allow all origins dynamically to support credentials
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"X-API-Key",
			"Accept",
			"Origin",
			"X-Requested-With",
			"X-Correlation-Id",
			// OpenTelemetry headers
			"traceparent",
			"tracestate",
			"baggage",
		},
		AllowCredentials: true,
	})

	return c.Handler(next)
}
