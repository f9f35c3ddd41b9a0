package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/IgorGrieder/atalho/internal/config"
	"github.com/IgorGrieder/atalho/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/atalho/internal/processing/links"
	"github.com/IgorGrieder/atalho/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var spanNames = map[string]string{
	"GET /health":               "health",
	"GET /metrics":              "metrics",
	"POST /api/links":           "links.create",
	"GET /api/links":            "links.list",
	"GET /api/links/{id}/stats": "links.stats",
	"GET /api/links/{id}/qr":    "links.qr",
	"GET /{slug}":               "links.redirect",
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, linkService *links.Service, recorder *links.Recorder) http.Handler {
	return NewRouterWithOptions(cfg, linkService, recorder, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linkService *links.Service, recorder *links.Recorder, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler()
	linksHandler := NewLinksHandler(cfg, linkService, recorder)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	ownerMiddleware := middleware.APIKeyMiddleware(cfg.Security.APIKeys)
	createLimiter := middleware.NewFixedWindowLimiter(cfg.Security.CreateRate.RequestsPerMinute, time.Minute)

	mux.Handle("POST /api/links", middleware.Chain(
		http.HandlerFunc(linksHandler.Create),
		ownerMiddleware,
		middleware.RateLimitMiddleware(createLimiter),
	))
	mux.Handle("GET /api/links", middleware.Chain(
		http.HandlerFunc(linksHandler.List),
		ownerMiddleware,
	))
	mux.Handle("GET /api/links/{id}/stats", middleware.Chain(
		http.HandlerFunc(linksHandler.Stats),
		ownerMiddleware,
	))
	mux.Handle("GET /api/links/{id}/qr", middleware.Chain(
		http.HandlerFunc(linksHandler.QRCode),
		ownerMiddleware,
	))

	mux.HandleFunc("GET /{slug}", linksHandler.Redirect)

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			key := r.Method + " " + r.Pattern
			if name, ok := spanNames[key]; ok {
				return name
			}
			if r.Pattern != "" {
				return r.Pattern
			}
			path := strings.TrimSpace(r.URL.Path)
			if path == "" {
				path = "/"
			}
			return path
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}
