package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/printquote/internal/catalog"
	"github.com/noah-isme/printquote/internal/health"
	"github.com/noah-isme/printquote/internal/obs"
	"github.com/noah-isme/printquote/internal/quote"
	"github.com/noah-isme/printquote/internal/ratelimit"
	"github.com/noah-isme/printquote/internal/security"
	"github.com/noah-isme/printquote/internal/storage"
)

// formOverhead leaves room for the non-file multipart fields on top of the model size.
const formOverhead = 1 << 20

// RouterOptions toggles the observability surface.
type RouterOptions struct {
	Tracing     bool
	Metrics     bool
	HTTPMetrics *obs.HTTPMetrics
	// Pprof is mounted at /debug/pprof when set.
	Pprof http.Handler
}

// Router builds the HTTP surface.
func (d *Dependencies) Router(opts RouterOptions) http.Handler {
	cfg := d.Config
	quoteHandler := quote.NewHandler(d.Quotes, cfg.ModelMaxBytes, d.Logger)
	var presigner storage.Presigner
	if d.Objects != nil {
		presigner = d.Objects
	}
	presignHandler := storage.NewPresignHandler(presigner, cfg.S3PresignTTL, d.Logger)
	catalogHandler := catalog.Handler{Catalog: d.Catalog}
	limit := ratelimit.Handler{
		Limiter: d.Limiter,
		Key:     ratelimit.ClientKey,
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics && opts.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Quote-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:         300,
	}))
	r.Use(security.Headers{
		Enable:                cfg.SecurityHeadersEnabled,
		EnableHSTS:            cfg.SecurityHSTSEnabled,
		HSTSMaxAge:            31536000,
		HSTSIncludeSubdomains: true,
		CSPExemptPrefixes:     []string{"/debug/pprof"},
	}.Middleware)

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if opts.Pprof != nil {
		r.Mount("/debug/pprof", opts.Pprof)
	}

	healthHandler := health.Handler{
		Checker:        readinessChecker{redis: d.Redis, objects: d.Objects},
		RedisTimeout:   300 * time.Millisecond,
		StorageTimeout: time.Second,
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api", func(api chi.Router) {
		api.Get("/filaments", catalogHandler.Filaments)
		api.Post("/generate-presigned-url", presignHandler.Presign)
		api.Group(func(g chi.Router) {
			g.Use(limit.Middleware)
			g.Use(security.BodyLimit{Max: cfg.ModelMaxBytes + formOverhead}.Middleware)
			g.Post("/quote", quoteHandler.Quote)
		})
	})
	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
