package chi

import (
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/wfassist/internal/metrics"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	APIKeys []string
	// RequestTimeout bounds non-generation routes. Zero disables it.
	RequestTimeout time.Duration
	// GenerateRPS and GenerateBurst throttle /v1/generate per client. Zero RPS disables it.
	GenerateRPS   float64
	GenerateBurst int
	Logger        *zap.Logger
}

// NewRouter mounts the API routes with the middleware chain.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gochi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r gochi.Router) {
		r.Group(func(r gochi.Router) {
			if cfg.RequestTimeout > 0 {
				r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
			}
			r.Get("/examples", s.ListExamples)
			r.Get("/examples/search", s.SearchExamples)
			r.Get("/examples/{id}", s.GetExample)
			r.Get("/schema", s.GetSchema)
			r.Post("/validate", s.Validate)
			r.Post("/admin/reload", s.Reload)
		})
		// Generation waits on the completion provider, which has its own timeout.
		r.With(RateLimitMiddleware(cfg.GenerateRPS, cfg.GenerateBurst)).Post("/generate", s.Generate)
	})

	return r
}
