package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// RouterConfig carries everything the router needs to wire the API surface.
type RouterConfig struct {
	Auth     *AuthHandler
	Todos    *TodoHandler
	Sessions SessionResolver
	Logger   *slog.Logger
	// Checks maps a dependency name to its health probe; nil probes are
	// skipped so a memory-only deployment reports healthy.
	Checks map[string]HealthChecker
}

// NewRouter wires the public API under /api/v1 plus the operational
// endpoints at the root.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api/v1", func(api chi.Router) {
		cfg.Auth.Register(api)

		api.Group(func(protected chi.Router) {
			protected.Use(RequireSession(cfg.Sessions, cfg.Logger))
			protected.Get("/user/profile", cfg.Auth.HandleProfile)
			cfg.Todos.Register(protected)
		})
	})

	r.Get("/healthz", handleHealth(cfg.Checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks)+1)
		result["status"] = "ok"
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = "unreachable"
				result["status"] = "degraded"
				continue
			}
			result[name] = "ok"
		}
		writeJSON(w, status, result)
	}
}

// requestLogger emits one structured line per request after it completes.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
