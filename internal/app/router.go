package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/useradmin/internal/auth"
	"github.com/odyssey-erp/useradmin/internal/observability"
	"github.com/odyssey-erp/useradmin/internal/platform/httpx"
	"github.com/odyssey-erp/useradmin/internal/users"
)

const readinessTimeout = 2 * time.Second

// ReadinessCheck probes one dependency for /readyz.
type ReadinessCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	AuthHandler    *auth.Handler
	UsersHandler   *users.Handler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
	Readiness      []ReadinessCheck
}

// NewRouter constructs the chi.Router with the default middleware stack.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, httpx.CodeNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, httpx.CodeMethodNotAllowed, "Method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readinessHandler(params.Logger, params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		authLimit := 20
		if params.Config != nil && params.Config.AuthRateLimitPerMinute > 0 {
			authLimit = params.Config.AuthRateLimitPerMinute
		}
		r.Route("/auth", func(r chi.Router) {
			r.Use(RateLimit(authLimit))
			params.AuthHandler.MountRoutes(r)
		})
	}
	if params.UsersHandler != nil && params.AuthMiddleware != nil {
		r.Route("/users", func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireUser)
			params.UsersHandler.MountRoutes(r)
		})
	}

	return r
}

func readinessHandler(logger *slog.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		var (
			mu     sync.Mutex
			failed []string
		)
		var g errgroup.Group
		for _, check := range checks {
			check := check
			g.Go(func() error {
				if err := check.Ping(ctx); err != nil {
					if logger != nil {
						logger.Warn("readiness check failed", slog.String("check", check.Name), slog.Any("error", err))
					}
					mu.Lock()
					failed = append(failed, check.Name)
					mu.Unlock()
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			sort.Strings(failed)
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
