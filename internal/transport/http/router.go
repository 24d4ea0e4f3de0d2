// Package httptransport assembles the HTTP surface: the shared middleware
// chain, every domain handler, and the operational endpoints.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lingkod/internal/platform/middleware"
)

// Registrar is implemented by every domain handler package.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports a dependency's liveness for /healthz.
type HealthChecker func() error

// NewRouter wires the middleware chain and mounts every handler. Domain
// handlers add their own auth requirements; the chain here covers the
// concerns shared by all routes.
func NewRouter(logger *slog.Logger, health HealthChecker, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Device)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if health != nil {
			if err := health(); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	for _, handler := range handlers {
		handler.Register(r)
	}
	return r
}
