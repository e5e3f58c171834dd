package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quizhive/quizhive/internal/api/handler"
	apimw "github.com/quizhive/quizhive/internal/api/middleware"
	"github.com/quizhive/quizhive/internal/digest"
	"github.com/quizhive/quizhive/internal/loader"
	"github.com/quizhive/quizhive/internal/messenger"
	"github.com/quizhive/quizhive/internal/repository"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	store repository.Store,
	msgr messenger.Messenger,
	scheduler *digest.Scheduler,
	hooks loader.Hooks,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	qh := handler.NewQuizHandler(logger)
	wh := handler.NewWindowHandler(logger)
	dh := handler.NewDigestHandler(scheduler)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Every data route gets a fresh per-request loader registry,
		// built after the principal is resolved.
		r.Use(apimw.Principal(store, logger))
		r.Use(apimw.Loaders(store, msgr, hooks))

		r.Get("/quizzes/{id}", qh.GetByID)
		r.Get("/instances/{id}/seasons", wh.ListSeasons)
		r.Get("/users/{id}/grades", wh.ListGrades)

		r.Get("/digest/status", dh.Status)
	})

	return r
}
