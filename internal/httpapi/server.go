// Package httpapi is the diagnostics surface shared by the poller and
// grader binaries: health checks against their dependencies and a
// Prometheus-less metrics snapshot for operators.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/driftline/sentry/internal/cache"
	"github.com/driftline/sentry/internal/config"
	"github.com/driftline/sentry/internal/history"
)

// Pinger is satisfied by the dependencies health checks verify.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MetricsSource supplies a point-in-time metrics snapshot for /metrics.
type MetricsSource func() map[string]interface{}

// Server wraps a chi router serving /health and /metrics.
type Server struct {
	router  chi.Router
	cache   Pinger
	history Pinger
	metrics MetricsSource
	log     zerolog.Logger
}

// New builds the diagnostics router.
func New(cfg config.HTTPConfig, c *cache.Cache, hist *history.Store, metrics MetricsSource, log zerolog.Logger) *Server {
	s := &Server{cache: c, history: hist, metrics: metrics, log: log.With().Str("subsystem", "httpapi").Logger()}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(10 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/metrics", s.metricsHandler)

	s.router = r
	return s
}

// Handler returns the router for use with http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.cache.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "cache unhealthy", err)
		return
	}
	if err := s.history.Ping(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, "history store unhealthy", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "sentry",
	})
}

func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := map[string]interface{}{}
	if s.metrics != nil {
		snapshot = s.metrics()
	}
	respondJSON(w, http.StatusOK, snapshot)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		return
	}
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	respondJSON(w, status, map[string]interface{}{
		"error":   message,
		"details": err.Error(),
	})
}
