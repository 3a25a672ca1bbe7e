// Package chi serves the optional run status endpoints.
package chi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querygen/internal/domain"
	"github.com/kailas-cloud/querygen/internal/metrics"
	healthuc "github.com/kailas-cloud/querygen/internal/usecase/health"
)

// ProgressReader returns the latest published run snapshot.
type ProgressReader interface {
	Snapshot() (domain.Progress, bool)
}

// Server exposes health, progress and metrics over HTTP.
type Server struct {
	health   *healthuc.Service
	progress ProgressReader
	logger   *zap.Logger
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewServer creates a status server.
func NewServer(health *healthuc.Service, progress ProgressReader, logger *zap.Logger) *Server {
	return &Server{health: health, progress: progress, logger: logger}
}

// Routes builds the router with recovery, request ID, access log and metrics middleware.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.Health)
	r.Get("/progress", s.Progress)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Progress handles GET /progress.
func (s *Server) Progress(w http.ResponseWriter, _ *http.Request) {
	p, ok := s.progress.Snapshot()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{
			Code:    "not_ready",
			Message: "run has not loaded the aggregate yet",
		})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
