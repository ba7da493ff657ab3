package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/metrics"
)

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health           HealthService
	API              *APIHandlers
	Guard            func(http.Handler) http.Handler
	Metrics          *metrics.Metrics
	Gatherer         prometheus.Gatherer
	AllowedOrigins   []string
	AllowCredentials bool
}

// NewRouter wires the HTTP routes exposed by the graph service.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	r := mux.NewRouter()
	// mux skips r.Use middleware for requests that match no route, so its error handlers
	// are instrumented directly.
	instrument := metricsMiddleware(deps.Metrics)
	r.NotFoundHandler = instrument(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(logger, w, req, apperror.ErrNotFound)
	}))
	r.MethodNotAllowedHandler = instrument(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(logger, w, req, apperror.New(http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed"))
	}))
	r.Use(instrument)

	r.HandleFunc("/healthz", healthHandler(logger, deps.Health)).Methods(http.MethodGet)
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	graph := r.PathPrefix("/graph").Subrouter()
	if deps.Guard != nil {
		graph.Use(deps.Guard)
	}
	if deps.API != nil {
		graph.HandleFunc("/rebuild", deps.API.handleRebuild).Methods(http.MethodPost)
		graph.HandleFunc("/chains", deps.API.handleChains).Methods(http.MethodGet)
		graph.HandleFunc("/relationships", deps.API.handleRelationships).Methods(http.MethodGet)
		graph.HandleFunc("/counts", deps.API.handleCounts).Methods(http.MethodGet)
		graph.HandleFunc("/summary", deps.API.handleSummary).Methods(http.MethodGet)
	}
	if deps.Health != nil {
		graph.HandleFunc("/warmup", warmUpHandler(logger, deps.Health)).Methods(http.MethodPost)
	}

	handler := loggingMiddleware(logger, r)
	if policy := newCORSPolicy(deps.AllowedOrigins, deps.AllowCredentials); policy != nil {
		handler = policy.wrap(handler)
	}
	return requestIDMiddleware(handler)
}
