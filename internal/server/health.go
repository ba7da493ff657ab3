package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	CheckHealth(ctx context.Context) bool
	WarmUp(ctx context.Context, maxAttempts int) bool
}

type readyResponse struct {
	Status string `json:"status"`
	Ready  bool   `json:"ready"`
}

func healthHandler(logger *slog.Logger, health HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if health == nil || health.CheckHealth(ctx) {
			respondJSON(w, http.StatusOK, readyResponse{Status: "ok", Ready: true})
			return
		}
		logger.WarnContext(ctx, "health probe failed")
		respondJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "degraded", Ready: false})
	}
}

func warmUpHandler(logger *slog.Logger, health HealthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		attempts, err := parseInt(r.URL.Query().Get("maxAttempts"), 0)
		if err != nil || attempts < 0 {
			writeError(logger, w, r, apperror.Validation("maxAttempts must be a non-negative integer"))
			return
		}

		if health.WarmUp(r.Context(), attempts) {
			respondJSON(w, http.StatusOK, readyResponse{Status: "ok", Ready: true})
			return
		}
		w.Header().Set("Retry-After", "5")
		respondJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "degraded", Ready: false})
	}
}
