package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
)

// GraphService is the behaviour the graph routes depend on.
type GraphService interface {
	Rebuild(ctx context.Context, applications []domain.ApplicationRecord, namesByID map[string]string) (domain.GraphCounts, error)
	RebuildFromSource(ctx context.Context, src records.Source) (domain.GraphCounts, error)
	FindChains(ctx context.Context, maxLength int) ([]domain.Chain, error)
	ListEdges(ctx context.Context) ([]domain.EdgeSummary, error)
	Counts(ctx context.Context) (domain.GraphCounts, error)
	Summary(ctx context.Context) (domain.GraphSummary, error)
}

// maxRebuildBody caps rebuild payloads.
const maxRebuildBody = 32 << 20

// APIHandlers exposes HTTP handlers for the graph API.
type APIHandlers struct {
	logger  *slog.Logger
	service GraphService
	source  records.Source
}

// NewAPIHandlers constructs an APIHandlers instance. source may be nil; when set, a rebuild
// request without a body loads its records from it.
func NewAPIHandlers(logger *slog.Logger, svc GraphService, source records.Source) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		service: svc,
		source:  source,
	}
}

// rebuildRequest is decoded strictly; each application is decoded on its own so exports
// carrying extra record-store columns are accepted.
type rebuildRequest struct {
	Applications *[]json.RawMessage `json:"applications"`
	NamesByID    map[string]string  `json:"namesById"`
}

func (p rebuildRequest) records() ([]domain.ApplicationRecord, error) {
	out := make([]domain.ApplicationRecord, len(*p.Applications))
	for i, raw := range *p.Applications {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, apperror.Validation("invalid application record").WithDetails(map[string]any{
				"index":  i,
				"reason": err.Error(),
			})
		}
	}
	return out, nil
}

type chainsResponse struct {
	Chains []domain.Chain `json:"chains"`
}

type relationshipsResponse struct {
	Relationships []domain.EdgeSummary `json:"relationships"`
}

func (h *APIHandlers) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxRebuildBody)
	}

	var payload rebuildRequest
	err := decodeJSON(r, &payload)
	switch {
	case errors.Is(err, io.EOF) && h.source != nil:
		counts, err := h.service.RebuildFromSource(r.Context(), h.source)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, counts)
		return
	case errors.Is(err, io.EOF):
		h.writeError(w, r, apperror.Validation("request body is required"))
		return
	case err != nil:
		h.writeError(w, r, apperror.Validation("invalid request body").WithDetails(map[string]any{"reason": err.Error()}))
		return
	}
	if payload.Applications == nil {
		h.writeError(w, r, apperror.Validation("applications must be a list"))
		return
	}

	applications, err := payload.records()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	counts, err := h.service.Rebuild(r.Context(), applications, payload.NamesByID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (h *APIHandlers) handleChains(w http.ResponseWriter, r *http.Request) {
	maxLength, err := parseInt(r.URL.Query().Get("maxLength"), 0)
	if err != nil {
		h.writeError(w, r, apperror.Validation("maxLength must be an integer"))
		return
	}

	chains, err := h.service.FindChains(r.Context(), maxLength)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if chains == nil {
		chains = []domain.Chain{}
	}
	respondJSON(w, http.StatusOK, chainsResponse{Chains: chains})
}

func (h *APIHandlers) handleRelationships(w http.ResponseWriter, r *http.Request) {
	edges, err := h.service.ListEdges(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if edges == nil {
		edges = []domain.EdgeSummary{}
	}
	respondJSON(w, http.StatusOK, relationshipsResponse{Relationships: edges})
}

func (h *APIHandlers) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Counts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, counts)
}

func (h *APIHandlers) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if summary.Relationships == nil {
		summary.Relationships = []domain.EdgeSummary{}
	}
	respondJSON(w, http.StatusOK, summary)
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(h.logger, w, r, err)
}

// writeError renders err as the JSON error envelope. 5xx causes are logged, never returned.
func writeError(logger *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, body := apperror.ToHTTP(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	if apperror.IsRetryable(err) {
		w.Header().Set("Retry-After", "5")
	}
	respondJSON(w, status, body)
}

// WriteError adapts writeError for middleware living outside this package.
func WriteError(logger *slog.Logger) func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		writeError(logger, w, r, err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseInt(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}
