package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/graph"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/metrics"
)

// LongestChain is the largest number of candidacy edges a chain may have.
const LongestChain = 10

// GraphStore is the persistence contract required by the graph service.
type GraphStore interface {
	ReplaceGraph(ctx context.Context, people []domain.Person, edges []domain.CandidacyEdge) (domain.GraphCounts, error)
	CandidacyCycles(ctx context.Context, maxLength int) ([]domain.CycleWalk, error)
	ListEdges(ctx context.Context) ([]domain.EdgeSummary, error)
	Counts(ctx context.Context) (domain.GraphCounts, error)
	Ping(ctx context.Context) error
}

// Options tunes a GraphService. Zero values fall back to defaults.
type Options struct {
	// DefaultChainLength is used when a caller does not ask for a specific bound.
	DefaultChainLength int
	// MaxWarmUpAttempts caps the attempts a caller may request from WarmUp.
	MaxWarmUpAttempts int
	RetryPolicy       graph.RetryPolicy
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
}

// GraphService rebuilds the candidacy graph and answers chain and summary queries.
// Rebuilds are serialised; reads run concurrently with each other.
type GraphService struct {
	store   GraphStore
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	rebuildMu sync.Mutex
}

// NewGraphService constructs a GraphService over the supplied store.
func NewGraphService(store GraphStore, opts Options) *GraphService {
	if opts.DefaultChainLength <= 0 || opts.DefaultChainLength > LongestChain {
		opts.DefaultChainLength = LongestChain
	}
	if opts.DefaultChainLength < 2 {
		opts.DefaultChainLength = 2
	}
	if opts.MaxWarmUpAttempts <= 0 {
		opts.MaxWarmUpAttempts = 20
	}
	if opts.RetryPolicy.MaxAttempts <= 0 {
		opts.RetryPolicy = graph.DefaultRetryPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphService{
		store:   store,
		opts:    opts,
		logger:  logger.With("component", "graph-service"),
		metrics: opts.Metrics,
	}
}

// storeError maps a store failure onto the error taxonomy, logging query failures with their cause.
func (s *GraphService) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, graph.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		s.logger.WarnContext(ctx, "graph store unavailable", "op", op, "error", err)
		return apperror.ErrStoreUnavailable.WithInternal(err)
	default:
		s.logger.ErrorContext(ctx, "graph store query failed", "op", op, "error", err)
		return apperror.ErrStoreQuery.WithInternal(err)
	}
}
