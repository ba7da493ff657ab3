package service

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
)

// ListEdges returns every candidacy edge sorted by (fromLabel, toLabel).
func (s *GraphService) ListEdges(ctx context.Context) ([]domain.EdgeSummary, error) {
	edges, err := s.store.ListEdges(ctx)
	if err != nil {
		return nil, s.storeError(ctx, "list_edges", err)
	}
	sortEdges(edges)
	return edges, nil
}

// Counts returns the current node and edge totals.
func (s *GraphService) Counts(ctx context.Context) (domain.GraphCounts, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return domain.GraphCounts{}, s.storeError(ctx, "counts", err)
	}
	return counts, nil
}

// Summary fetches counts and the edge listing concurrently.
func (s *GraphService) Summary(ctx context.Context) (domain.GraphSummary, error) {
	var summary domain.GraphSummary

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.Counts(gctx)
		summary.Counts = counts
		return err
	})
	g.Go(func() error {
		edges, err := s.ListEdges(gctx)
		summary.Relationships = edges
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.GraphSummary{}, err
	}
	return summary, nil
}

func sortEdges(edges []domain.EdgeSummary) {
	sort.SliceStable(edges, func(i, j int) bool {
		if edges[i].FromLabel != edges[j].FromLabel {
			return edges[i].FromLabel < edges[j].FromLabel
		}
		return edges[i].ToLabel < edges[j].ToLabel
	})
}
