package service

import (
	"context"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/graph"
)

// CheckHealth reports whether the store answers a single ping.
func (s *GraphService) CheckHealth(ctx context.Context) bool {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.DebugContext(ctx, "graph store health check failed", "error", err)
		return false
	}
	return true
}

// WarmUp pings the store with exponential backoff until it answers or maxAttempts is spent.
// maxAttempts <= 0 uses the configured policy; larger requests are capped.
func (s *GraphService) WarmUp(ctx context.Context, maxAttempts int) bool {
	policy := s.opts.RetryPolicy
	if maxAttempts > 0 {
		policy.MaxAttempts = min(maxAttempts, s.opts.MaxWarmUpAttempts)
	}

	err := graph.Retry(ctx, policy, func(ctx context.Context, attempt int) error {
		err := s.store.Ping(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "graph store not ready", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "graph store warm-up failed", "attempts", policy.MaxAttempts, "error", err)
		return false
	}
	return true
}
