package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/apperror"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
)

// FindChains enumerates interlocking candidacy cycles of 2..maxLength edges.
// A non-positive maxLength selects the configured default. Chains are deduplicated by
// their sorted label set and returned ascending by length, ties in discovery order.
func (s *GraphService) FindChains(ctx context.Context, maxLength int) ([]domain.Chain, error) {
	if maxLength <= 0 {
		maxLength = s.opts.DefaultChainLength
	}
	if maxLength < 2 || maxLength > LongestChain {
		return nil, apperror.Validation(fmt.Sprintf("maxLength must be between 2 and %d", LongestChain)).
			WithDetails(map[string]any{"maxLength": maxLength})
	}

	started := time.Now()
	walks, err := s.store.CandidacyCycles(ctx, maxLength)
	if err != nil {
		return nil, s.storeError(ctx, "find_chains", err)
	}

	chains := collapseWalks(walks, maxLength)
	s.metrics.ObserveChainSearch(started, len(chains))
	s.logger.DebugContext(ctx, "chains found",
		"max_length", maxLength,
		"walks", len(walks),
		"chains", len(chains),
		"duration", time.Since(started),
	)
	return chains, nil
}

// collapseWalks turns raw store walks into deduplicated, ordered chains.
func collapseWalks(walks []domain.CycleWalk, maxLength int) []domain.Chain {
	chains := make([]domain.Chain, 0, len(walks))
	seen := make(map[string]struct{}, len(walks))

	for _, w := range walks {
		n := len(w.People)
		if n < 2 || n > maxLength || len(w.Priorities) != n {
			continue
		}

		labels := make([]string, n)
		for i, p := range w.People {
			labels[i] = p.Label()
		}
		key := canonicalKey(labels)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		chains = append(chains, domain.Chain{
			People:      labels,
			Length:      n,
			AvgPriority: averagePriority(w.Priorities),
		})
	}

	sort.SliceStable(chains, func(i, j int) bool {
		return chains[i].Length < chains[j].Length
	})
	return chains
}

// canonicalKey identifies a chain by the set of people it visits, ignoring order.
// Two different cycles over the same people share a key and only the first is kept.
func canonicalKey(labels []string) string {
	sorted := append([]string(nil), labels...)
	sort.Strings(sorted)
	return strings.Join(sorted, "|")
}

// averagePriority is the mean rounded to two decimals, nil if any priority is nil.
func averagePriority(priorities []*float64) *float64 {
	if len(priorities) == 0 {
		return nil
	}
	var sum float64
	for _, p := range priorities {
		if p == nil {
			return nil
		}
		sum += *p
	}
	avg := math.Round(sum/float64(len(priorities))*100) / 100
	return &avg
}
