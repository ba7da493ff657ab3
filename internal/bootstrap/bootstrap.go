// Package bootstrap wires the configured graph store into a GraphService for the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/config"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/graph"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/metrics"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/repository"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/service"
)

// Runtime owns the store handle and the service built on it.
type Runtime struct {
	Service  *service.GraphService
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	client   graph.Client
	logger   *slog.Logger
}

// Open builds the store selected by cfg.Graph.Driver. For neo4j it waits for connectivity
// using the configured warm-up policy; a store that never answers is an error.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	policy := RetryPolicy(cfg.Graph)
	rt := &Runtime{Registry: reg, logger: logger}

	var store service.GraphStore
	switch cfg.Graph.Driver {
	case config.DriverMemory:
		logger.Info("using in-memory graph store")
		store = repository.NewInMemory()
	case config.DriverNeo4j:
		client, err := graph.NewNeo4jClient(graph.Options{
			URI:            cfg.Graph.URI,
			Database:       cfg.Graph.Database,
			Username:       cfg.Graph.Username,
			Password:       cfg.Graph.Password,
			MaxConnections: cfg.Graph.MaxConnections,
		})
		if err != nil {
			return nil, fmt.Errorf("create graph client: %w", err)
		}
		rt.client = client
		if err := graph.WarmUp(ctx, client, policy, logger.With("component", "warmup")); err != nil {
			rt.Close(context.Background())
			return nil, fmt.Errorf("graph store not ready: %w", err)
		}
		store = repository.New(client)
	default:
		return nil, fmt.Errorf("unknown graph driver %q", cfg.Graph.Driver)
	}

	rt.Metrics = metrics.New(reg)
	rt.Service = service.NewGraphService(store, service.Options{
		DefaultChainLength: cfg.Chains.MaxLength,
		RetryPolicy:        policy,
		Logger:             logger,
		Metrics:            rt.Metrics,
	})
	return rt, nil
}

// RetryPolicy derives the store warm-up policy from config.
func RetryPolicy(cfg config.GraphConfig) graph.RetryPolicy {
	return graph.RetryPolicy{
		MaxAttempts:  cfg.WarmUpAttempts,
		InitialDelay: cfg.WarmUpInitialDelay,
		MaxDelay:     cfg.WarmUpMaxDelay,
	}
}

// Close releases the store connection, if any.
func (r *Runtime) Close(ctx context.Context) {
	if r.client == nil {
		return
	}
	if err := r.client.Close(ctx); err != nil {
		r.logger.Warn("closing graph client failed", "error", err)
	}
}
