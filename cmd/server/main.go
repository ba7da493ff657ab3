package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/auth"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/bootstrap"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/config"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/logging"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/server"
)

func main() {
	flags := pflag.NewFlagSet("graph-server", pflag.ExitOnError)
	config.RegisterFlags(flags)
	recordsPath := flags.String("records", "", "JSON or YAML dataset used by rebuild requests without a body")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open graph store", "error", err)
		os.Exit(1)
	}
	defer rt.Close(context.Background())

	var source records.Source
	if *recordsPath != "" {
		source = records.NewFileSource(*recordsPath)
	}

	deps := server.RouterDependencies{
		Health:           rt.Service,
		API:              server.NewAPIHandlers(logger, rt.Service, source),
		Guard:            buildGuard(logger, cfg.Auth),
		Metrics:          rt.Metrics,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowCredentials: cfg.HTTP.AllowCredentials,
	}
	if cfg.HTTP.MetricsEnabled {
		deps.Gatherer = rt.Registry
	}
	srv := server.New(logger, cfg.HTTP, server.NewRouter(logger, deps))
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped unexpectedly", "error", err)
		rt.Close(context.Background())
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func buildGuard(logger *slog.Logger, cfg config.AuthConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		logger.Warn("authentication disabled; graph routes are open")
		return nil
	}
	mw := auth.NewMiddleware(
		auth.NewJWTVerifier(cfg.JWTSecret, cfg.Issuer),
		auth.NewStaticAdmins(cfg.AdminIDs),
		logger,
		server.WriteError(logger),
	)
	return mw.RequireAdmin
}
