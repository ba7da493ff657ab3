package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/bootstrap"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/config"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/generator"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/logging"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
)

var errNotReady = errors.New("graph store not ready")

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "graphctl",
		Short:         "Operate the candidacy graph from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newRebuildCommand(),
		newChainsCommand(),
		newEdgesCommand(),
		newCountsCommand(),
		newSummaryCommand(),
		newWarmUpCommand(),
		newGenerateCommand(),
		newWatchCommand(),
	)
	return root
}

// openRuntime loads config for a command and opens the store. The CLI talks to the store
// directly, so HTTP authentication settings do not apply.
func openRuntime(cmd *cobra.Command) (*bootstrap.Runtime, *slog.Logger, error) {
	flags := cmd.Flags()
	if f := flags.Lookup("auth.enabled"); f != nil && !f.Changed {
		_ = flags.Set("auth.enabled", "false")
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging).With("component", "graphctl")

	rt, err := bootstrap.Open(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return rt, logger, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func newRebuildCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Reset the graph and rebuild it from a dataset file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			counts, err := rt.Service.RebuildFromSource(cmd.Context(), records.NewFileSource(file))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), counts)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON or YAML dataset")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newChainsCommand() *cobra.Command {
	var (
		file      string
		maxLength int
	)
	cmd := &cobra.Command{
		Use:   "chains",
		Short: "List interlocking candidacy chains",
		Long: `List interlocking candidacy chains in the current graph.

With --file the graph is rebuilt from the dataset first, which makes the
command usable offline together with --graph.driver=memory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			if file != "" {
				if _, err := rt.Service.RebuildFromSource(cmd.Context(), records.NewFileSource(file)); err != nil {
					return err
				}
			}
			chains, err := rt.Service.FindChains(cmd.Context(), maxLength)
			if err != nil {
				return err
			}
			if chains == nil {
				chains = []domain.Chain{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"chains": chains})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "rebuild from this dataset before searching")
	cmd.Flags().IntVar(&maxLength, "max-length", 0, "longest chain to report (default from config)")
	return cmd
}

func newEdgesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edges",
		Short: "List every candidacy edge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			edges, err := rt.Service.ListEdges(cmd.Context())
			if err != nil {
				return err
			}
			if edges == nil {
				edges = []domain.EdgeSummary{}
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"relationships": edges})
		},
	}
}

func newCountsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Print node and edge counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			counts, err := rt.Service.Counts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), counts)
		},
	}
}

func newSummaryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print counts and edges together",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			summary, err := rt.Service.Summary(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
}

func newWarmUpCommand() *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Wait until the graph store answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, _, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			ready := rt.Service.WarmUp(cmd.Context(), attempts)
			if err := printJSON(cmd.OutOrStdout(), map[string]bool{"ready": ready}); err != nil {
				return err
			}
			if !ready {
				return errNotReady
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 0, "connectivity attempts (default from config)")
	return cmd
}

func newGenerateCommand() *cobra.Command {
	cfg := generator.DefaultConfig()
	var out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic dataset with planted chains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			dataset, err := generator.New(cfg).Generate(ctx)
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}
			if out == "" || out == "-" {
				return generator.Encode(cmd.OutOrStdout(), dataset, ".json")
			}
			if err := generator.WriteDataset(dataset, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Generated %d users and %d applications into %s\n", len(dataset.Users), len(dataset.Applications), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output file (.json, .yaml); stdout when empty")
	f.IntVar(&cfg.NumUsers, "users", cfg.NumUsers, "number of users")
	f.IntVar(&cfg.MaxApplicationsPerUser, "max-applications", cfg.MaxApplicationsPerUser, "random applications per active user, at most")
	f.IntVar(&cfg.Rings, "rings", cfg.Rings, "number of planted chains")
	f.IntVar(&cfg.RingMaxLength, "ring-max-length", cfg.RingMaxLength, "largest planted chain")
	f.Float64Var(&cfg.NullPriorityChance, "null-priority-chance", cfg.NullPriorityChance, "probability an application has no priority")
	f.Float64Var(&cfg.MissingNameChance, "missing-name-chance", cfg.MissingNameChance, "probability a user has no name")
	f.Float64Var(&cfg.InactiveChance, "inactive-chance", cfg.InactiveChance, "probability a user files no random applications")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for deterministic generation")
	return cmd
}

func newWatchCommand() *cobra.Command {
	var (
		file  string
		quiet time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the graph whenever a dataset file changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			rt, logger, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close(context.Background())

			src := records.NewFileSource(file)
			rebuild := func(ctx context.Context) {
				counts, err := rt.Service.RebuildFromSource(ctx, src)
				if err != nil {
					logger.Error("rebuild failed", "path", file, "error", err)
					return
				}
				chains, err := rt.Service.FindChains(ctx, 0)
				if err != nil {
					logger.Error("chain search failed", "error", err)
					return
				}
				logger.Info("graph refreshed", "nodes", counts.NodeCount, "edges", counts.EdgeCount, "chains", len(chains))
			}

			if _, err := os.Stat(file); err == nil {
				rebuild(ctx)
			}
			return records.Watch(ctx, file, quiet, logger, rebuild)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "dataset to watch")
	cmd.Flags().DurationVar(&quiet, "quiet", 250*time.Millisecond, "wait this long after the last change before rebuilding")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
