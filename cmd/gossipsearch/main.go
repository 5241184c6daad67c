package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"GossipSearch/internal/app"
	"GossipSearch/internal/config"
	"GossipSearch/internal/domain"
	"GossipSearch/internal/logging"
)

func main() {
	// Missing .env is fine; API keys may come from the real environment.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "gossipsearch",
		Short:         "Semantic search over French gossip news",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config")

	root.AddCommand(newIngestCmd(&configPath))
	root.AddCommand(newSearchCmd(&configPath))
	return root
}

func newIngestCmd(configPath *string) *cobra.Command {
	var daemonMode bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch feeds, embed articles and upsert them into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(*configPath)
			logger := logging.New(cfg.Logging.Level)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if daemonMode {
				logger.Info("starting scheduled ingestion", "interval", cfg.Scheduler.IntervalDuration())
				return a.Daemon.Run(ctx)
			}

			summary, err := a.Ingest.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("attempted %d, succeeded %d, skipped %d, failed %d\n",
				summary.Attempted, summary.Succeeded, summary.Skipped, len(summary.Failed))
			for _, failure := range summary.Failed {
				fmt.Printf("  [%s] %s: %s\n", failure.Stage, failure.URL, failure.Reason)
			}

			if cfg.Ingest.ExitPolicy == config.ExitZeroTolerance && len(summary.Failed) > 0 {
				return fmt.Errorf("%d articles failed", len(summary.Failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&daemonMode, "daemon", false, "keep running and re-ingest on the configured interval")
	return cmd
}

func newSearchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query> [n]",
		Short: "Find the articles most similar to a query",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := 5
			if len(args) == 2 {
				parsed, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidK, args[1])
				}
				k = parsed
			}

			cfg := config.Load(*configPath)
			logger := logging.New(cfg.Logging.Level)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.Search.Run(ctx, args[0], k)
			if err != nil {
				if errors.Is(err, domain.ErrEmptyQuery) || errors.Is(err, domain.ErrInvalidK) {
					return err
				}
				return fmt.Errorf("search failed: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("no matching articles")
				return nil
			}

			printResults(results)
			return nil
		},
	}
}

func printResults(results []domain.Result) {
	for i, r := range results {
		fmt.Printf("%d. %s (score %.4f)\n", i+1, r.Title, r.Score)
		if r.Author != "" {
			fmt.Printf("   author: %s\n", r.Author)
		}
		if r.PublishedAt != "" {
			fmt.Printf("   published: %s\n", r.PublishedAt)
		}
		if r.Categories != "" {
			fmt.Printf("   categories: %s\n", r.Categories)
		}
		if r.Description != "" {
			fmt.Printf("   %s\n", r.Description)
		}
		if r.URL != "" {
			fmt.Printf("   url: %s\n", r.URL)
		}
		if len(r.Snippets) > 0 {
			fmt.Printf("   %s\n", strings.Join(r.Snippets, " ... "))
		}
		fmt.Println()
	}
}
