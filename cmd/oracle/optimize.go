package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/oraclebot/internal/adapters/fixtures"
	"github.com/alejandrodnm/oraclebot/internal/adapters/notify"
	"github.com/alejandrodnm/oraclebot/internal/engine"
)

func newOptimizeCmd() *cobra.Command {
	var (
		synthetic bool
		seed      uint64
		workers   int
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run the three-tier combo search and validate on holdout",
		Long: `Loads resolved markets, splits off the most recent slice as holdout,
runs the tiered search on the rest and validates the best combos.

With --synthetic the run uses a generated dataset in an in-memory database
and leaves the configured database untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if workers > 0 {
				a.cfg.Engine.Workers = workers
			}

			if synthetic {
				if err := a.openStore(":memory:"); err != nil {
					return err
				}
				fcfg := fixtures.DefaultConfig()
				fcfg.Seed = seed
				stats, err := fixtures.Seed(ctx, a.store, fcfg)
				if err != nil {
					return err
				}
				slog.Info("synthetic dataset ready", "markets", stats.Markets, "bets", stats.Bets, "wallets", stats.Wallets)
			} else if err := a.openStore(""); err != nil {
				return err
			}

			a.serveMetrics(ctx)

			runner, err := a.newRunner()
			if err != nil {
				return err
			}
			optimizer, err := engine.NewOptimizer(a.cfg.OptimizerConfig(), runner, a.store)
			if err != nil {
				return err
			}
			pipeline := engine.NewPipeline(a.cfg.PipelineConfig(), a.store, runner, optimizer, a.store, notify.NewConsole())

			report, err := pipeline.Run(ctx)
			if err != nil {
				return fmt.Errorf("optimize: %w", err)
			}
			if best, ok := report.Best(); ok {
				slog.Info("optimize complete",
					"run_id", report.RunID,
					"best", best.Combo().Key(),
					"fitness", best.FitnessScore,
					"evaluated", report.Evaluated,
				)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&synthetic, "synthetic", false, "run against a generated in-memory dataset")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "generator seed for --synthetic")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel backtests (overrides config)")
	return cmd
}
