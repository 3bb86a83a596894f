package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/oraclebot/internal/adapters/notify"
	"github.com/alejandrodnm/oraclebot/internal/domain"
)

func newBacktestCmd() *cobra.Command {
	var (
		cutoff float64
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "backtest <combo>",
		Short: "Backtest a single combo, e.g. \"S1,T17,D5\"",
		Long: `Backtests one combo over every resolved market in the database.
Method ids run in the given order; a filter detector narrows the bets
seen by the detectors after it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadAppWithStore(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			combo := domain.ParseCombo(args[0])
			if err := a.registry.ValidateCombo(combo); err != nil {
				return err
			}
			if cutoff == 0 {
				cutoff = a.cfg.Engine.CutoffFraction
			}

			runner, err := a.newRunner()
			if err != nil {
				return err
			}
			ds, err := a.store.LoadResolved(ctx, a.cfg.Engine.MinTotalBets)
			if err != nil {
				return err
			}
			slog.Info("backtesting", "combo", combo.Key(), "markets", len(ds.Markets), "cutoff", cutoff)

			result, err := runner.BacktestAt(combo, ds, cutoff)
			if err != nil {
				return fmt.Errorf("backtest %s: %w", combo.Key(), err)
			}
			if save {
				if err := a.store.Upsert(ctx, result); err != nil {
					return err
				}
			}
			return notify.NewConsole().ReportTop(ctx, []domain.ComboResult{result})
		},
	}
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "visible fraction of market lifespan (default from config)")
	cmd.Flags().BoolVar(&save, "save", false, "store the result in method_results")
	return cmd
}
