package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/oraclebot/internal/adapters/fixtures"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadAppWithStore(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			markets, bets, wallets, err := a.store.Counts(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("database ready",
				"dsn", a.cfg.Storage.DSN,
				"markets", markets,
				"bets", bets,
				"wallets", wallets,
			)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	fcfg := fixtures.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with a deterministic synthetic dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadAppWithStore(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := fixtures.Seed(cmd.Context(), a.store, fcfg)
			if err != nil {
				return err
			}
			slog.Info("seed complete",
				"markets", stats.Markets,
				"bets", stats.Bets,
				"new_bets", stats.NewBets,
				"wallets", stats.Wallets,
			)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&fcfg.Seed, "seed", fcfg.Seed, "generator seed")
	cmd.Flags().IntVar(&fcfg.Markets, "markets", fcfg.Markets, "markets to generate")
	cmd.Flags().IntVar(&fcfg.BetsPerMarket, "bets", fcfg.BetsPerMarket, "mean bets per market")
	cmd.Flags().IntVar(&fcfg.Wallets, "wallets", fcfg.Wallets, "wallets to generate")
	cmd.Flags().Float64Var(&fcfg.InsiderShare, "insiders", fcfg.InsiderShare, "share of insider wallets")
	cmd.Flags().Float64Var(&fcfg.UnresolvedShare, "unresolved", fcfg.UnresolvedShare, "share of unresolved markets")
	return cmd
}
