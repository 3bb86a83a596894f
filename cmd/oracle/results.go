package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/oraclebot/internal/adapters/notify"
	"github.com/alejandrodnm/oraclebot/internal/methods"
)

func newTopCmd() *cobra.Command {
	var holdout bool
	cmd := &cobra.Command{
		Use:   "top [n]",
		Short: "Show the best stored combos",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			n := 10
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v <= 0 {
					return fmt.Errorf("top: n must be a positive integer, got %q", args[0])
				}
				n = v
			}

			a, err := loadAppWithStore(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.store.QueryTop(ctx, n)
			if err != nil {
				return err
			}
			console := notify.NewConsole()
			if err := console.ReportTop(ctx, results); err != nil {
				return err
			}
			if !holdout {
				return nil
			}
			h, err := a.store.LatestHoldout(ctx)
			if err != nil {
				return err
			}
			return console.ReportHoldout(ctx, h)
		},
	}
	cmd.Flags().BoolVar(&holdout, "holdout", true, "also show the latest holdout validation")
	return cmd
}

func newPruneCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored combos outside the top N",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadAppWithStore(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Engine.PruneKeep
			}
			deleted, err := a.store.Prune(cmd.Context(), keep)
			if err != nil {
				return err
			}
			slog.Info("pruned method results", "kept", keep, "deleted", deleted)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "combos to keep (default from config)")
	return cmd
}

func newMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the registered detectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			infos := make([]methods.Info, 0, a.registry.Len())
			for _, id := range a.registry.IDs() {
				if info, ok := a.registry.Info(id); ok {
					infos = append(infos, info)
				}
			}
			notify.NewConsole().ReportMethods(infos)
			return nil
		},
	}
}
