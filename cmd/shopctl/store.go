package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/infrastructure/logger"
)

func reconcileCmd() *cobra.Command {
	var (
		minAge time.Duration
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation sweep over unverified payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logger.New(os.Stderr, cfg.Log.Level)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			stores, err := app.OpenStores(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer stores.Close()

			statusCache := app.OpenStatusCache(ctx, cfg.Redis, log)
			defer statusCache.Close()

			uc := app.NewPaymentUseCase(cfg, stores, statusCache, nil, nil, log)

			if !cmd.Flags().Changed("min-age") {
				minAge = cfg.Reconciler.MinAge
			}
			if !cmd.Flags().Changed("limit") {
				limit = cfg.Reconciler.BatchSize
			}

			report, err := uc.Reconcile(ctx, minAge, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned:       %d\n", report.Scanned)
			fmt.Fprintf(out, "finalized:     %d\n", report.Finalized)
			fmt.Fprintf(out, "resumed:       %d\n", report.Resumed)
			fmt.Fprintf(out, "failed:        %d\n", report.Failed)
			fmt.Fprintf(out, "still pending: %d\n", report.StillPending)
			fmt.Fprintf(out, "errors:        %d\n", report.Errors)
			return nil
		},
	}

	cmd.Flags().DurationVar(&minAge, "min-age", 0, "Skip orders touched more recently (default RECONCILE_MIN_AGE)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum orders per sweep (default RECONCILE_BATCH_SIZE)")

	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [catalog.json]",
		Short: "Insert or update catalog products from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.StoreMemory {
				return fmt.Errorf("seeding the memory store has no lasting effect; set STORE_DRIVER=%s", config.StoreMongo)
			}

			stores, err := app.OpenStores(cmd.Context(), cfg, logger.New(os.Stderr, cfg.Log.Level))
			if err != nil {
				return err
			}
			defer stores.Close()

			n, err := stores.SeedCatalogFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products from %s\n", n, args[0])
			return nil
		},
	}

	return cmd
}
