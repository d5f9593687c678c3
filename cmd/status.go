package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cacher300/Massive-Webscraping-operation/internal/monitoring"
	"github.com/cacher300/Massive-Webscraping-operation/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show harvest progress and recent sweeps",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		limit, _ := cmd.Flags().GetInt("limit")

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		snap, err := monitoring.NewCollector(st).Collect(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Alerts stored: %d\n", snap.TotalAlerts)
		if snap.LastSweepAt != nil {
			fmt.Printf("Last sweep:    %s (%d alerts, run %s)\n",
				snap.LastSweepAt.Format("2006-01-02 15:04:05 MST"),
				*snap.LastSweepCount, snap.LastRunID)
		} else {
			fmt.Println("Last sweep:    never")
		}

		entries, err := st.ListSweeps(ctx, limit)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			fmt.Println("\nRecent sweeps:")
			for _, e := range entries {
				fmt.Printf("  #%-5d %s  %6d alerts  run %s\n",
					e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.AlertCount, e.RunID)
			}
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Int("limit", 10, "number of recent sweeps to show")
	rootCmd.AddCommand(statusCmd)
}
