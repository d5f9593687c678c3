package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cacher300/Massive-Webscraping-operation/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "alertsweep",
	Short: "Police sighting harvester for the live-map feed",
	Long: "Decomposes a continent-sized bounding region into fetchable tiles, sweeps the\n" +
		"live-map feed tile by tile, and ingests police sightings into a durable store\n" +
		"with cross-sweep deduplication.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
