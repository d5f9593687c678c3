package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cacher300/Massive-Webscraping-operation/internal/feed"
	"github.com/cacher300/Massive-Webscraping-operation/internal/status"
	"github.com/cacher300/Massive-Webscraping-operation/internal/store"
	"github.com/cacher300/Massive-Webscraping-operation/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one full sweep over the planned tile grid",
	Long: `Fetch every planned tile in order, filter police sightings, and commit the
accumulated batch in a single ingestion transaction.

With --loop the sweep repeats indefinitely with a minimum inter-sweep
interval, and a status HTTP server is exposed unless --no-serve is given.
SIGINT/SIGTERM stop the loop between tiles without a partial ingest.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		loop, _ := cmd.Flags().GetBool("loop")
		noServe, _ := cmd.Flags().GetBool("no-serve")
		intervalSecs, _ := cmd.Flags().GetInt("interval")
		if intervalSecs <= 0 {
			intervalSecs = cfg.Sweep.IntervalSecs
		}

		runID := uuid.New().String()
		log := zap.L().With(zap.String("command", "sweep"), zap.String("run_id", runID))

		planner, err := buildPlanner(cfg)
		if err != nil {
			return err
		}
		tiles, err := planner.Plan()
		if err != nil {
			return eris.Wrap(err, "sweep: plan grid")
		}

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		client := feed.NewClient(feed.ClientOptions{
			BaseURL:     cfg.Feed.BaseURL,
			Env:         cfg.Feed.Env,
			Types:       cfg.Feed.Types,
			UserAgent:   cfg.Feed.UserAgent,
			Timeout:     time.Duration(cfg.Feed.TimeoutSecs) * time.Second,
			Backoff:     time.Duration(cfg.Feed.BackoffSecs) * time.Second,
			MaxAttempts: cfg.Feed.MaxAttempts,
		})

		orch := sweep.New(client, st, sweep.Options{
			Pace:  time.Duration(cfg.Sweep.PaceMillis) * time.Millisecond,
			RunID: runID,
		})

		log.Info("starting sweep",
			zap.Int("tiles", len(tiles)),
			zap.Bool("loop", loop),
			zap.String("driver", cfg.Store.Driver),
		)

		if !loop {
			_, err := orch.RunSweep(ctx, tiles)
			return err
		}

		interval := time.Duration(intervalSecs) * time.Second
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return orch.RunLoop(gctx, tiles, interval)
		})
		if !noServe && cfg.Server.Port > 0 {
			srv := status.NewServer(st, cfg.Server.Port)
			g.Go(func() error {
				return srv.Serve(gctx)
			})
		}
		return g.Wait()
	},
}

func init() {
	sweepCmd.Flags().Bool("loop", false, "repeat sweeps indefinitely")
	sweepCmd.Flags().Int("interval", 0, "minimum seconds between sweeps in loop mode (default from config)")
	sweepCmd.Flags().Bool("no-serve", false, "disable the status HTTP server in loop mode")
	rootCmd.AddCommand(sweepCmd)
}
